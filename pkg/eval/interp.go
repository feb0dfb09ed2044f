package eval

import (
	"math"

	"github.com/GriffinCanCode/qirc/pkg/fir"
	"github.com/GriffinCanCode/qirc/pkg/logger"
)

// DefaultMaxCallDepth bounds nested calls when no limit is configured.
const DefaultMaxCallDepth = 256

// MaxArrayLength bounds arrays built by repetition.
const MaxArrayLength = 1 << 24

type control uint8

const (
	ctrlNext control = iota
	ctrlReturn
)

// Interpreter evaluates expressions whose values are known at compile time.
type Interpreter struct {
	store    *fir.Store
	stack    []Frame
	maxDepth int
}

// New creates an interpreter over store. A maxDepth of zero selects
// DefaultMaxCallDepth.
func New(store *fir.Store, maxDepth int) *Interpreter {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxCallDepth
	}
	return &Interpreter{store: store, maxDepth: maxDepth}
}

// Eval evaluates expr in env. A return reached outside any call unwinds env
// to its root frame so the caller can observe it.
func (in *Interpreter) Eval(pkg fir.PackageID, expr fir.ExprID, env *Env) (Value, error) {
	in.stack = in.stack[:0]
	v, ctrl, err := in.expr(in.store.Package(pkg), expr, env)
	if err != nil {
		return nil, err
	}
	if ctrl == ctrlReturn {
		env.Truncate(1)
	}
	return v, nil
}

// Call invokes a callable with already evaluated arguments.
func (in *Interpreter) Call(item fir.ItemID, args Value, span fir.PackageSpan) (Value, error) {
	in.stack = in.stack[:0]
	return in.call(item, args, span)
}

func (in *Interpreter) fail(kind ErrorKind, pkg *fir.Package, span fir.Span, format string, args ...any) error {
	err := NewError(kind, fir.PackageSpan{Package: pkg.ID, Span: span}, format, args...)
	err.Stack = append([]Frame(nil), in.stack...)
	return err
}

func (in *Interpreter) block(pkg *fir.Package, id fir.BlockID, env *Env) (Value, control, error) {
	env.PushScope()
	defer env.PopScope()
	result := Unit()
	for _, sid := range pkg.Block(id).Stmts {
		stmt := pkg.Stmt(sid)
		v, ctrl, err := in.expr(pkg, stmt.Expr, env)
		if err != nil || ctrl == ctrlReturn {
			return v, ctrl, err
		}
		switch stmt.Kind {
		case fir.StmtLocal:
			if err := in.bindPat(pkg, stmt.Pat, v, env); err != nil {
				return nil, ctrlNext, err
			}
			result = Unit()
		case fir.StmtSemi:
			result = Unit()
		case fir.StmtExpr:
			result = v
		}
	}
	return result, ctrlNext, nil
}

func (in *Interpreter) bindPat(pkg *fir.Package, id fir.PatID, v Value, env *Env) error {
	pat := pkg.Pat(id)
	switch pat.Kind {
	case fir.PatBind:
		env.Bind(pat.Ident.ID, &Variable{Name: pat.Ident.Name, Value: v, Span: pat.Ident.Span})
	case fir.PatTuple:
		tup, ok := v.(Tuple)
		if !ok || len(tup) != len(pat.Elems) {
			return in.fail(ErrTypeMismatch, pkg, pat.Span, "cannot destructure %s into %d elements", v, len(pat.Elems))
		}
		for i, e := range pat.Elems {
			if err := in.bindPat(pkg, e, tup[i], env); err != nil {
				return err
			}
		}
	}
	return nil
}

// exprs evaluates operands left to right.
func (in *Interpreter) exprs(pkg *fir.Package, ids []fir.ExprID, env *Env) ([]Value, control, error) {
	out := make([]Value, len(ids))
	for i, id := range ids {
		v, ctrl, err := in.expr(pkg, id, env)
		if err != nil || ctrl == ctrlReturn {
			return nil, ctrl, err
		}
		out[i] = v
	}
	if len(out) == 0 {
		out = nil
	}
	return out, ctrlNext, nil
}

func (in *Interpreter) expr(pkg *fir.Package, id fir.ExprID, env *Env) (Value, control, error) {
	e := pkg.Expr(id)
	switch e.Kind {
	case fir.ExprLit:
		return LitValue(e.Lit), ctrlNext, nil
	case fir.ExprString:
		return String(e.Str), ctrlNext, nil
	case fir.ExprHole:
		return nil, ctrlNext, in.fail(ErrUnsupported, pkg, e.Span, "hole expressions cannot be evaluated")
	case fir.ExprVar:
		if item, ok := e.ItemRes(); ok {
			return Global{Item: item}, ctrlNext, nil
		}
		local, _ := e.LocalRes()
		v, ok := env.Get(local)
		if !ok {
			return nil, ctrlNext, in.fail(ErrUnboundLocal, pkg, e.Span, "local %d is not bound", local)
		}
		if _, dynamic := v.Value.(Var); dynamic {
			return nil, ctrlNext, in.fail(ErrQuantumInClassical, pkg, e.Span, "%s holds a dynamic value", v.Name)
		}
		return v.Value, ctrlNext, nil
	case fir.ExprBlock:
		return in.block(pkg, e.Block, env)
	case fir.ExprReturn:
		v, ctrl, err := in.expr(pkg, e.Exprs[0], env)
		if err != nil || ctrl == ctrlReturn {
			return v, ctrl, err
		}
		return v, ctrlReturn, nil
	case fir.ExprWhile:
		return in.while(pkg, e, env)
	case fir.ExprIf:
		return in.ifExpr(pkg, e, env)
	case fir.ExprBinOp:
		if e.BinOp == fir.AndL || e.BinOp == fir.OrL {
			return in.logical(pkg, e, env)
		}
	case fir.ExprAssign:
		v, ctrl, err := in.expr(pkg, e.Exprs[1], env)
		if err != nil || ctrl == ctrlReturn {
			return v, ctrl, err
		}
		return Unit(), ctrlNext, in.assign(pkg, e.Exprs[0], v, env)
	}

	operands, ctrl, err := in.exprs(pkg, e.Exprs, env)
	if err != nil || ctrl == ctrlReturn {
		return nil, ctrl, err
	}
	v, err := in.apply(pkg, e, operands, env)
	return v, ctrlNext, err
}

// apply computes the value of e from its evaluated operands.
func (in *Interpreter) apply(pkg *fir.Package, e *fir.Expr, ops []Value, env *Env) (Value, error) {
	switch e.Kind {
	case fir.ExprArray:
		return Array(ops), nil
	case fir.ExprTuple:
		return Tuple(ops), nil
	case fir.ExprArrayRepeat:
		n, ok := ops[1].(Int)
		if !ok || n < 0 || n > MaxArrayLength {
			return nil, in.fail(ErrInvalidArrayLength, pkg, pkg.Expr(e.Exprs[1]).Span, "array length %s is invalid", ops[1])
		}
		arr := make(Array, n)
		for i := range arr {
			arr[i] = ops[0]
		}
		return arr, nil
	case fir.ExprRange:
		var r [3]int64
		for i, v := range ops {
			n, ok := v.(Int)
			if !ok {
				return nil, in.fail(ErrTypeMismatch, pkg, e.Span, "range bound %s is not an integer", v)
			}
			r[i] = int64(n)
		}
		if r[1] == 0 {
			return nil, in.fail(ErrEmptyRange, pkg, e.Span, "range step must not be zero")
		}
		return Range{Start: r[0], Step: r[1], End: r[2]}, nil
	case fir.ExprIndex:
		return in.index(pkg, e, ops[0], ops[1])
	case fir.ExprUpdateIndex:
		return in.updateIndex(pkg, e, ops[0], ops[1], ops[2])
	case fir.ExprUnOp:
		return in.unOp(pkg, e, ops[0])
	case fir.ExprBinOp:
		return in.binOp(pkg, e.BinOp, e.Span, ops[0], ops[1])
	case fir.ExprFail:
		return nil, in.fail(ErrUserFail, pkg, e.Span, "%s", ops[0])
	case fir.ExprCall:
		global, ok := ops[0].(Global)
		if !ok {
			return nil, in.fail(ErrTypeMismatch, pkg, e.Span, "%s is not callable", ops[0])
		}
		return in.call(global.Item, ops[1], fir.PackageSpan{Package: pkg.ID, Span: e.Span})
	case fir.ExprAssignOp:
		v, err := in.binOp(pkg, e.BinOp, e.Span, ops[0], ops[1])
		if err != nil {
			return nil, err
		}
		return Unit(), in.assign(pkg, e.Exprs[0], v, env)
	case fir.ExprAssignIndex:
		v, err := in.updateIndex(pkg, e, ops[0], ops[1], ops[2])
		if err != nil {
			return nil, err
		}
		return Unit(), in.assign(pkg, e.Exprs[0], v, env)
	}
	return nil, in.fail(ErrUnsupported, pkg, e.Span, "%s expressions are not supported", e.Kind)
}

func (in *Interpreter) assign(pkg *fir.Package, lhs fir.ExprID, v Value, env *Env) error {
	e := pkg.Expr(lhs)
	switch e.Kind {
	case fir.ExprHole:
		return nil
	case fir.ExprVar:
		local, ok := e.LocalRes()
		if !ok || !env.Update(local, v) {
			return in.fail(ErrUnboundLocal, pkg, e.Span, "cannot assign to %s", e.Kind)
		}
		return nil
	case fir.ExprTuple:
		tup, ok := v.(Tuple)
		if !ok || len(tup) != len(e.Exprs) {
			return in.fail(ErrTypeMismatch, pkg, e.Span, "cannot assign %s to a %d-tuple", v, len(e.Exprs))
		}
		for i, sub := range e.Exprs {
			if err := in.assign(pkg, sub, tup[i], env); err != nil {
				return err
			}
		}
		return nil
	}
	return in.fail(ErrUnsupported, pkg, e.Span, "cannot assign to %s", e.Kind)
}

func (in *Interpreter) logical(pkg *fir.Package, e *fir.Expr, env *Env) (Value, control, error) {
	lhs, ctrl, err := in.expr(pkg, e.Exprs[0], env)
	if err != nil || ctrl == ctrlReturn {
		return lhs, ctrl, err
	}
	b, ok := lhs.(Bool)
	if !ok {
		return nil, ctrlNext, in.fail(ErrTypeMismatch, pkg, e.Span, "%s is not a boolean", lhs)
	}
	if (e.BinOp == fir.AndL && !bool(b)) || (e.BinOp == fir.OrL && bool(b)) {
		return b, ctrlNext, nil
	}
	return in.expr(pkg, e.Exprs[1], env)
}

func (in *Interpreter) ifExpr(pkg *fir.Package, e *fir.Expr, env *Env) (Value, control, error) {
	cond, ctrl, err := in.expr(pkg, e.Exprs[0], env)
	if err != nil || ctrl == ctrlReturn {
		return cond, ctrl, err
	}
	b, ok := cond.(Bool)
	if !ok {
		return nil, ctrlNext, in.fail(ErrTypeMismatch, pkg, e.Span, "condition %s is not a boolean", cond)
	}
	if b {
		return in.expr(pkg, e.Exprs[1], env)
	}
	if els, ok := e.Else(); ok {
		return in.expr(pkg, els, env)
	}
	return Unit(), ctrlNext, nil
}

func (in *Interpreter) while(pkg *fir.Package, e *fir.Expr, env *Env) (Value, control, error) {
	for {
		cond, ctrl, err := in.expr(pkg, e.Exprs[0], env)
		if err != nil || ctrl == ctrlReturn {
			return cond, ctrl, err
		}
		b, ok := cond.(Bool)
		if !ok {
			return nil, ctrlNext, in.fail(ErrTypeMismatch, pkg, e.Span, "condition %s is not a boolean", cond)
		}
		if !b {
			return Unit(), ctrlNext, nil
		}
		v, ctrl, err := in.block(pkg, e.Block, env)
		if err != nil || ctrl == ctrlReturn {
			return v, ctrl, err
		}
	}
}

func (in *Interpreter) call(item fir.ItemID, args Value, span fir.PackageSpan) (Value, error) {
	decl, ok := in.store.Callable(item)
	if !ok {
		return nil, NewError(ErrUnsupported, span, "%s is not a callable", item)
	}
	pkg := in.store.Package(item.Package)
	if decl.Kind == fir.Operation {
		return nil, in.fail(ErrQuantumInClassical, pkg, span.Span, "operation %s cannot be called classically", decl.Name)
	}
	if len(in.stack) >= in.maxDepth {
		return nil, in.fail(ErrUnsupported, pkg, span.Span, "call depth exceeds %d", in.maxDepth)
	}
	in.stack = append(in.stack, Frame{Callable: decl.Name, Span: span})
	defer func() { in.stack = in.stack[:len(in.stack)-1] }()

	if decl.Body == nil {
		return in.builtin(pkg, decl, args, span.Span)
	}
	env := NewEnv()
	env.PushScope()
	if err := in.bindPat(pkg, decl.Input, args, env); err != nil {
		return nil, err
	}
	v, _, err := in.block(pkg, *decl.Body, env)
	return v, err
}

func (in *Interpreter) builtin(pkg *fir.Package, decl *fir.CallableDecl, args Value, span fir.Span) (Value, error) {
	switch decl.Name {
	case fir.LengthName:
		switch v := args.(type) {
		case Array:
			return Int(len(v)), nil
		case Range:
			return Int(v.Len()), nil
		}
	case "IntAsDouble":
		if v, ok := args.(Int); ok {
			return Double(v), nil
		}
	case "Truncate":
		if v, ok := args.(Double); ok {
			return Int(int64(v)), nil
		}
	case "Message":
		logger.Debug("Program message", "message", args.String())
		return Unit(), nil
	default:
		return nil, in.fail(ErrUnsupported, pkg, span, "intrinsic %s is not supported classically", decl.Name)
	}
	return nil, in.fail(ErrTypeMismatch, pkg, span, "invalid argument %s for %s", args, decl.Name)
}

func (in *Interpreter) index(pkg *fir.Package, e *fir.Expr, arr, idx Value) (Value, error) {
	a, ok := arr.(Array)
	if !ok {
		return nil, in.fail(ErrTypeMismatch, pkg, e.Span, "%s is not an array", arr)
	}
	switch i := idx.(type) {
	case Int:
		if i < 0 || int(i) >= len(a) {
			return nil, in.fail(ErrIndexOutOfRange, pkg, pkg.Expr(e.Exprs[1]).Span, "index %d out of range for length %d", i, len(a))
		}
		return a[i], nil
	case Range:
		out := make(Array, 0, i.Len())
		for k := int64(0); k < i.Len(); k++ {
			at := i.At(k)
			if at < 0 || int(at) >= len(a) {
				return nil, in.fail(ErrIndexOutOfRange, pkg, pkg.Expr(e.Exprs[1]).Span, "index %d out of range for length %d", at, len(a))
			}
			out = append(out, a[at])
		}
		return out, nil
	}
	return nil, in.fail(ErrTypeMismatch, pkg, e.Span, "%s is not an index", idx)
}

func (in *Interpreter) updateIndex(pkg *fir.Package, e *fir.Expr, arr, idx, v Value) (Value, error) {
	a, ok := arr.(Array)
	if !ok {
		return nil, in.fail(ErrTypeMismatch, pkg, e.Span, "%s is not an array", arr)
	}
	i, ok := idx.(Int)
	if !ok {
		return nil, in.fail(ErrTypeMismatch, pkg, e.Span, "%s is not an index", idx)
	}
	if i < 0 || int(i) >= len(a) {
		return nil, in.fail(ErrIndexOutOfRange, pkg, pkg.Expr(e.Exprs[1]).Span, "index %d out of range for length %d", i, len(a))
	}
	out := make(Array, len(a))
	copy(out, a)
	out[i] = v
	return out, nil
}

func (in *Interpreter) unOp(pkg *fir.Package, e *fir.Expr, v Value) (Value, error) {
	switch e.UnOp {
	case fir.Pos:
		return v, nil
	case fir.Neg:
		switch v := v.(type) {
		case Int:
			return -v, nil
		case Double:
			return -v, nil
		}
	case fir.NotB:
		if v, ok := v.(Int); ok {
			return ^v, nil
		}
	case fir.NotL:
		if v, ok := v.(Bool); ok {
			return !v, nil
		}
	}
	return nil, in.fail(ErrTypeMismatch, pkg, e.Span, "operator %s does not apply to %s", e.UnOp, v)
}

func (in *Interpreter) binOp(pkg *fir.Package, op fir.BinOp, span fir.Span, lhs, rhs Value) (Value, error) {
	if op == fir.Eq || op == fir.Neq {
		if _, ok := lhs.(ResultID); ok {
			return nil, in.fail(ErrQuantumInClassical, pkg, span, "measured results cannot be compared classically")
		}
		if _, ok := rhs.(ResultID); ok {
			return nil, in.fail(ErrQuantumInClassical, pkg, span, "measured results cannot be compared classically")
		}
		eq := Equal(lhs, rhs)
		return Bool(eq == (op == fir.Eq)), nil
	}
	mismatch := func() error {
		return in.fail(ErrTypeMismatch, pkg, span, "operator %s does not apply to %s and %s", op, lhs, rhs)
	}
	switch l := lhs.(type) {
	case Int:
		r, ok := rhs.(Int)
		if !ok {
			return nil, mismatch()
		}
		return in.intOp(pkg, op, span, l, r)
	case Double:
		r, ok := rhs.(Double)
		if !ok {
			return nil, mismatch()
		}
		return doubleOp(op, l, r, mismatch)
	case Bool:
		r, ok := rhs.(Bool)
		if !ok {
			return nil, mismatch()
		}
		switch op {
		case fir.AndL:
			return l && r, nil
		case fir.OrL:
			return l || r, nil
		}
	case String:
		if r, ok := rhs.(String); ok && op == fir.Add {
			return l + r, nil
		}
	case Array:
		if r, ok := rhs.(Array); ok && op == fir.Add {
			out := make(Array, 0, len(l)+len(r))
			return append(append(out, l...), r...), nil
		}
	}
	return nil, mismatch()
}

func (in *Interpreter) intOp(pkg *fir.Package, op fir.BinOp, span fir.Span, l, r Int) (Value, error) {
	switch op {
	case fir.Add:
		return l + r, nil
	case fir.Sub:
		return l - r, nil
	case fir.Mul:
		return l * r, nil
	case fir.Div, fir.Mod:
		if r == 0 {
			return nil, in.fail(ErrDivZero, pkg, span, "division by zero")
		}
		if op == fir.Div {
			return l / r, nil
		}
		return l % r, nil
	case fir.Exp:
		if r < 0 {
			return nil, in.fail(ErrNegativeExponent, pkg, span, "exponent %d is negative", r)
		}
		return IntPow(l, r), nil
	case fir.AndB:
		return l & r, nil
	case fir.OrB:
		return l | r, nil
	case fir.XorB:
		return l ^ r, nil
	case fir.Shl, fir.Shr:
		if r < 0 {
			return nil, in.fail(ErrUnsupported, pkg, span, "shift amount %d is negative", r)
		}
		if op == fir.Shl {
			return l << uint64(r), nil
		}
		return l >> uint64(r), nil
	case fir.Lt:
		return Bool(l < r), nil
	case fir.Lte:
		return Bool(l <= r), nil
	case fir.Gt:
		return Bool(l > r), nil
	case fir.Gte:
		return Bool(l >= r), nil
	}
	return nil, in.fail(ErrTypeMismatch, pkg, span, "operator %s does not apply to integers", op)
}

func doubleOp(op fir.BinOp, l, r Double, mismatch func() error) (Value, error) {
	switch op {
	case fir.Add:
		return l + r, nil
	case fir.Sub:
		return l - r, nil
	case fir.Mul:
		return l * r, nil
	case fir.Div:
		return l / r, nil
	case fir.Mod:
		return Double(math.Mod(float64(l), float64(r))), nil
	case fir.Exp:
		return Double(math.Pow(float64(l), float64(r))), nil
	case fir.Lt:
		return Bool(l < r), nil
	case fir.Lte:
		return Bool(l <= r), nil
	case fir.Gt:
		return Bool(l > r), nil
	case fir.Gte:
		return Bool(l >= r), nil
	}
	return nil, mismatch()
}

// IntPow raises base to a non-negative exponent by squaring.
func IntPow(base, exp Int) Int {
	result := Int(1)
	for exp > 0 {
		if exp&1 == 1 {
			result *= base
		}
		base *= base
		exp >>= 1
	}
	return result
}

// LitValue converts a literal node to a value.
func LitValue(l *fir.Lit) Value {
	switch l.Kind {
	case fir.LitInt:
		return Int(l.Int)
	case fir.LitDouble:
		return Double(l.Double)
	case fir.LitBool:
		return Bool(l.Bool)
	}
	return ResultVal(l.Bool)
}
