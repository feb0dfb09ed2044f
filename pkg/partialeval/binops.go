package partialeval

import (
	"github.com/GriffinCanCode/qirc/pkg/eval"
	"github.com/GriffinCanCode/qirc/pkg/fir"
	"github.com/GriffinCanCode/qirc/pkg/ir"
)

var intCmp = map[fir.BinOp]ir.ConditionCode{
	fir.Eq:  ir.Eq,
	fir.Neq: ir.Ne,
	fir.Gt:  ir.Sgt,
	fir.Gte: ir.Sge,
	fir.Lt:  ir.Slt,
	fir.Lte: ir.Sle,
}

var doubleCmp = map[fir.BinOp]ir.FcmpCondition{
	fir.Eq:  ir.FcmpOeq,
	fir.Neq: ir.FcmpOne,
	fir.Gt:  ir.FcmpOgt,
	fir.Gte: ir.FcmpOge,
	fir.Lt:  ir.FcmpOlt,
	fir.Lte: ir.FcmpOle,
}

var intInstr = map[fir.BinOp]ir.BinOpKind{
	fir.Add:  ir.Add,
	fir.Sub:  ir.Sub,
	fir.Mul:  ir.Mul,
	fir.Div:  ir.Sdiv,
	fir.Mod:  ir.Srem,
	fir.Shl:  ir.Shl,
	fir.Shr:  ir.Ashr,
	fir.AndB: ir.BitwiseAnd,
	fir.OrB:  ir.BitwiseOr,
	fir.XorB: ir.BitwiseXor,
}

var doubleInstr = map[fir.BinOp]ir.BinOpKind{
	fir.Add: ir.Fadd,
	fir.Sub: ir.Fsub,
	fir.Mul: ir.Fmul,
	fir.Div: ir.Fdiv,
}

func (pe *PartialEvaluator) binOpExpr(e *fir.Expr) (eval.Value, error) {
	lhs, err := pe.operand(e.Exprs[0], "binary operation")
	if err != nil {
		return nil, err
	}
	return pe.binOp(e.BinOp, lhs, e.Exprs[1], pe.span(e.Span))
}

func (pe *PartialEvaluator) assignOp(e *fir.Expr) (eval.Value, error) {
	var lhs eval.Value
	target := pe.pkg().Expr(e.Exprs[0])
	if local, ok := target.LocalRes(); ok && target.Ty.Kind == fir.TyArray {
		lhs = pe.ctx.CurrentScope().GetHybridLocalValue(local)
	} else {
		v, err := pe.operand(e.Exprs[0], "assignment")
		if err != nil {
			return nil, err
		}
		lhs = v
	}
	v, err := pe.binOp(e.BinOp, lhs, e.Exprs[1], pe.span(e.Span))
	if err != nil {
		return nil, err
	}
	return eval.Unit(), pe.updateBindings(e.Exprs[0], v)
}

// binOp dispatches on the evaluated left operand. The right operand is
// evaluated lazily so logical operators can short-circuit.
func (pe *PartialEvaluator) binOp(op fir.BinOp, lhs eval.Value, rhs fir.ExprID, span fir.PackageSpan) (eval.Value, error) {
	switch l := lhs.(type) {
	case eval.Array:
		return pe.arrayBinOp(op, l, rhs, span)
	case eval.ResultVal, eval.ResultID:
		return pe.resultBinOp(op, l, rhs, span)
	case eval.Bool:
		return pe.classicalBoolBinOp(op, bool(l), rhs, span)
	case eval.Int:
		return pe.intBinOp(op, ir.Lit(ir.Integer(int64(l))), rhs, span)
	case eval.Double:
		return pe.doubleBinOp(op, ir.Lit(ir.Double(float64(l))), rhs, span)
	case eval.Var:
		switch l.Ty {
		case eval.VarBool:
			return pe.dynamicBoolBinOp(op, irVar(l), rhs, span)
		case eval.VarInt:
			return pe.intBinOp(op, ir.Var(irVar(l)), rhs, span)
		default:
			return pe.doubleBinOp(op, ir.Var(irVar(l)), rhs, span)
		}
	}
	return nil, newError(ErrUnexpected, span, "unsupported LHS value: %s", lhs)
}

func (pe *PartialEvaluator) arrayBinOp(op fir.BinOp, lhs eval.Array, rhs fir.ExprID, span fir.PackageSpan) (eval.Value, error) {
	switch op {
	case fir.Eq, fir.Neq:
		return nil, newError(ErrUnimplemented, span, "array comparison")
	case fir.Add:
		v, err := pe.operand(rhs, "array concatenation")
		if err != nil {
			return nil, err
		}
		r, ok := v.(eval.Array)
		if !ok {
			return nil, newError(ErrUnexpected, span, "cannot concatenate an array with %s", v)
		}
		out := make(eval.Array, 0, len(lhs)+len(r))
		return append(append(out, lhs...), r...), nil
	}
	return nil, newError(ErrUnexpected, span, "invalid binary operator for arrays")
}

// resultBinOp compares results. Measured results are read into a Boolean
// variable first.
func (pe *PartialEvaluator) resultBinOp(op fir.BinOp, lhs eval.Value, rhs fir.ExprID, span fir.PackageSpan) (eval.Value, error) {
	if op != fir.Eq && op != fir.Neq {
		return nil, newError(ErrUnexpected, span, "invalid binary operator for results")
	}
	r, err := pe.operand(rhs, "result comparison")
	if err != nil {
		return nil, err
	}
	if l, ok := lhs.(eval.ResultVal); ok {
		if r, ok := r.(eval.ResultVal); ok {
			return eval.Bool((l == r) == (op == fir.Eq)), nil
		}
	}
	lop, err := pe.resultOperand(lhs, span)
	if err != nil {
		return nil, err
	}
	rop, err := pe.resultOperand(r, span)
	if err != nil {
		return nil, err
	}

	out := pe.builder.NewVariable(ir.TyBoolean)
	want := op == fir.Eq
	switch {
	case isBoolLit(lop, want):
		pe.emit(ir.NewStore(rop, out), span)
	case isBoolLit(rop, want):
		pe.emit(ir.NewStore(lop, out), span)
	default:
		cc := ir.Eq
		if op == fir.Neq {
			cc = ir.Ne
		}
		pe.emit(ir.NewIcmp(cc, lop, rop, out), span)
	}
	return evalVar(out), nil
}

func isBoolLit(op ir.Operand, b bool) bool {
	lit, ok := op.Literal()
	return ok && lit == ir.Bool(b)
}

// resultOperand reads a measured result. Result literals become Booleans.
func (pe *PartialEvaluator) resultOperand(v eval.Value, span fir.PackageSpan) (ir.Operand, error) {
	switch v := v.(type) {
	case eval.ResultVal:
		return ir.Lit(ir.Bool(bool(v))), nil
	case eval.ResultID:
		out := pe.builder.NewVariable(ir.TyBoolean)
		id := pe.builder.Intern(ir.ReadResultDecl())
		pe.emit(ir.NewCall(id, []ir.Operand{ir.Lit(ir.Result(uint32(v)))}, &out), span)
		return ir.Var(out), nil
	}
	return ir.Operand{}, newError(ErrUnexpected, span, "%s is not a result", v)
}

func (pe *PartialEvaluator) classicalBoolBinOp(op fir.BinOp, lhs bool, rhs fir.ExprID, span fir.PackageSpan) (eval.Value, error) {
	switch {
	case op == fir.AndL && !lhs:
		return eval.Bool(false), nil
	case op == fir.OrL && lhs:
		return eval.Bool(true), nil
	case (op == fir.AndL || op == fir.Eq) && lhs, (op == fir.OrL || op == fir.Neq) && !lhs:
		return pe.operand(rhs, "binary operation")
	case op == fir.Eq || op == fir.Neq:
		r, err := pe.operand(rhs, "binary operation")
		if err != nil {
			return nil, err
		}
		rop := toOperand(r)
		if lit, ok := rop.Literal(); ok {
			return eval.Bool((lit.Bool == lhs) == (op == fir.Eq)), nil
		}
		cc := ir.Eq
		if op == fir.Neq {
			cc = ir.Ne
		}
		out := pe.builder.NewVariable(ir.TyBoolean)
		pe.emit(ir.NewIcmp(cc, ir.Lit(ir.Bool(lhs)), rop, out), span)
		return evalVar(out), nil
	}
	return nil, newError(ErrUnexpected, span, "invalid binary operator for booleans")
}

func (pe *PartialEvaluator) dynamicBoolBinOp(op fir.BinOp, lhs ir.Variable, rhs fir.ExprID, span fir.PackageSpan) (eval.Value, error) {
	switch op {
	case fir.Eq, fir.Neq:
		r, err := pe.operand(rhs, "binary operation")
		if err != nil {
			return nil, err
		}
		rop := toOperand(r)
		if isBoolLit(rop, op == fir.Eq) {
			return evalVar(lhs), nil
		}
		cc := ir.Eq
		if op == fir.Neq {
			cc = ir.Ne
		}
		out := pe.builder.NewVariable(ir.TyBoolean)
		pe.emit(ir.NewIcmp(cc, ir.Var(lhs), rop, out), span)
		return evalVar(out), nil
	case fir.AndL:
		return pe.shortCircuit(false, lhs, rhs, span)
	case fir.OrL:
		return pe.shortCircuit(true, lhs, rhs, span)
	}
	return nil, newError(ErrUnexpected, span, "invalid binary operator for booleans")
}

// shortCircuit lowers a logical operator on a dynamic Boolean to a branch.
// The result holds onTrue unless the right operand has to be evaluated.
func (pe *PartialEvaluator) shortCircuit(onTrue bool, lhs ir.Variable, rhs fir.ExprID, span fir.PackageSpan) (eval.Value, error) {
	if err := pe.require(ir.ForwardBranching, "dynamic logical operator", span); err != nil {
		return nil, err
	}
	out := pe.builder.NewVariable(ir.TyBoolean)
	pe.emit(ir.NewStore(ir.Lit(ir.Bool(onTrue)), out), span)

	current := pe.ctx.PopBlockNode()
	cont := pe.newBlock()
	pe.ctx.PushBlockNode(BlockNode{ID: cont, Successor: current.Successor})

	rhsBlock := pe.newBlock()
	pe.ctx.PushBlockNode(BlockNode{ID: rhsBlock, Successor: &cont})
	r, err := pe.operand(rhs, "logical operation")
	if err != nil {
		return nil, err
	}
	pe.emit(ir.NewStore(toOperand(r), out), span)
	pe.emit(ir.NewJump(cont), span)
	pe.ctx.PopBlockNode()

	ifTrue, ifFalse := rhsBlock, cont
	if onTrue {
		ifTrue, ifFalse = cont, rhsBlock
	}
	pe.emitTo(current.ID, ir.NewBranch(lhs, ifTrue, ifFalse), span)
	return evalVar(out), nil
}

func (pe *PartialEvaluator) intBinOp(op fir.BinOp, lhs ir.Operand, rhs fir.ExprID, span fir.PackageSpan) (eval.Value, error) {
	r, err := pe.operand(rhs, "binary operation")
	if err != nil {
		return nil, err
	}
	if _, ok := varTyOf(r); !ok {
		return nil, newError(ErrUnexpected, span, "invalid right operand %s for an integer operation", r)
	}
	rop := toOperand(r)
	if rop.Type() != ir.TyInteger {
		return nil, newError(ErrUnexpected, span, "invalid right operand %s for an integer operation", r)
	}
	l, lok := lhs.Literal()
	rl, rok := rop.Literal()
	if lok && rok {
		return pe.foldInt(op, eval.Int(l.Int), eval.Int(rl.Int), span)
	}
	if err := pe.require(ir.IntegerComputations, "dynamic integer computation", span); err != nil {
		return nil, err
	}

	if cc, ok := intCmp[op]; ok {
		out := pe.builder.NewVariable(ir.TyBoolean)
		pe.emit(ir.NewIcmp(cc, lhs, rop, out), span)
		return evalVar(out), nil
	}
	if op == fir.Exp {
		return pe.intPow(lhs, rop, span)
	}
	kind, ok := intInstr[op]
	if !ok {
		return nil, newError(ErrUnexpected, span, "invalid binary operator for integers")
	}
	if op == fir.Div && rok && rl.Int == 0 {
		return nil, pe.failEval(eval.ErrDivZero, span, "division by zero")
	}
	out := pe.builder.NewVariable(ir.TyInteger)
	pe.emit(ir.NewBinOp(kind, lhs, rop, out), span)
	return evalVar(out), nil
}

// intPow unrolls exponentiation by a classical exponent into multiplications.
func (pe *PartialEvaluator) intPow(base, exp ir.Operand, span fir.PackageSpan) (eval.Value, error) {
	lit, ok := exp.Literal()
	if !ok {
		return nil, newError(ErrUnexpected, span, "exponent must be a classical integer")
	}
	if lit.Int < 0 {
		return nil, pe.failEval(eval.ErrNegativeExponent, span, "negative integers cannot be used as exponents")
	}
	out := pe.builder.NewVariable(ir.TyInteger)
	pe.emit(ir.NewStore(ir.Lit(ir.Integer(1)), out), span)
	for range lit.Int {
		pe.emit(ir.NewBinOp(ir.Mul, ir.Var(out), base, out), span)
	}
	return evalVar(out), nil
}

func (pe *PartialEvaluator) foldInt(op fir.BinOp, l, r eval.Int, span fir.PackageSpan) (eval.Value, error) {
	switch op {
	case fir.Add:
		return l + r, nil
	case fir.Sub:
		return l - r, nil
	case fir.Mul:
		return l * r, nil
	case fir.Div, fir.Mod:
		if r == 0 {
			return nil, pe.failEval(eval.ErrDivZero, span, "division by zero")
		}
		if op == fir.Div {
			return l / r, nil
		}
		return l % r, nil
	case fir.Exp:
		if r < 0 {
			return nil, pe.failEval(eval.ErrNegativeExponent, span, "negative integers cannot be used as exponents")
		}
		return eval.IntPow(l, r), nil
	case fir.AndB:
		return l & r, nil
	case fir.OrB:
		return l | r, nil
	case fir.XorB:
		return l ^ r, nil
	case fir.Shl, fir.Shr:
		if r < 0 {
			return nil, pe.failEval(eval.ErrUnsupported, span, "negative shift amount %d", r)
		}
		if op == fir.Shl {
			return l << uint64(r), nil
		}
		return l >> uint64(r), nil
	case fir.Eq:
		return eval.Bool(l == r), nil
	case fir.Neq:
		return eval.Bool(l != r), nil
	case fir.Gt:
		return eval.Bool(l > r), nil
	case fir.Gte:
		return eval.Bool(l >= r), nil
	case fir.Lt:
		return eval.Bool(l < r), nil
	case fir.Lte:
		return eval.Bool(l <= r), nil
	}
	return nil, newError(ErrUnexpected, span, "invalid binary operator for integers")
}

func (pe *PartialEvaluator) doubleBinOp(op fir.BinOp, lhs ir.Operand, rhs fir.ExprID, span fir.PackageSpan) (eval.Value, error) {
	r, err := pe.operand(rhs, "binary operation")
	if err != nil {
		return nil, err
	}
	if _, ok := varTyOf(r); !ok {
		return nil, newError(ErrUnexpected, span, "invalid right operand %s for a floating point operation", r)
	}
	rop := toOperand(r)
	if rop.Type() != ir.TyDouble {
		return nil, newError(ErrUnexpected, span, "invalid right operand %s for a floating point operation", r)
	}
	l, lok := lhs.Literal()
	rl, rok := rop.Literal()
	if op == fir.Div && rok && rl.Double == 0 {
		return nil, pe.failEval(eval.ErrDivZero, span, "division by zero")
	}
	if lok && rok {
		return foldDouble(op, l.Double, rl.Double, span)
	}
	if err := pe.require(ir.FloatingPointComputations, "dynamic floating point computation", span); err != nil {
		return nil, err
	}

	if cond, ok := doubleCmp[op]; ok {
		out := pe.builder.NewVariable(ir.TyBoolean)
		pe.emit(ir.NewFcmp(cond, lhs, rop, out), span)
		return evalVar(out), nil
	}
	kind, ok := doubleInstr[op]
	if !ok {
		return nil, newError(ErrUnexpected, span, "invalid binary operator for doubles")
	}
	out := pe.builder.NewVariable(ir.TyDouble)
	pe.emit(ir.NewBinOp(kind, lhs, rop, out), span)
	return evalVar(out), nil
}

func foldDouble(op fir.BinOp, l, r float64, span fir.PackageSpan) (eval.Value, error) {
	switch op {
	case fir.Add:
		return eval.Double(l + r), nil
	case fir.Sub:
		return eval.Double(l - r), nil
	case fir.Mul:
		return eval.Double(l * r), nil
	case fir.Div:
		return eval.Double(l / r), nil
	case fir.Eq:
		return eval.Bool(l == r), nil
	case fir.Neq:
		return eval.Bool(l != r), nil
	case fir.Gt:
		return eval.Bool(l > r), nil
	case fir.Gte:
		return eval.Bool(l >= r), nil
	case fir.Lt:
		return eval.Bool(l < r), nil
	case fir.Lte:
		return eval.Bool(l <= r), nil
	}
	return nil, newError(ErrUnexpected, span, "invalid binary operator for doubles")
}

func (pe *PartialEvaluator) unOp(e *fir.Expr) (eval.Value, error) {
	span := pe.span(e.Span)
	v, err := pe.operand(e.Exprs[0], "unary operation")
	if err != nil {
		return nil, err
	}
	if _, ok := varTyOf(v); !ok {
		return nil, newError(ErrUnexpected, span, "invalid type for unary operation value: %s", v)
	}
	if e.UnOp == fir.Pos {
		return v, nil
	}
	dyn, ok := v.(eval.Var)
	if !ok {
		return foldUnOp(e.UnOp, v, span)
	}
	variable := irVar(dyn)
	switch {
	case e.UnOp == fir.Neg && dyn.Ty == eval.VarInt:
		if err := pe.require(ir.IntegerComputations, "dynamic integer computation", span); err != nil {
			return nil, err
		}
		out := pe.builder.NewVariable(ir.TyInteger)
		pe.emit(ir.NewBinOp(ir.Mul, ir.Lit(ir.Integer(-1)), ir.Var(variable), out), span)
		return evalVar(out), nil
	case e.UnOp == fir.Neg && dyn.Ty == eval.VarDouble:
		if err := pe.require(ir.FloatingPointComputations, "dynamic floating point computation", span); err != nil {
			return nil, err
		}
		out := pe.builder.NewVariable(ir.TyDouble)
		pe.emit(ir.NewBinOp(ir.Fmul, ir.Lit(ir.Double(-1)), ir.Var(variable), out), span)
		return evalVar(out), nil
	case e.UnOp == fir.NotB && dyn.Ty == eval.VarInt:
		if err := pe.require(ir.IntegerComputations, "dynamic integer computation", span); err != nil {
			return nil, err
		}
		out := pe.builder.NewVariable(ir.TyInteger)
		pe.emit(ir.NewUnOp(ir.BitwiseNot, ir.Var(variable), out), span)
		return evalVar(out), nil
	case e.UnOp == fir.NotL && dyn.Ty == eval.VarBool:
		out := pe.builder.NewVariable(ir.TyBoolean)
		pe.emit(ir.NewUnOp(ir.LogicalNot, ir.Var(variable), out), span)
		return evalVar(out), nil
	}
	return nil, newError(ErrUnexpected, span, "invalid unary operator for %s", v)
}

func foldUnOp(op fir.UnOp, v eval.Value, span fir.PackageSpan) (eval.Value, error) {
	switch v := v.(type) {
	case eval.Int:
		switch op {
		case fir.Neg:
			return -v, nil
		case fir.NotB:
			return ^v, nil
		}
	case eval.Double:
		if op == fir.Neg {
			return -v, nil
		}
	case eval.Bool:
		if op == fir.NotL {
			return !v, nil
		}
	}
	return nil, newError(ErrUnexpected, span, "invalid unary operator for %s", v)
}
