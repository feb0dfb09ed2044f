package fir

import "fmt"

// Intrinsic names the evaluator gives special meaning to.
const (
	QubitAllocateName = "__quantum__rt__qubit_allocate"
	QubitReleaseName  = "__quantum__rt__qubit_release"
	MName             = "__quantum__qis__m__body"
	MResetZName       = "__quantum__qis__mresetz__body"
	ResetName         = "__quantum__qis__reset__body"
	LengthName        = "Length"
)

// Param is a callable parameter.
type Param struct {
	Name string
	Ty   Ty
}

// Local is a bound local variable.
type Local struct {
	ID   LocalVarID
	Name string
	Ty   Ty
}

// Builder assembles a single-package store programmatically.
type Builder struct {
	pkg       *Package
	span      uint32
	nextLocal LocalVarID
	named     map[string]ItemID
	entry     *EntryPoint
}

// NewBuilder creates a builder for package 0.
func NewBuilder() *Builder {
	return &Builder{
		pkg:   &Package{ID: 0},
		named: make(map[string]ItemID),
	}
}

// Build returns the store holding the built package.
func (b *Builder) Build() *Store {
	return &Store{Packages: []*Package{b.pkg}, Entry: b.entry}
}

func (b *Builder) nextSpan() Span {
	b.span += 10
	return Span{Lo: b.span, Hi: b.span + 5}
}

func (b *Builder) newLocal(name string, ty Ty) Local {
	l := Local{ID: b.nextLocal, Name: name, Ty: ty}
	b.nextLocal++
	return l
}

func (b *Builder) addExpr(e *Expr) ExprID {
	e.ID = ExprID(len(b.pkg.Exprs))
	if e.Span == (Span{}) {
		e.Span = b.nextSpan()
	}
	b.pkg.Exprs = append(b.pkg.Exprs, e)
	return e.ID
}

func (b *Builder) addPat(p *Pat) PatID {
	p.ID = PatID(len(b.pkg.Pats))
	p.Span = b.nextSpan()
	b.pkg.Pats = append(b.pkg.Pats, p)
	return p.ID
}

func (b *Builder) addStmt(s *Stmt) StmtID {
	s.ID = StmtID(len(b.pkg.Stmts))
	s.Span = b.nextSpan()
	b.pkg.Stmts = append(b.pkg.Stmts, s)
	return s.ID
}

func (b *Builder) newBlock() *Block {
	blk := &Block{ID: BlockID(len(b.pkg.Blocks)), Ty: UnitTy, Span: b.nextSpan()}
	b.pkg.Blocks = append(b.pkg.Blocks, blk)
	return blk
}

// Ty returns the type of a built expression.
func (b *Builder) Ty(e ExprID) Ty { return b.pkg.Exprs[e].Ty }

// bindPat creates a binding pattern for a single local.
func (b *Builder) bindPat(l Local) PatID {
	return b.addPat(&Pat{Kind: PatBind, Ident: &Ident{ID: l.ID, Name: l.Name}, Ty: l.Ty})
}

// paramsPat creates the input pattern of a callable and the locals it binds.
// No parameters bind the unit tuple, one binds directly and more bind a tuple.
func (b *Builder) paramsPat(params []Param) (PatID, []Local) {
	locals := make([]Local, len(params))
	for i, p := range params {
		locals[i] = b.newLocal(p.Name, p.Ty)
	}
	if len(params) == 1 {
		return b.bindPat(locals[0]), locals
	}
	elems := make([]PatID, len(locals))
	tys := make([]Ty, len(locals))
	for i, l := range locals {
		elems[i] = b.bindPat(l)
		tys[i] = l.Ty
	}
	return b.addPat(&Pat{Kind: PatTuple, Elems: elems, Ty: TupleOf(tys...)}), locals
}

func paramsTy(params []Param) Ty {
	if len(params) == 1 {
		return params[0].Ty
	}
	tys := make([]Ty, len(params))
	for i, p := range params {
		tys[i] = p.Ty
	}
	return TupleOf(tys...)
}

// Declare adds a callable without a body. Define attaches one later, which
// allows recursion.
func (b *Builder) Declare(name string, kind CallableKind, params []Param, out Ty, attrs ...Attr) ItemID {
	input, _ := b.paramsPat(params)
	id := ItemID{Package: b.pkg.ID, Item: LocalItemID(len(b.pkg.Items))}
	b.pkg.Items = append(b.pkg.Items, &Item{
		ID: id.Item,
		Callable: &CallableDecl{
			Name:   name,
			Kind:   kind,
			Input:  input,
			Output: out,
			Attrs:  attrs,
			Span:   b.nextSpan(),
		},
	})
	b.named[name] = id
	return id
}

// Define builds the body of a declared callable.
func (b *Builder) Define(item ItemID, body func(f *Fn)) {
	decl := b.pkg.Items[item.Item].Callable
	f := b.newFn(b.paramLocals(decl.Input))
	body(f)
	blk := f.finish()
	decl.Body = &blk.ID
}

func (b *Builder) paramLocals(input PatID) []Local {
	p := b.pkg.Pats[input]
	switch p.Kind {
	case PatBind:
		return []Local{{ID: p.Ident.ID, Name: p.Ident.Name, Ty: p.Ty}}
	case PatTuple:
		var out []Local
		for _, e := range p.Elems {
			out = append(out, b.paramLocals(e)...)
		}
		return out
	}
	return nil
}

// Callable declares and defines a callable in one step.
func (b *Builder) Callable(name string, kind CallableKind, params []Param, out Ty, body func(f *Fn)) ItemID {
	id := b.Declare(name, kind, params, out)
	b.Define(id, body)
	return id
}

// Intrinsic declares a body-less callable whose parameters are unnamed.
func (b *Builder) Intrinsic(name string, kind CallableKind, in []Ty, out Ty, attrs ...Attr) ItemID {
	if id, ok := b.named[name]; ok {
		return id
	}
	params := make([]Param, len(in))
	for i, t := range in {
		params[i] = Param{Name: fmt.Sprintf("arg%d", i), Ty: t}
	}
	return b.Declare(name, kind, params, out, attrs...)
}

// Gate declares a unit-returning intrinsic operation on n qubits.
func (b *Builder) Gate(name string, n int) ItemID {
	in := make([]Ty, n)
	for i := range in {
		in[i] = QubitTy
	}
	return b.Intrinsic(name, Operation, in, UnitTy)
}

// M declares the measurement intrinsic.
func (b *Builder) M() ItemID {
	return b.Intrinsic(MName, Operation, []Ty{QubitTy}, ResultTy)
}

// MResetZ declares the measure-and-reset intrinsic.
func (b *Builder) MResetZ() ItemID {
	return b.Intrinsic(MResetZName, Operation, []Ty{QubitTy}, ResultTy)
}

// Reset declares the reset intrinsic.
func (b *Builder) Reset() ItemID {
	return b.Intrinsic(ResetName, Operation, []Ty{QubitTy}, UnitTy, AttrReset)
}

// Entry makes a call to item with no arguments the store's entry expression.
func (b *Builder) Entry(item ItemID) {
	call := b.Call(item)
	b.entry = &EntryPoint{Package: b.pkg.ID, Expr: call}
}

// Expression constructors.

func (b *Builder) lit(l Lit, ty Ty) ExprID {
	return b.addExpr(&Expr{Kind: ExprLit, Ty: ty, Lit: &l})
}

func (b *Builder) Int(v int64) ExprID      { return b.lit(Lit{Kind: LitInt, Int: v}, IntTy) }
func (b *Builder) Double(v float64) ExprID { return b.lit(Lit{Kind: LitDouble, Double: v}, DoubleTy) }
func (b *Builder) Bool(v bool) ExprID      { return b.lit(Lit{Kind: LitBool, Bool: v}, BoolTy) }

// ResultLit is the literal One when one is set and Zero otherwise.
func (b *Builder) ResultLit(one bool) ExprID {
	return b.lit(Lit{Kind: LitResult, Bool: one}, ResultTy)
}

func (b *Builder) Str(s string) ExprID {
	return b.addExpr(&Expr{Kind: ExprString, Ty: StringTy, Str: s})
}

// Var reads a local.
func (b *Builder) Var(l Local) ExprID {
	id := l.ID
	return b.addExpr(&Expr{Kind: ExprVar, Ty: l.Ty, Res: &Res{Local: &id}})
}

// Item refers to a callable.
func (b *Builder) Item(item ItemID) ExprID {
	decl := b.pkg.Items[item.Item].Callable
	in := b.pkg.Pats[decl.Input].Ty
	return b.addExpr(&Expr{Kind: ExprVar, Ty: ArrowOf(decl.Kind, in, decl.Output), Res: &Res{Item: &item}})
}

// Call invokes item. No arguments pass unit, one passes it directly and more
// pass a tuple.
func (b *Builder) Call(item ItemID, args ...ExprID) ExprID {
	decl := b.pkg.Items[item.Item].Callable
	callee := b.Item(item)
	var arg ExprID
	if len(args) == 1 {
		arg = args[0]
	} else {
		arg = b.Tuple(args...)
	}
	return b.addExpr(&Expr{Kind: ExprCall, Ty: decl.Output, Exprs: []ExprID{callee, arg}})
}

// Named calls a previously declared callable by name.
func (b *Builder) Named(name string, args ...ExprID) ExprID {
	id, ok := b.named[name]
	if !ok {
		panic("callable " + name + " is not declared")
	}
	return b.Call(id, args...)
}

// Length calls the array length builtin.
func (b *Builder) Length(arr ExprID) ExprID {
	id := b.Intrinsic(LengthName, Function, []Ty{b.Ty(arr)}, IntTy)
	return b.Call(id, arr)
}

// BinOp combines two expressions. Comparisons yield Bool, everything else
// keeps the operand type.
func (b *Builder) BinOp(op BinOp, lhs, rhs ExprID) ExprID {
	ty := b.Ty(lhs)
	if op.IsComparison() {
		ty = BoolTy
	}
	return b.addExpr(&Expr{Kind: ExprBinOp, Ty: ty, BinOp: op, Exprs: []ExprID{lhs, rhs}})
}

func (b *Builder) UnOp(op UnOp, operand ExprID) ExprID {
	return b.addExpr(&Expr{Kind: ExprUnOp, Ty: b.Ty(operand), UnOp: op, Exprs: []ExprID{operand}})
}

func (b *Builder) Index(arr, idx ExprID) ExprID {
	return b.addExpr(&Expr{Kind: ExprIndex, Ty: b.Ty(arr).Elem(), Exprs: []ExprID{arr, idx}})
}

func (b *Builder) Array(elem Ty, elems ...ExprID) ExprID {
	return b.addExpr(&Expr{Kind: ExprArray, Ty: ArrayOf(elem), Exprs: elems})
}

func (b *Builder) ArrayRepeat(value, size ExprID) ExprID {
	return b.addExpr(&Expr{Kind: ExprArrayRepeat, Ty: ArrayOf(b.Ty(value)), Exprs: []ExprID{value, size}})
}

func (b *Builder) Tuple(elems ...ExprID) ExprID {
	tys := make([]Ty, len(elems))
	for i, e := range elems {
		tys[i] = b.Ty(e)
	}
	return b.addExpr(&Expr{Kind: ExprTuple, Ty: TupleOf(tys...), Exprs: elems})
}

// Range builds start..step..end.
func (b *Builder) Range(start, step, end ExprID) ExprID {
	return b.addExpr(&Expr{Kind: ExprRange, Ty: RangeTy, Exprs: []ExprID{start, step, end}})
}

// UpdateIndex builds a copy of arr with arr[idx] replaced by value.
func (b *Builder) UpdateIndex(arr, idx, value ExprID) ExprID {
	return b.addExpr(&Expr{Kind: ExprUpdateIndex, Ty: b.Ty(arr), Exprs: []ExprID{arr, idx, value}})
}

// Fail aborts with msg.
func (b *Builder) Fail(msg string) ExprID {
	return b.addExpr(&Expr{Kind: ExprFail, Ty: UnitTy, Exprs: []ExprID{b.Str(msg)}})
}

// Hole is a placeholder expression of type ty.
func (b *Builder) Hole(ty Ty) ExprID {
	return b.addExpr(&Expr{Kind: ExprHole, Ty: ty})
}

// Fn builds the statements of one block.
type Fn struct {
	*Builder
	block    *Block
	params   []Local
	releases []Local
}

func (b *Builder) newFn(params []Local) *Fn {
	return &Fn{Builder: b, block: b.newBlock(), params: params}
}

// Param returns the i-th parameter of the callable being defined.
func (f *Fn) Param(i int) Local { return f.params[i] }

func (f *Fn) stmt(kind StmtKind, e ExprID) {
	f.block.Stmts = append(f.block.Stmts, f.addStmt(&Stmt{Kind: kind, Expr: e}))
}

// finish releases qubits allocated in the block and sets its type. A trailing
// value is saved in a local so releases run before it is produced.
func (f *Fn) finish() *Block {
	var trailing *ExprID
	if n := len(f.block.Stmts); n > 0 {
		last := f.pkg.Stmts[f.block.Stmts[n-1]]
		if last.Kind == StmtExpr {
			if len(f.releases) == 0 {
				f.block.Ty = f.Ty(last.Expr)
				return f.block
			}
			trailing = &last.Expr
			f.block.Stmts = f.block.Stmts[:n-1]
		}
	}
	if trailing != nil {
		saved := f.Let("@value", *trailing)
		v := f.Var(saved)
		trailing = &v
	}
	for i := len(f.releases) - 1; i >= 0; i-- {
		q := f.releases[i]
		release := f.Intrinsic(QubitReleaseName, Operation, []Ty{QubitTy}, UnitTy)
		f.Semi(f.Call(release, f.Var(q)))
	}
	if trailing != nil {
		f.stmt(StmtExpr, *trailing)
		f.block.Ty = f.Ty(*trailing)
	}
	return f.block
}

// Block builds a nested block expression.
func (f *Fn) Block(body func(g *Fn)) ExprID {
	g := f.newFn(f.params)
	body(g)
	blk := g.finish()
	return f.addExpr(&Expr{Kind: ExprBlock, Ty: blk.Ty, Block: blk.ID})
}

// Semi adds an expression statement whose value is discarded.
func (f *Fn) Semi(e ExprID) { f.stmt(StmtSemi, e) }

// Expr adds the trailing expression that gives the block its value.
func (f *Fn) Expr(e ExprID) { f.stmt(StmtExpr, e) }

func (f *Fn) local(name string, e ExprID, mutable bool) Local {
	l := f.newLocal(name, f.Ty(e))
	f.block.Stmts = append(f.block.Stmts, f.addStmt(&Stmt{
		Kind:    StmtLocal,
		Expr:    e,
		Pat:     f.bindPat(l),
		Mutable: mutable,
	}))
	return l
}

// Let binds an immutable local.
func (f *Fn) Let(name string, e ExprID) Local { return f.local(name, e, false) }

// Mutable binds a mutable local.
func (f *Fn) Mutable(name string, e ExprID) Local { return f.local(name, e, true) }

// LetTuple destructures a tuple-valued expression.
func (f *Fn) LetTuple(names []string, e ExprID) []Local {
	ty := f.Ty(e)
	locals := make([]Local, len(names))
	elems := make([]PatID, len(names))
	for i, name := range names {
		locals[i] = f.newLocal(name, ty.Elems[i])
		elems[i] = f.bindPat(locals[i])
	}
	pat := f.addPat(&Pat{Kind: PatTuple, Elems: elems, Ty: ty})
	f.block.Stmts = append(f.block.Stmts, f.addStmt(&Stmt{Kind: StmtLocal, Expr: e, Pat: pat}))
	return locals
}

// Discard evaluates e and binds nothing.
func (f *Fn) Discard(e ExprID) {
	pat := f.addPat(&Pat{Kind: PatDiscard, Ty: f.Ty(e)})
	f.block.Stmts = append(f.block.Stmts, f.addStmt(&Stmt{Kind: StmtLocal, Expr: e, Pat: pat}))
}

// Set assigns to a mutable local.
func (f *Fn) Set(l Local, e ExprID) {
	f.Semi(f.addExpr(&Expr{Kind: ExprAssign, Ty: UnitTy, Exprs: []ExprID{f.Var(l), e}}))
}

// SetOp applies op in place.
func (f *Fn) SetOp(op BinOp, l Local, e ExprID) {
	f.Semi(f.addExpr(&Expr{Kind: ExprAssignOp, Ty: UnitTy, BinOp: op, Exprs: []ExprID{f.Var(l), e}}))
}

// SetIndex replaces one element of a mutable array local.
func (f *Fn) SetIndex(l Local, idx, e ExprID) {
	f.Semi(f.addExpr(&Expr{Kind: ExprAssignIndex, Ty: UnitTy, Exprs: []ExprID{f.Var(l), idx, e}}))
}

// Return adds a return statement.
func (f *Fn) Return(e ExprID) {
	f.Semi(f.addExpr(&Expr{Kind: ExprReturn, Ty: UnitTy, Exprs: []ExprID{e}}))
}

// If builds a conditional expression. Without an else branch it has type
// Unit, otherwise the type of the then block.
func (f *Fn) If(cond ExprID, then func(g *Fn), els func(g *Fn)) ExprID {
	thenExpr := f.Block(then)
	ty := UnitTy
	operands := []ExprID{cond, thenExpr}
	if els != nil {
		operands = append(operands, f.Block(els))
		ty = f.Ty(thenExpr)
	}
	return f.addExpr(&Expr{Kind: ExprIf, Ty: ty, Exprs: operands})
}

// While adds a loop statement.
func (f *Fn) While(cond ExprID, body func(g *Fn)) {
	g := f.newFn(f.params)
	body(g)
	blk := g.finish()
	f.Semi(f.addExpr(&Expr{Kind: ExprWhile, Ty: UnitTy, Block: blk.ID, Exprs: []ExprID{cond}}))
}

// For iterates name over start..end inclusive.
func (f *Fn) For(name string, start, end int64, body func(g *Fn, i Local)) {
	f.ForStep(name, start, 1, end, body)
}

// ForStep iterates name over start..step..end. The loop becomes a counter
// local and a while loop whose condition matches the step's sign.
func (f *Fn) ForStep(name string, start, step, end int64, body func(g *Fn, i Local)) {
	f.Semi(f.Block(func(g *Fn) {
		index := g.Mutable("@index", g.Int(start))
		last := g.Let("@end", g.Int(end))
		cmp := Lte
		if step < 0 {
			cmp = Gte
		}
		g.While(g.BinOp(cmp, g.Var(index), g.Var(last)), func(h *Fn) {
			i := h.Let(name, h.Var(index))
			body(h, i)
			h.SetOp(Add, index, h.Int(step))
		})
	}))
}

// ForEach iterates name over the elements of arr.
func (f *Fn) ForEach(name string, arr ExprID, body func(g *Fn, elem Local)) {
	f.Semi(f.Block(func(g *Fn) {
		array := g.Let("@array", arr)
		index := g.Mutable("@index", g.Int(0))
		length := g.Let("@len", g.Length(g.Var(array)))
		g.While(g.BinOp(Lt, g.Var(index), g.Var(length)), func(h *Fn) {
			elem := h.Let(name, h.Index(h.Var(array), h.Var(index)))
			body(h, elem)
			h.SetOp(Add, index, h.Int(1))
		})
	}))
}

// RepeatUntil runs body until the condition built by until holds.
func (f *Fn) RepeatUntil(body func(g *Fn), until func(g *Fn) ExprID) {
	f.Semi(f.Block(func(g *Fn) {
		cont := g.Mutable("@continue", g.Bool(true))
		g.While(g.Var(cont), func(h *Fn) {
			body(h)
			h.Set(cont, h.UnOp(NotL, until(h)))
		})
	}))
}

// Use allocates a qubit released at the end of the enclosing block.
func (f *Fn) Use(name string) Local {
	alloc := f.Intrinsic(QubitAllocateName, Operation, nil, QubitTy)
	q := f.Let(name, f.Call(alloc))
	f.releases = append(f.releases, q)
	return q
}

// UseArray allocates n qubits and binds them as an array.
func (f *Fn) UseArray(name string, n int) Local {
	elems := make([]ExprID, n)
	for i := range elems {
		elems[i] = f.Var(f.Use(fmt.Sprintf("%s%d", name, i)))
	}
	return f.Let(name, f.Array(QubitTy, elems...))
}
