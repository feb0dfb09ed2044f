package fir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bodyStmts(t *testing.T, store *Store, item ItemID) []*Stmt {
	t.Helper()
	decl, ok := store.Callable(item)
	require.True(t, ok)
	require.NotNil(t, decl.Body)
	pkg := store.Package(item.Package)
	var out []*Stmt
	for _, id := range pkg.Block(*decl.Body).Stmts {
		out = append(out, pkg.Stmt(id))
	}
	return out
}

func TestBuilderCallArguments(t *testing.T) {
	b := NewBuilder()
	cx := b.Gate("CX", 2)
	h := b.Gate("H", 1)
	main := b.Callable("Main", Operation, nil, UnitTy, func(f *Fn) {
		q0 := f.Use("q0")
		q1 := f.Use("q1")
		f.Semi(f.Call(h, f.Var(q0)))
		f.Semi(f.Call(cx, f.Var(q0), f.Var(q1)))
	})
	store := b.Build()
	pkg := store.Package(0)

	stmts := bodyStmts(t, store, main)
	// two allocations, two gates, two releases in reverse order
	require.Len(t, stmts, 6)

	single := pkg.Expr(stmts[2].Expr)
	assert.Equal(t, ExprVar, pkg.Expr(single.Exprs[1]).Kind)

	pair := pkg.Expr(stmts[3].Expr)
	args := pkg.Expr(pair.Exprs[1])
	assert.Equal(t, ExprTuple, args.Kind)
	assert.Len(t, args.Exprs, 2)

	firstRelease := pkg.Expr(stmts[4].Expr)
	callee, ok := pkg.Expr(firstRelease.Exprs[0]).ItemRes()
	require.True(t, ok)
	decl, _ := store.Callable(callee)
	assert.Equal(t, QubitReleaseName, decl.Name)
	released, ok := pkg.Expr(firstRelease.Exprs[1]).LocalRes()
	require.True(t, ok)
	assert.Equal(t, pkg.Pat(stmts[1].Pat).Ident.ID, released)
}

func TestBuilderTrailingValueSurvivesRelease(t *testing.T) {
	b := NewBuilder()
	main := b.Callable("Main", Operation, nil, ResultTy, func(f *Fn) {
		q := f.Use("q")
		f.Expr(f.Call(f.M(), f.Var(q)))
	})
	store := b.Build()
	pkg := store.Package(0)

	stmts := bodyStmts(t, store, main)
	require.Len(t, stmts, 4)
	assert.Equal(t, StmtLocal, stmts[1].Kind)
	assert.Equal(t, StmtSemi, stmts[2].Kind)
	assert.Equal(t, StmtExpr, stmts[3].Kind)
	decl, _ := store.Callable(main)
	assert.True(t, pkg.Block(*decl.Body).Ty.Equal(ResultTy))
}

func TestBuilderForDesugarsToWhile(t *testing.T) {
	b := NewBuilder()
	op := b.Gate("op", 1)
	main := b.Callable("Main", Operation, nil, UnitTy, func(f *Fn) {
		q := f.Use("q")
		f.For("i", 1, 3, func(g *Fn, _ Local) {
			g.Semi(g.Call(op, g.Var(q)))
		})
	})
	store := b.Build()
	pkg := store.Package(0)

	stmts := bodyStmts(t, store, main)
	loop := pkg.Expr(stmts[1].Expr)
	require.Equal(t, ExprBlock, loop.Kind)

	inner := pkg.Block(loop.Block)
	require.Len(t, inner.Stmts, 3)
	index := pkg.Stmt(inner.Stmts[0])
	assert.True(t, index.Mutable)
	assert.Equal(t, int64(1), pkg.Expr(index.Expr).Lit.Int)

	while := pkg.Expr(pkg.Stmt(inner.Stmts[2]).Expr)
	require.Equal(t, ExprWhile, while.Kind)
	cond := pkg.Expr(while.Exprs[0])
	assert.Equal(t, Lte, cond.BinOp)

	body := pkg.Block(while.Block)
	last := pkg.Expr(pkg.Stmt(body.Stmts[len(body.Stmts)-1]).Expr)
	assert.Equal(t, ExprAssignOp, last.Kind)
	assert.Equal(t, Add, last.BinOp)
}

func TestBuilderForStepNegative(t *testing.T) {
	b := NewBuilder()
	main := b.Callable("Main", Function, nil, UnitTy, func(f *Fn) {
		f.ForStep("i", 3, -1, 1, func(*Fn, Local) {})
	})
	store := b.Build()
	pkg := store.Package(0)
	loop := pkg.Expr(bodyStmts(t, store, main)[0].Expr)
	while := pkg.Expr(pkg.Stmt(pkg.Block(loop.Block).Stmts[2]).Expr)
	assert.Equal(t, Gte, pkg.Expr(while.Exprs[0]).BinOp)
}

func TestBuilderIfTypes(t *testing.T) {
	b := NewBuilder()
	var withElse, withoutElse ExprID
	b.Callable("Main", Function, []Param{{Name: "c", Ty: BoolTy}}, IntTy, func(f *Fn) {
		c := f.Param(0)
		withoutElse = f.If(f.Var(c), func(g *Fn) {}, nil)
		f.Semi(withoutElse)
		withElse = f.If(f.Var(c), func(g *Fn) { g.Expr(g.Int(1)) }, func(g *Fn) { g.Expr(g.Int(2)) })
		f.Expr(withElse)
	})
	store := b.Build()
	pkg := store.Package(0)
	assert.True(t, pkg.Expr(withoutElse).Ty.IsUnit())
	assert.True(t, pkg.Expr(withElse).Ty.Equal(IntTy))
	_, ok := pkg.Expr(withoutElse).Else()
	assert.False(t, ok)
	_, ok = pkg.Expr(withElse).Else()
	assert.True(t, ok)
	require.NoError(t, store.Validate())
}

func TestBuilderParamsPattern(t *testing.T) {
	b := NewBuilder()
	one := b.Declare("one", Function, []Param{{Name: "a", Ty: IntTy}}, IntTy)
	two := b.Declare("two", Function, []Param{{Name: "a", Ty: IntTy}, {Name: "b", Ty: BoolTy}}, IntTy)
	none := b.Declare("none", Function, nil, IntTy)
	store := b.Build()
	pkg := store.Package(0)

	input := func(id ItemID) *Pat {
		decl, _ := store.Callable(id)
		return pkg.Pat(decl.Input)
	}
	assert.Equal(t, PatBind, input(one).Kind)
	assert.Equal(t, PatTuple, input(two).Kind)
	assert.Len(t, input(two).Elems, 2)
	assert.True(t, input(none).Ty.IsUnit())
}
