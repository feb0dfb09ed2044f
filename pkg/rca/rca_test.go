package rca

import (
	"testing"

	"github.com/GriffinCanCode/qirc/pkg/fir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kinds(store *fir.Store, id fir.ExprID) (fir.ComputeKind, fir.ValueKind) {
	e := store.Package(0).Expr(id)
	return e.Compute, e.Value
}

func TestClassicalArithmeticStaysClassical(t *testing.T) {
	b := fir.NewBuilder()
	var sum fir.ExprID
	main := b.Callable("Main", fir.Function, nil, fir.IntTy, func(f *fir.Fn) {
		x := f.Let("x", f.Int(1))
		sum = f.BinOp(fir.Add, f.Var(x), f.Int(2))
		f.Expr(sum)
	})
	b.Entry(main)
	store := b.Build()

	Analyze(store)
	c, v := kinds(store, sum)
	assert.Equal(t, fir.Classical, c)
	assert.Equal(t, fir.Static, v)
	assert.True(t, store.Annotated)
}

func TestMeasurementIsDynamic(t *testing.T) {
	b := fir.NewBuilder()
	h := b.Gate("H", 1)
	var gate, measure, cmp, alloc fir.ExprID
	main := b.Callable("Main", fir.Operation, nil, fir.BoolTy, func(f *fir.Fn) {
		alloc = f.Call(f.Intrinsic(fir.QubitAllocateName, fir.Operation, nil, fir.QubitTy))
		q := f.Let("q", alloc)
		gate = f.Call(h, f.Var(q))
		f.Semi(gate)
		measure = f.Call(f.M(), f.Var(q))
		r := f.Let("r", measure)
		cmp = f.BinOp(fir.Eq, f.Var(r), f.ResultLit(true))
		f.Expr(cmp)
	})
	b.Entry(main)
	store := b.Build()
	Analyze(store)

	tests := []struct {
		name    string
		expr    fir.ExprID
		compute fir.ComputeKind
		value   fir.ValueKind
	}{
		{"allocation", alloc, fir.Quantum, fir.Static},
		{"gate", gate, fir.Quantum, fir.Static},
		{"measurement", measure, fir.Quantum, fir.Dynamic},
		{"comparison", cmp, fir.Quantum, fir.Dynamic},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, v := kinds(store, tt.expr)
			assert.Equal(t, tt.compute, c)
			assert.Equal(t, tt.value, v)
		})
	}
}

func TestAssignmentUnderDynamicControl(t *testing.T) {
	b := fir.NewBuilder()
	var read, loopCond fir.ExprID
	main := b.Callable("Main", fir.Operation, nil, fir.IntTy, func(f *fir.Fn) {
		q := f.Use("q")
		count := f.Mutable("count", f.Int(0))
		f.For("i", 1, 3, func(g *fir.Fn, _ fir.Local) {
			r := g.Let("r", g.Call(g.M(), g.Var(q)))
			g.Semi(g.If(g.BinOp(fir.Eq, g.Var(r), g.ResultLit(true)), func(h *fir.Fn) {
				h.SetOp(fir.Add, count, h.Int(1))
			}, nil))
		})
		read = f.Var(count)
		f.Expr(read)
	})
	b.Entry(main)
	store := b.Build()
	Analyze(store)

	c, v := kinds(store, read)
	assert.Equal(t, fir.Quantum, c)
	assert.Equal(t, fir.Dynamic, v)

	// the loop counter is never written under dynamic control
	pkg := store.Package(0)
	for _, e := range pkg.Exprs {
		if e.Kind == fir.ExprWhile {
			loopCond = e.Exprs[0]
		}
	}
	c, v = kinds(store, loopCond)
	assert.Equal(t, fir.Classical, c)
	assert.Equal(t, fir.Static, v)
}

func TestDynamicParameterPropagates(t *testing.T) {
	b := fir.NewBuilder()
	var body fir.ExprID
	double := b.Callable("Double", fir.Function, []fir.Param{{Name: "b", Ty: fir.BoolTy}}, fir.BoolTy, func(f *fir.Fn) {
		body = f.UnOp(fir.NotL, f.Var(f.Param(0)))
		f.Expr(body)
	})
	var call fir.ExprID
	main := b.Callable("Main", fir.Operation, nil, fir.BoolTy, func(f *fir.Fn) {
		q := f.Use("q")
		r := f.Let("r", f.Call(f.M(), f.Var(q)))
		call = f.Call(double, f.BinOp(fir.Eq, f.Var(r), f.ResultLit(false)))
		f.Expr(call)
	})
	b.Entry(main)
	store := b.Build()
	Analyze(store)

	_, v := kinds(store, body)
	assert.Equal(t, fir.Dynamic, v)
	c, v := kinds(store, call)
	assert.Equal(t, fir.Quantum, c)
	assert.Equal(t, fir.Dynamic, v)
}

func TestTupleArgumentsMarkedElementWise(t *testing.T) {
	b := fir.NewBuilder()
	var first, second fir.ExprID
	pick := b.Callable("Pick", fir.Function, []fir.Param{{Name: "a", Ty: fir.IntTy}, {Name: "b", Ty: fir.ResultTy}}, fir.IntTy, func(f *fir.Fn) {
		first = f.Var(f.Param(0))
		second = f.Var(f.Param(1))
		f.Semi(second)
		f.Expr(first)
	})
	main := b.Callable("Main", fir.Operation, nil, fir.IntTy, func(f *fir.Fn) {
		q := f.Use("q")
		f.Expr(f.Call(pick, f.Int(1), f.Call(f.M(), f.Var(q))))
	})
	b.Entry(main)
	store := b.Build()
	Analyze(store)

	_, v := kinds(store, first)
	assert.Equal(t, fir.Static, v)
	_, v = kinds(store, second)
	assert.Equal(t, fir.Dynamic, v)
}

func TestFunctionCallingOperationIsQuantum(t *testing.T) {
	b := fir.NewBuilder()
	x := b.Gate("X", 1)
	helper := b.Callable("Helper", fir.Function, []fir.Param{{Name: "q", Ty: fir.QubitTy}}, fir.UnitTy, func(f *fir.Fn) {
		f.Semi(f.Call(x, f.Var(f.Param(0))))
	})
	var call fir.ExprID
	main := b.Callable("Main", fir.Operation, nil, fir.UnitTy, func(f *fir.Fn) {
		q := f.Use("q")
		call = f.Call(helper, f.Var(q))
		f.Semi(call)
	})
	b.Entry(main)
	store := b.Build()
	Analyze(store)

	c, _ := kinds(store, call)
	assert.Equal(t, fir.Quantum, c)
}

func TestAnnotatedStoreIsUntouched(t *testing.T) {
	b := fir.NewBuilder()
	var lit fir.ExprID
	b.Callable("Main", fir.Function, nil, fir.IntTy, func(f *fir.Fn) {
		lit = f.Int(3)
		f.Expr(lit)
	})
	store := b.Build()
	store.Annotated = true
	store.Package(0).Expr(lit).Compute = fir.Quantum

	Analyze(store)
	c, _ := kinds(store, lit)
	require.Equal(t, fir.Quantum, c)
}
