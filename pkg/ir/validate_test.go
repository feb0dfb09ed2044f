package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func intVar(id VariableID) Variable    { return Variable{ID: id, Ty: TyInteger} }
func boolVar(id VariableID) Variable   { return Variable{ID: id, Ty: TyBoolean} }
func doubleVar(id VariableID) Variable { return Variable{ID: id, Ty: TyDouble} }

func TestAddMismatchedInputs(t *testing.T) {
	assert.PanicsWithValue(t, "mismatched input types (i64, f64) for add", func() {
		NewBinOp(Add, Lit(Integer(2)), Lit(Double(1.0)), intVar(0))
	})
}

func TestPhiMismatchedTypes(t *testing.T) {
	assert.PanicsWithValue(t, "mismatched types (i64 [... i1]) for phi", func() {
		NewPhi([]PhiArg{
			{Value: Lit(Integer(1)), Block: 1},
			{Value: Lit(Bool(true)), Block: 2},
		}, intVar(0))
	})
}

func TestPhiWithoutIncoming(t *testing.T) {
	assert.Panics(t, func() { NewPhi(nil, intVar(0)) })
}

func TestBinOpValidation(t *testing.T) {
	tests := []struct {
		name    string
		op      BinOpKind
		lhs     Operand
		rhs     Operand
		out     Variable
		wantMsg string
	}{
		{"add ok", Add, Lit(Integer(1)), Var(intVar(1)), intVar(2), ""},
		{"sdiv ok", Sdiv, Var(intVar(1)), Lit(Integer(3)), intVar(2), ""},
		{"fmul ok", Fmul, Var(doubleVar(1)), Lit(Double(-1)), doubleVar(2), ""},
		{"and ok", LogicalAnd, Var(boolVar(1)), Lit(Bool(true)), boolVar(2), ""},
		{"xor ok", BitwiseXor, Var(intVar(1)), Lit(Integer(7)), intVar(2), ""},
		{"output mismatch", Add, Lit(Integer(1)), Lit(Integer(2)), doubleVar(0), "mismatched input/output types (i64, f64) for add"},
		{"bool add", Add, Lit(Bool(true)), Lit(Bool(false)), boolVar(0), "unsupported type i1 for add"},
		{"int fadd", Fadd, Lit(Integer(1)), Lit(Integer(2)), intVar(0), "unsupported type i64 for fadd"},
		{"int logical and", LogicalAnd, Lit(Integer(1)), Lit(Integer(2)), intVar(0), "unsupported type i64 for and"},
		{"double bitwise or", BitwiseOr, Lit(Double(1)), Lit(Double(2)), doubleVar(0), "unsupported type f64 for or"},
		{"shl mismatch", Shl, Lit(Integer(1)), Lit(Bool(true)), intVar(0), "mismatched input types (i64, i1) for shl"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			build := func() { NewBinOp(tt.op, tt.lhs, tt.rhs, tt.out) }
			if tt.wantMsg == "" {
				assert.NotPanics(t, build)
				return
			}
			assert.PanicsWithValue(t, tt.wantMsg, build)
		})
	}
}

// Construction fails exactly when the operand types differ from each other or
// from the output type, for every integer operation.
func TestIntegerBinOpFailsOnlyOnMismatch(t *testing.T) {
	types := []Ty{TyInteger, TyDouble, TyBoolean}
	operand := map[Ty]Operand{
		TyInteger: Lit(Integer(3)),
		TyDouble:  Lit(Double(3)),
		TyBoolean: Lit(Bool(true)),
	}
	for _, op := range []BinOpKind{Add, Sub, Mul, Sdiv, Srem, Shl, Ashr} {
		for _, l := range types {
			for _, r := range types {
				for _, o := range types {
					build := func() { NewBinOp(op, operand[l], operand[r], Variable{ID: 9, Ty: o}) }
					if l == TyInteger && r == TyInteger && o == TyInteger {
						assert.NotPanics(t, build, "%s %s %s -> %s", op, l, r, o)
					} else {
						assert.Panics(t, build, "%s %s %s -> %s", op, l, r, o)
					}
				}
			}
		}
	}
}

func TestUnOpValidation(t *testing.T) {
	assert.NotPanics(t, func() { NewUnOp(LogicalNot, Var(boolVar(0)), boolVar(1)) })
	assert.NotPanics(t, func() { NewUnOp(BitwiseNot, Var(intVar(0)), intVar(1)) })
	assert.PanicsWithValue(t, "mismatched input/output types (i1, i64) for not", func() {
		NewUnOp(LogicalNot, Var(boolVar(0)), intVar(1))
	})
	assert.PanicsWithValue(t, "unsupported type i64 for not", func() {
		NewUnOp(LogicalNot, Var(intVar(0)), intVar(1))
	})
}

func TestComparisonValidation(t *testing.T) {
	assert.NotPanics(t, func() { NewIcmp(Slt, Var(intVar(0)), Lit(Integer(3)), boolVar(1)) })
	assert.NotPanics(t, func() { NewIcmp(Eq, Var(boolVar(0)), Lit(Bool(true)), boolVar(1)) })
	assert.PanicsWithValue(t, "mismatched input types (i64, f64) for icmp sge", func() {
		NewIcmp(Sge, Var(intVar(0)), Lit(Double(1)), boolVar(1))
	})
	assert.PanicsWithValue(t, "unsupported output type i64 for icmp", func() {
		NewIcmp(Eq, Var(intVar(0)), Lit(Integer(1)), intVar(1))
	})
	assert.PanicsWithValue(t, "mismatched input types (f64, i64) for fcmp olt", func() {
		NewFcmp(FcmpOlt, Var(doubleVar(0)), Lit(Integer(1)), boolVar(1))
	})
}

func TestStoreAndBranchValidation(t *testing.T) {
	assert.PanicsWithValue(t, "mismatched input/output types (i1, i64) for store", func() {
		NewStore(Lit(Bool(true)), intVar(0))
	})
	assert.PanicsWithValue(t, "unsupported type i64 for branch condition", func() {
		NewBranch(intVar(0), 1, 2)
	})
}

func TestCheckTypesCatchesHandBuiltInstructions(t *testing.T) {
	p := NewProgram()
	p.Callables.Insert(0, EntryDecl(0))
	p.Blocks.Insert(0, &Block{})
	p.Block(0).Append(&BinOp{Op: Add, LHS: Lit(Integer(1)), RHS: Lit(Double(2)), Var: intVar(0)}, nil)
	p.Block(0).Append(&Return{}, nil)

	assert.PanicsWithValue(t, "mismatched input types (i64, f64) for add", func() { CheckTypes(p) })
}

func TestCheckTypesCallArguments(t *testing.T) {
	p := NewProgram()
	p.Callables.Insert(0, EntryDecl(0))
	p.Callables.Insert(1, MDecl())
	p.Blocks.Insert(0, &Block{})
	p.Block(0).Append(NewCall(1, []Operand{Lit(Qubit(0)), Lit(Qubit(1))}, nil), nil)

	assert.PanicsWithValue(t,
		"mismatched argument types (%Qubit*, %Result*) for call to __quantum__qis__m__body",
		func() { CheckTypes(p) })
}
