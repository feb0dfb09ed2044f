package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLiteralString(t *testing.T) {
	tests := []struct {
		lit  Literal
		want string
	}{
		{Qubit(3), "Qubit(3)"},
		{Result(0), "Result(0)"},
		{Bool(true), "Bool(true)"},
		{Integer(-4), "Integer(-4)"},
		{Double(1.0), "Double(1)"},
		{Double(1.5), "Double(1.5)"},
		{Pointer(), "Pointer"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.lit.String())
		})
	}
}

func TestInstructionString(t *testing.T) {
	out := intVar(2)
	tests := []struct {
		instr Instruction
		want  string
	}{
		{NewStore(Lit(Integer(1)), intVar(0)), "Variable(0, Integer) = Store Integer(1)"},
		{NewCall(1, []Operand{Lit(Qubit(0))}, nil), "Call id(1), args( Qubit(0), )"},
		{NewCall(3, []Operand{Lit(Result(0))}, &Variable{ID: 1, Ty: TyBoolean}), "Variable(1, Boolean) = Call id(3), args( Result(0), )"},
		{NewCall(4, nil, nil), "Call id(4), args( )"},
		{NewBinOp(Add, Var(intVar(0)), Lit(Integer(1)), out), "Variable(2, Integer) = Add Variable(0, Integer), Integer(1)"},
		{NewUnOp(LogicalNot, Var(boolVar(0)), boolVar(1)), "Variable(1, Boolean) = LogicalNot Variable(0, Boolean)"},
		{NewIcmp(Sle, Var(intVar(0)), Lit(Integer(3)), boolVar(1)), "Variable(1, Boolean) = Icmp Sle, Variable(0, Integer), Integer(3)"},
		{NewFcmp(FcmpOgt, Var(doubleVar(0)), Lit(Double(0.5)), boolVar(1)), "Variable(1, Boolean) = Fcmp Ogt, Variable(0, Double), Double(0.5)"},
		{NewBranch(boolVar(0), 2, 3), "Branch Variable(0, Boolean), 2, 3"},
		{NewJump(1), "Jump(1)"},
		{NewPhi([]PhiArg{{Lit(Integer(1)), 1}, {Lit(Integer(2)), 2}}, intVar(3)), "Variable(3, Integer) = Phi ( [Integer(1), 1], [Integer(2), 2], )"},
		{&Return{}, "Return"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.instr.String())
		})
	}
}

func TestBlockString(t *testing.T) {
	var b Block
	assert.Equal(t, "Block: <EMPTY>", b.String())

	b.Append(NewStore(Lit(Integer(1)), intVar(0)), nil)
	b.Append(NewCall(1, []Operand{Lit(Qubit(0))}, nil), nil)
	b.Append(&Return{}, nil)
	assert.Equal(t, `Block:
    Variable(0, Integer) = Store Integer(1)
    Call id(1), args( Qubit(0), )
    Return`, b.String())
}

func TestBlockStringWithMetadata(t *testing.T) {
	iter := 2
	var b Block
	b.Append(NewCall(1, []Operand{Lit(Qubit(0))}, nil), &Metadata{Package: 2, Lo: 10, Hi: 15, Iteration: &iter, Callable: "Main"})
	b.Append(&Return{}, nil)
	assert.Equal(t, `Block:
    Call id(1), args( Qubit(0), ) !dbg package_id=2 span=[10-15] discriminator=2 callable=Main
    Return`, b.StringWithMetadata())
}

func TestBlockSuccessors(t *testing.T) {
	var b Block
	assert.Nil(t, b.Successors())

	b.Append(NewBranch(boolVar(0), 1, 2), nil)
	assert.Equal(t, []BlockID{1, 2}, b.Successors())

	var j Block
	j.Append(NewJump(4), nil)
	assert.Equal(t, []BlockID{4}, j.Successors())

	var r Block
	r.Append(&Return{}, nil)
	term, ok := r.Terminator()
	require.True(t, ok)
	assert.IsType(t, &Return{}, term)
	assert.Empty(t, r.Successors())
}

func TestProgramString(t *testing.T) {
	b := NewBuilder(Config{Capabilities: Base})
	entryBlock := b.NewBlock()
	entry := b.Intern(EntryDecl(entryBlock))
	h := b.Intern(intrinsic("__quantum__qis__h__body", Regular, nil, TyQubit))
	b.Emit(entryBlock, NewCall(h, []Operand{Lit(Qubit(0))}, nil), nil)
	b.Emit(entryBlock, &Return{}, nil)
	p := b.Finish(entry, 1, 0)

	assert.Equal(t, `Program:
    entry: 0
    callables:
        Callable 0: Callable:
            name: main
            call_type: Regular
            input_type: <VOID>
            output_type: Integer
            body: 0
        Callable 1: Callable:
            name: __quantum__qis__h__body
            call_type: Regular
            input_type:
                [0]: Qubit
            output_type: <VOID>
            body: <NONE>
    blocks:
        Block 0: Block:
            Call id(1), args( Qubit(0), )
            Return
    config: Config:
        capabilities: Base
    num_qubits: 1
    num_results: 0`, p.String())
}

func TestBuilderInternsByName(t *testing.T) {
	b := NewBuilder(Config{Capabilities: Adaptive})
	first := b.Intern(MDecl())
	second := b.Intern(MDecl())
	third := b.Intern(ResetDecl())

	assert.Equal(t, first, second)
	assert.Equal(t, CallableID(1), third)
	assert.Equal(t, 2, b.Program().Callables.Len())

	v0 := b.NewVariable(TyInteger)
	v1 := b.NewVariable(TyBoolean)
	assert.Equal(t, VariableID(0), v0.ID)
	assert.Equal(t, VariableID(1), v1.ID)
}

func TestCapabilitiesString(t *testing.T) {
	assert.Equal(t, "Base", Base.String())
	assert.Equal(t, "ForwardBranching | IntegerComputations | FloatingPointComputations", Adaptive.String())
	assert.True(t, Adaptive.Has(IntegerComputations))
	assert.False(t, ForwardBranching.Has(IntegerComputations))
}

func TestOperandAccessors(t *testing.T) {
	o := Lit(Integer(5))
	l, ok := o.Literal()
	require.True(t, ok)
	assert.Equal(t, Integer(5), l)
	_, ok = o.Variable()
	assert.False(t, ok)

	v := Var(boolVar(7))
	assert.Equal(t, TyBoolean, v.Type())
	assert.False(t, v.IsLiteral())
}
