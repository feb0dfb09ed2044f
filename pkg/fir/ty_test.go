package fir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTy(t *testing.T) {
	tests := []struct {
		src  string
		want Ty
		text string
	}{
		{"Int", IntTy, "Int"},
		{"Qubit[]", ArrayOf(QubitTy), "Qubit[]"},
		{"Result[][]", ArrayOf(ArrayOf(ResultTy)), "Result[][]"},
		{"()", UnitTy, "()"},
		{"Unit", UnitTy, "()"},
		{"(Int, Bool)", TupleOf(IntTy, BoolTy), "(Int, Bool)"},
		{"(Double,)", TupleOf(DoubleTy), "(Double,)"},
		{"(Int)", IntTy, "Int"},
		{"(Qubit => ())", ArrowOf(Operation, QubitTy, UnitTy), "(Qubit => ())"},
		{"((Int, Int) -> Int)", ArrowOf(Function, TupleOf(IntTy, IntTy), IntTy), "((Int, Int) -> Int)"},
		{"(Int, Qubit[])[]", ArrayOf(TupleOf(IntTy, ArrayOf(QubitTy))), "(Int, Qubit[])[]"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got, err := ParseTy(tt.src)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
			assert.Equal(t, tt.text, got.String())
		})
	}
}

func TestParseTyErrors(t *testing.T) {
	for _, src := range []string{"", "Float", "(Int", "Int]", "(Int, Bool"} {
		t.Run(src, func(t *testing.T) {
			_, err := ParseTy(src)
			assert.Error(t, err)
		})
	}
}

func TestTyPredicates(t *testing.T) {
	assert.True(t, UnitTy.IsUnit())
	assert.False(t, TupleOf(IntTy).IsUnit())
	assert.True(t, IntTy.IsPrim(PrimInt))
	assert.False(t, ArrayOf(IntTy).IsPrim(PrimInt))
	assert.True(t, ArrayOf(BoolTy).Elem().Equal(BoolTy))
	assert.Panics(t, func() { IntTy.Elem() })
	assert.False(t, ArrowOf(Function, IntTy, IntTy).Equal(ArrowOf(Operation, IntTy, IntTy)))
}
