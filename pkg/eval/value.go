// Package eval - Classical interpreter for statically known subprograms
// Design: Tree-walking evaluation over frame-scoped environments, explicit
// control-flow results instead of panics for early return
package eval

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/GriffinCanCode/qirc/pkg/fir"
)

// Value is a runtime value.
type Value interface {
	fmt.Stringer
	value()
}

type (
	Int       int64
	Double    float64
	Bool      bool
	String    string
	ResultVal bool
	ResultID  uint32
	Array     []Value
	Tuple     []Value
)

// Range is an inclusive stepped range.
type Range struct {
	Start, Step, End int64
}

// Qubit is a handle to an allocated qubit. Handles are shared so release is
// visible through every copy.
type Qubit struct {
	ID       uint32
	Released bool
}

// Global refers to a callable item.
type Global struct {
	Item fir.ItemID
}

// VarTy is the type of a dynamic variable.
type VarTy uint8

const (
	VarBool VarTy = iota
	VarInt
	VarDouble
)

func (t VarTy) String() string {
	switch t {
	case VarBool:
		return "Bool"
	case VarInt:
		return "Int"
	}
	return "Double"
}

// Var is a value only known at run time, held in an IR variable.
type Var struct {
	ID uint32
	Ty VarTy
}

func (Int) value()       {}
func (Double) value()    {}
func (Bool) value()      {}
func (String) value()    {}
func (ResultVal) value() {}
func (ResultID) value()  {}
func (Array) value()     {}
func (Tuple) value()     {}
func (Range) value()     {}
func (*Qubit) value()    {}
func (Global) value()    {}
func (Var) value()       {}

func (v Int) String() string    { return strconv.FormatInt(int64(v), 10) }
func (v Double) String() string { return strconv.FormatFloat(float64(v), 'f', -1, 64) }
func (v Bool) String() string   { return strconv.FormatBool(bool(v)) }
func (v String) String() string { return string(v) }

func (v ResultVal) String() string {
	if v {
		return "One"
	}
	return "Zero"
}

func (v ResultID) String() string { return fmt.Sprintf("Result(%d)", uint32(v)) }
func (v Range) String() string    { return fmt.Sprintf("%d..%d..%d", v.Start, v.Step, v.End) }
func (v *Qubit) String() string   { return fmt.Sprintf("Qubit%d", v.ID) }
func (v Global) String() string   { return v.Item.String() }
func (v Var) String() string      { return fmt.Sprintf("Var(%d, %s)", v.ID, v.Ty) }

func (v Array) String() string { return "[" + joinValues(v) + "]" }

func (v Tuple) String() string {
	if len(v) == 1 {
		return "(" + v[0].String() + ",)"
	}
	return "(" + joinValues(v) + ")"
}

func joinValues(vs []Value) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = v.String()
	}
	return strings.Join(parts, ", ")
}

// Unit is the empty tuple.
func Unit() Value { return Tuple(nil) }

// IsUnit reports whether v is the empty tuple.
func IsUnit(v Value) bool {
	t, ok := v.(Tuple)
	return ok && len(t) == 0
}

// Len returns the number of elements the range yields.
func (v Range) Len() int64 {
	if v.Step == 0 {
		return 0
	}
	n := (v.End-v.Start)/v.Step + 1
	if n < 0 {
		return 0
	}
	return n
}

// At returns the i-th element of the range.
func (v Range) At(i int64) int64 { return v.Start + i*v.Step }

// Qubits collects every qubit handle in v, depth first.
func Qubits(v Value) []*Qubit {
	var out []*Qubit
	var walk func(Value)
	walk = func(v Value) {
		switch v := v.(type) {
		case *Qubit:
			out = append(out, v)
		case Array:
			for _, e := range v {
				walk(e)
			}
		case Tuple:
			for _, e := range v {
				walk(e)
			}
		}
	}
	walk(v)
	return out
}

// Equal compares two classical values.
func Equal(a, b Value) bool {
	switch a := a.(type) {
	case Array:
		b, ok := b.(Array)
		return ok && equalSlices(a, b)
	case Tuple:
		b, ok := b.(Tuple)
		return ok && equalSlices(a, b)
	}
	return a == b
}

func equalSlices(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}
