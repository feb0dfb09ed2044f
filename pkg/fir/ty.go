package fir

import (
	"strings"

	"github.com/pkg/errors"
)

// TyKind tags a type.
type TyKind uint8

const (
	TyPrim TyKind = iota
	TyTuple
	TyArray
	TyArrow
)

// Prim is a primitive type.
type Prim uint8

const (
	PrimInt Prim = iota
	PrimDouble
	PrimBool
	PrimResult
	PrimQubit
	PrimString
	PrimRange
)

var primNames = []string{"Int", "Double", "Bool", "Result", "Qubit", "String", "Range"}

func (p Prim) String() string { return enumName(primNames, uint8(p)) }

// Ty is a resolved type. Tuples keep their items in Elems, arrays their
// element at Elems[0] and arrows their input and output at Elems[0:2].
type Ty struct {
	Kind  TyKind
	Prim  Prim
	Elems []Ty
	Arrow CallableKind
}

var (
	IntTy    = Ty{Kind: TyPrim, Prim: PrimInt}
	DoubleTy = Ty{Kind: TyPrim, Prim: PrimDouble}
	BoolTy   = Ty{Kind: TyPrim, Prim: PrimBool}
	ResultTy = Ty{Kind: TyPrim, Prim: PrimResult}
	QubitTy  = Ty{Kind: TyPrim, Prim: PrimQubit}
	StringTy = Ty{Kind: TyPrim, Prim: PrimString}
	RangeTy  = Ty{Kind: TyPrim, Prim: PrimRange}
	UnitTy   = Ty{Kind: TyTuple}
)

// TupleOf builds a tuple type.
func TupleOf(elems ...Ty) Ty { return Ty{Kind: TyTuple, Elems: elems} }

// ArrayOf builds an array type.
func ArrayOf(elem Ty) Ty { return Ty{Kind: TyArray, Elems: []Ty{elem}} }

// ArrowOf builds a callable type.
func ArrowOf(kind CallableKind, in, out Ty) Ty {
	return Ty{Kind: TyArrow, Arrow: kind, Elems: []Ty{in, out}}
}

// IsUnit reports whether t is the empty tuple.
func (t Ty) IsUnit() bool { return t.Kind == TyTuple && len(t.Elems) == 0 }

// IsPrim reports whether t is the primitive p.
func (t Ty) IsPrim(p Prim) bool { return t.Kind == TyPrim && t.Prim == p }

// Elem returns the element type of an array.
func (t Ty) Elem() Ty {
	if t.Kind != TyArray {
		panic("element type requested for non-array type " + t.String())
	}
	return t.Elems[0]
}

// Equal compares two types structurally.
func (t Ty) Equal(o Ty) bool {
	if t.Kind != o.Kind || len(t.Elems) != len(o.Elems) {
		return false
	}
	switch t.Kind {
	case TyPrim:
		return t.Prim == o.Prim
	case TyArrow:
		if t.Arrow != o.Arrow {
			return false
		}
	}
	for i := range t.Elems {
		if !t.Elems[i].Equal(o.Elems[i]) {
			return false
		}
	}
	return true
}

// String renders the type in the syntax ParseTy accepts.
func (t Ty) String() string {
	switch t.Kind {
	case TyPrim:
		return t.Prim.String()
	case TyArray:
		return t.Elems[0].String() + "[]"
	case TyArrow:
		arrow := " -> "
		if t.Arrow == Operation {
			arrow = " => "
		}
		return "(" + t.Elems[0].String() + arrow + t.Elems[1].String() + ")"
	}
	switch len(t.Elems) {
	case 0:
		return "()"
	case 1:
		return "(" + t.Elems[0].String() + ",)"
	}
	parts := make([]string, len(t.Elems))
	for i, e := range t.Elems {
		parts[i] = e.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func (t Ty) MarshalYAML() (any, error) { return t.String(), nil }

func (t *Ty) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := ParseTy(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseTy parses a type such as "Int", "Qubit[]", "(Int, Bool)", "()" or
// "(Qubit => Unit)". "Unit" is accepted as an alias for "()".
func ParseTy(s string) (Ty, error) {
	p := &tyParser{src: s}
	t, err := p.ty()
	if err != nil {
		return Ty{}, errors.Wrapf(err, "parse type %q", s)
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return Ty{}, errors.Errorf("parse type %q: trailing input at %d", s, p.pos)
	}
	return t, nil
}

type tyParser struct {
	src string
	pos int
}

func (p *tyParser) skipSpace() {
	for p.pos < len(p.src) && p.src[p.pos] == ' ' {
		p.pos++
	}
}

func (p *tyParser) consume(tok string) bool {
	p.skipSpace()
	if strings.HasPrefix(p.src[p.pos:], tok) {
		p.pos += len(tok)
		return true
	}
	return false
}

func (p *tyParser) ty() (Ty, error) {
	t, err := p.primary()
	if err != nil {
		return Ty{}, err
	}
	for p.consume("[]") {
		t = ArrayOf(t)
	}
	return t, nil
}

func (p *tyParser) primary() (Ty, error) {
	if p.consume("(") {
		return p.group()
	}
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) && isIdentByte(p.src[p.pos]) {
		p.pos++
	}
	name := p.src[start:p.pos]
	if name == "Unit" {
		return UnitTy, nil
	}
	for i, n := range primNames {
		if n == name {
			return Ty{Kind: TyPrim, Prim: Prim(i)}, nil
		}
	}
	if name == "" {
		return Ty{}, errors.Errorf("expected type at %d", start)
	}
	return Ty{}, errors.Errorf("unknown type %q", name)
}

// group parses what follows an opening parenthesis.
func (p *tyParser) group() (Ty, error) {
	if p.consume(")") {
		return UnitTy, nil
	}
	first, err := p.ty()
	if err != nil {
		return Ty{}, err
	}
	for _, arrow := range []struct {
		tok  string
		kind CallableKind
	}{{"->", Function}, {"=>", Operation}} {
		if p.consume(arrow.tok) {
			out, err := p.ty()
			if err != nil {
				return Ty{}, err
			}
			if !p.consume(")") {
				return Ty{}, errors.Errorf("expected ')' at %d", p.pos)
			}
			return ArrowOf(arrow.kind, first, out), nil
		}
	}
	if p.consume(")") {
		return first, nil
	}
	elems := []Ty{first}
	for p.consume(",") {
		if p.consume(")") {
			return TupleOf(elems...), nil
		}
		next, err := p.ty()
		if err != nil {
			return Ty{}, err
		}
		elems = append(elems, next)
	}
	if !p.consume(")") {
		return Ty{}, errors.Errorf("expected ')' at %d", p.pos)
	}
	return TupleOf(elems...), nil
}

func isIdentByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}
