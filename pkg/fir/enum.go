package fir

import "github.com/pkg/errors"

// Enums are written as lower snake-case strings in tree files.

var (
	callableKindNames = []string{"function", "operation"}
	attrNames         = []string{"measurement", "reset"}
	stmtKindNames     = []string{"expr", "semi", "local"}
	patKindNames      = []string{"bind", "tuple", "discard"}
	computeKindNames  = []string{"classical", "quantum"}
	valueKindNames    = []string{"static", "dynamic"}
	litKindNames      = []string{"int", "double", "bool", "result"}
	unOpNames         = []string{"neg", "pos", "not_b", "not_l"}
	binOpNames        = []string{
		"add", "sub", "mul", "div", "mod", "exp",
		"and_b", "or_b", "xor_b", "shl", "shr",
		"and_l", "or_l",
		"eq", "neq", "lt", "lte", "gt", "gte",
	}
	exprKindNames = []string{
		"array", "array_repeat", "assign", "assign_op", "assign_index",
		"bin_op", "block", "call", "fail", "if", "index", "lit", "range",
		"return", "string", "tuple", "un_op", "update_index", "var",
		"while", "hole",
	}
)

func enumName(names []string, v uint8) string {
	if int(v) < len(names) {
		return names[v]
	}
	return "unknown"
}

func unmarshalEnum[T ~uint8](unmarshal func(any) error, names []string, what string, dst *T) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	for i, n := range names {
		if n == s {
			*dst = T(i)
			return nil
		}
	}
	return errors.Errorf("unknown %s %q", what, s)
}

func (k CallableKind) String() string            { return enumName(callableKindNames, uint8(k)) }
func (k CallableKind) MarshalYAML() (any, error) { return k.String(), nil }
func (k *CallableKind) UnmarshalYAML(unmarshal func(any) error) error {
	return unmarshalEnum(unmarshal, callableKindNames, "callable kind", k)
}

func (a Attr) String() string            { return enumName(attrNames, uint8(a)) }
func (a Attr) MarshalYAML() (any, error) { return a.String(), nil }
func (a *Attr) UnmarshalYAML(unmarshal func(any) error) error {
	return unmarshalEnum(unmarshal, attrNames, "attribute", a)
}

func (k StmtKind) String() string            { return enumName(stmtKindNames, uint8(k)) }
func (k StmtKind) MarshalYAML() (any, error) { return k.String(), nil }
func (k *StmtKind) UnmarshalYAML(unmarshal func(any) error) error {
	return unmarshalEnum(unmarshal, stmtKindNames, "statement kind", k)
}

func (k PatKind) String() string            { return enumName(patKindNames, uint8(k)) }
func (k PatKind) MarshalYAML() (any, error) { return k.String(), nil }
func (k *PatKind) UnmarshalYAML(unmarshal func(any) error) error {
	return unmarshalEnum(unmarshal, patKindNames, "pattern kind", k)
}

func (k ComputeKind) String() string            { return enumName(computeKindNames, uint8(k)) }
func (k ComputeKind) MarshalYAML() (any, error) { return k.String(), nil }
func (k *ComputeKind) UnmarshalYAML(unmarshal func(any) error) error {
	return unmarshalEnum(unmarshal, computeKindNames, "compute kind", k)
}

func (k ValueKind) String() string            { return enumName(valueKindNames, uint8(k)) }
func (k ValueKind) MarshalYAML() (any, error) { return k.String(), nil }
func (k *ValueKind) UnmarshalYAML(unmarshal func(any) error) error {
	return unmarshalEnum(unmarshal, valueKindNames, "value kind", k)
}

func (k LitKind) String() string            { return enumName(litKindNames, uint8(k)) }
func (k LitKind) MarshalYAML() (any, error) { return k.String(), nil }
func (k *LitKind) UnmarshalYAML(unmarshal func(any) error) error {
	return unmarshalEnum(unmarshal, litKindNames, "literal kind", k)
}

func (op UnOp) String() string            { return enumName(unOpNames, uint8(op)) }
func (op UnOp) MarshalYAML() (any, error) { return op.String(), nil }
func (op *UnOp) UnmarshalYAML(unmarshal func(any) error) error {
	return unmarshalEnum(unmarshal, unOpNames, "unary operator", op)
}

func (op BinOp) String() string            { return enumName(binOpNames, uint8(op)) }
func (op BinOp) MarshalYAML() (any, error) { return op.String(), nil }
func (op *BinOp) UnmarshalYAML(unmarshal func(any) error) error {
	return unmarshalEnum(unmarshal, binOpNames, "binary operator", op)
}

func (k ExprKind) String() string            { return enumName(exprKindNames, uint8(k)) }
func (k ExprKind) MarshalYAML() (any, error) { return k.String(), nil }
func (k *ExprKind) UnmarshalYAML(unmarshal func(any) error) error {
	return unmarshalEnum(unmarshal, exprKindNames, "expression kind", k)
}
