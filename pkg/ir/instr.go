package ir

import (
	"fmt"
	"strings"
)

// Instruction is a single IR operation. Build instructions with the New*
// constructors so they are type checked.
type Instruction interface {
	fmt.Stringer
	instr()
}

// BinOpKind names a binary instruction.
type BinOpKind uint8

const (
	Add BinOpKind = iota
	Sub
	Mul
	Sdiv
	Srem
	Shl
	Ashr
	Fadd
	Fsub
	Fmul
	Fdiv
	LogicalAnd
	LogicalOr
	BitwiseAnd
	BitwiseOr
	BitwiseXor
)

var binOpNames = [...]string{
	Add:        "Add",
	Sub:        "Sub",
	Mul:        "Mul",
	Sdiv:       "Sdiv",
	Srem:       "Srem",
	Shl:        "Shl",
	Ashr:       "Ashr",
	Fadd:       "Fadd",
	Fsub:       "Fsub",
	Fmul:       "Fmul",
	Fdiv:       "Fdiv",
	LogicalAnd: "LogicalAnd",
	LogicalOr:  "LogicalOr",
	BitwiseAnd: "BitwiseAnd",
	BitwiseOr:  "BitwiseOr",
	BitwiseXor: "BitwiseXor",
}

func (k BinOpKind) String() string { return binOpNames[k] }

// UnOpKind names a unary instruction.
type UnOpKind uint8

const (
	LogicalNot UnOpKind = iota
	BitwiseNot
)

func (k UnOpKind) String() string {
	if k == LogicalNot {
		return "LogicalNot"
	}
	return "BitwiseNot"
}

// ConditionCode is an integer comparison predicate.
type ConditionCode uint8

const (
	Eq ConditionCode = iota
	Ne
	Slt
	Sle
	Sgt
	Sge
)

func (c ConditionCode) String() string {
	return [...]string{"Eq", "Ne", "Slt", "Sle", "Sgt", "Sge"}[c]
}

// FcmpCondition is a floating point comparison predicate.
type FcmpCondition uint8

const (
	FcmpFalse FcmpCondition = iota
	FcmpOeq
	FcmpOgt
	FcmpOge
	FcmpOlt
	FcmpOle
	FcmpOne
	FcmpOrd
	FcmpUeq
	FcmpUgt
	FcmpUge
	FcmpUlt
	FcmpUle
	FcmpUne
	FcmpUno
	FcmpTrue
)

func (c FcmpCondition) String() string {
	return [...]string{
		"False", "Oeq", "Ogt", "Oge", "Olt", "Ole", "One", "Ord",
		"Ueq", "Ugt", "Uge", "Ult", "Ule", "Une", "Uno", "True",
	}[c]
}

// Store writes a value into a variable.
type Store struct {
	Value Operand
	Var   Variable
}

// Call invokes a callable. Var is nil for void calls.
type Call struct {
	Callee CallableID
	Args   []Operand
	Var    *Variable
}

// Jump transfers control unconditionally.
type Jump struct {
	Target BlockID
}

// Branch transfers control on a boolean variable.
type Branch struct {
	Cond    Variable
	IfTrue  BlockID
	IfFalse BlockID
}

// BinOp is a two-operand arithmetic, logical or bitwise instruction.
type BinOp struct {
	Op  BinOpKind
	LHS Operand
	RHS Operand
	Var Variable
}

// UnOp is a one-operand logical or bitwise instruction.
type UnOp struct {
	Op    UnOpKind
	Value Operand
	Var   Variable
}

// Icmp compares two integers or booleans.
type Icmp struct {
	Cond ConditionCode
	LHS  Operand
	RHS  Operand
	Var  Variable
}

// Fcmp compares two doubles.
type Fcmp struct {
	Cond FcmpCondition
	LHS  Operand
	RHS  Operand
	Var  Variable
}

// PhiArg is an incoming value and the predecessor it arrives from.
type PhiArg struct {
	Value Operand
	Block BlockID
}

// Phi selects a value by predecessor.
type Phi struct {
	Incoming []PhiArg
	Var      Variable
}

// Return ends the entry callable.
type Return struct{}

func (*Store) instr()  {}
func (*Call) instr()   {}
func (*Jump) instr()   {}
func (*Branch) instr() {}
func (*BinOp) instr()  {}
func (*UnOp) instr()   {}
func (*Icmp) instr()   {}
func (*Fcmp) instr()   {}
func (*Phi) instr()    {}
func (*Return) instr() {}

// IsTerminator reports whether instr ends a block.
func IsTerminator(instr Instruction) bool {
	switch instr.(type) {
	case *Jump, *Branch, *Return:
		return true
	}
	return false
}

// NewStore builds a Store.
func NewStore(value Operand, v Variable) *Store {
	assertSameType("store", value.Type(), v.Ty)
	return &Store{Value: value, Var: v}
}

// NewCall builds a Call. out may be nil.
func NewCall(callee CallableID, args []Operand, out *Variable) *Call {
	return &Call{Callee: callee, Args: args, Var: out}
}

// NewJump builds a Jump.
func NewJump(target BlockID) *Jump {
	return &Jump{Target: target}
}

// NewBranch builds a Branch.
func NewBranch(cond Variable, ifTrue, ifFalse BlockID) *Branch {
	if cond.Ty != TyBoolean {
		panic(fmt.Sprintf("unsupported type %s for branch condition", cond.Ty.QIRName()))
	}
	return &Branch{Cond: cond, IfTrue: ifTrue, IfFalse: ifFalse}
}

// NewBinOp builds a binary instruction, checking operand and output types.
func NewBinOp(op BinOpKind, lhs, rhs Operand, v Variable) *BinOp {
	switch op {
	case Add, Sub, Mul, Sdiv, Srem, Shl, Ashr:
		assertBinaryTypes(op.qirName(), lhs.Type(), rhs.Type(), v.Ty, TyInteger)
	case BitwiseAnd, BitwiseOr, BitwiseXor:
		assertBinaryTypes(op.qirName(), lhs.Type(), rhs.Type(), v.Ty, TyInteger)
	case Fadd, Fsub, Fmul, Fdiv:
		assertBinaryTypes(op.qirName(), lhs.Type(), rhs.Type(), v.Ty, TyDouble)
	case LogicalAnd, LogicalOr:
		assertBinaryTypes(op.qirName(), lhs.Type(), rhs.Type(), v.Ty, TyBoolean)
	}
	return &BinOp{Op: op, LHS: lhs, RHS: rhs, Var: v}
}

// NewUnOp builds a unary instruction.
func NewUnOp(op UnOpKind, value Operand, v Variable) *UnOp {
	want := TyBoolean
	if op == BitwiseNot {
		want = TyInteger
	}
	assertUnaryTypes("not", value.Type(), v.Ty, want)
	return &UnOp{Op: op, Value: value, Var: v}
}

// NewIcmp builds an integer comparison.
func NewIcmp(cond ConditionCode, lhs, rhs Operand, v Variable) *Icmp {
	name := "icmp " + strings.ToLower(cond.String())
	assertSameInputs(name, lhs.Type(), rhs.Type())
	if lhs.Type() != TyInteger && lhs.Type() != TyBoolean {
		panic(fmt.Sprintf("unsupported type %s for %s", lhs.Type().QIRName(), name))
	}
	assertComparisonOutput("icmp", v.Ty)
	return &Icmp{Cond: cond, LHS: lhs, RHS: rhs, Var: v}
}

// NewFcmp builds a floating point comparison.
func NewFcmp(cond FcmpCondition, lhs, rhs Operand, v Variable) *Fcmp {
	name := "fcmp " + strings.ToLower(cond.String())
	assertSameInputs(name, lhs.Type(), rhs.Type())
	if lhs.Type() != TyDouble {
		panic(fmt.Sprintf("unsupported type %s for %s", lhs.Type().QIRName(), name))
	}
	assertComparisonOutput("fcmp", v.Ty)
	return &Fcmp{Cond: cond, LHS: lhs, RHS: rhs, Var: v}
}

// NewPhi builds a Phi.
func NewPhi(incoming []PhiArg, v Variable) *Phi {
	assertPhiTypes(incoming, v.Ty)
	return &Phi{Incoming: incoming, Var: v}
}

func (op BinOpKind) qirName() string {
	switch op {
	case LogicalAnd, BitwiseAnd:
		return "and"
	case LogicalOr, BitwiseOr:
		return "or"
	case BitwiseXor:
		return "xor"
	}
	return strings.ToLower(op.String())
}

func (s *Store) String() string {
	return fmt.Sprintf("%s = Store %s", s.Var, s.Value)
}

func (c *Call) String() string {
	var sb strings.Builder
	if c.Var != nil {
		fmt.Fprintf(&sb, "%s = ", *c.Var)
	}
	fmt.Fprintf(&sb, "Call id(%d), args( ", c.Callee)
	for _, arg := range c.Args {
		fmt.Fprintf(&sb, "%s, ", arg)
	}
	sb.WriteString(")")
	return sb.String()
}

func (j *Jump) String() string {
	return fmt.Sprintf("Jump(%d)", j.Target)
}

func (b *Branch) String() string {
	return fmt.Sprintf("Branch %s, %d, %d", b.Cond, b.IfTrue, b.IfFalse)
}

func (b *BinOp) String() string {
	return fmt.Sprintf("%s = %s %s, %s", b.Var, b.Op, b.LHS, b.RHS)
}

func (u *UnOp) String() string {
	return fmt.Sprintf("%s = %s %s", u.Var, u.Op, u.Value)
}

func (c *Icmp) String() string {
	return fmt.Sprintf("%s = Icmp %s, %s, %s", c.Var, c.Cond, c.LHS, c.RHS)
}

func (c *Fcmp) String() string {
	return fmt.Sprintf("%s = Fcmp %s, %s, %s", c.Var, c.Cond, c.LHS, c.RHS)
}

func (p *Phi) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s = Phi ( ", p.Var)
	for _, arg := range p.Incoming {
		fmt.Fprintf(&sb, "[%s, %d], ", arg.Value, arg.Block)
	}
	sb.WriteString(")")
	return sb.String()
}

func (*Return) String() string { return "Return" }
