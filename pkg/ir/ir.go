// Package ir implements the compiled circuit representation.
//
// Design: Flat callables and blocks in id-indexed tables, typed variables,
// explicit control flow. Instructions are validated when constructed.
package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// BlockID identifies a block in a program.
type BlockID uint32

// CallableID identifies a callable in a program.
type CallableID uint32

// VariableID identifies a variable in a program.
type VariableID uint32

// Program is the top-level IR container
type Program struct {
	Entry      CallableID
	Callables  *Table[CallableID, *Callable]
	Blocks     *Table[BlockID, *Block]
	Config     Config
	NumQubits  uint32
	NumResults uint32
}

// NewProgram returns an empty program.
func NewProgram() *Program {
	return &Program{
		Callables: NewTable[CallableID, *Callable](),
		Blocks:    NewTable[BlockID, *Block](),
	}
}

// Callable returns the callable with the given id. It panics if it is missing.
func (p *Program) Callable(id CallableID) *Callable {
	c, ok := p.Callables.Get(id)
	if !ok {
		panic(fmt.Sprintf("callable %d should be present", id))
	}
	return c
}

// Block returns the block with the given id. It panics if it is missing.
func (p *Program) Block(id BlockID) *Block {
	b, ok := p.Blocks.Get(id)
	if !ok {
		panic(fmt.Sprintf("block %d should be present", id))
	}
	return b
}

// FindCallable looks a callable up by name.
func (p *Program) FindCallable(name string) (CallableID, bool) {
	for id, c := range p.Callables.All() {
		if c.Name == name {
			return id, true
		}
	}
	return 0, false
}

// EntryBlock returns the body block of the entry callable.
func (p *Program) EntryBlock() BlockID {
	c := p.Callable(p.Entry)
	if c.Body == nil {
		panic("entry callable should have a body")
	}
	return *c.Body
}

// CallableType classifies how a callable behaves on the target.
type CallableType uint8

const (
	Regular CallableType = iota
	Measurement
	Readout
	Reset
	OutputRecording
)

func (t CallableType) String() string {
	switch t {
	case Measurement:
		return "Measurement"
	case Readout:
		return "Readout"
	case Reset:
		return "Reset"
	case OutputRecording:
		return "OutputRecording"
	default:
		return "Regular"
	}
}

// Callable is an intrinsic declaration or, for the entry point, a callable
// with a body.
type Callable struct {
	Name       string
	InputTypes []Ty
	OutputType *Ty
	Body       *BlockID // nil for intrinsics
	CallType   CallableType
}

// Capabilities is the set of runtime features the target supports.
type Capabilities uint8

const (
	ForwardBranching Capabilities = 1 << iota
	IntegerComputations
	FloatingPointComputations

	Base     Capabilities = 0
	Adaptive              = ForwardBranching | IntegerComputations | FloatingPointComputations
)

// Has reports whether every flag in c2 is set.
func (c Capabilities) Has(c2 Capabilities) bool {
	return c&c2 == c2
}

func (c Capabilities) String() string {
	if c == Base {
		return "Base"
	}
	var names []string
	if c.Has(ForwardBranching) {
		names = append(names, "ForwardBranching")
	}
	if c.Has(IntegerComputations) {
		names = append(names, "IntegerComputations")
	}
	if c.Has(FloatingPointComputations) {
		names = append(names, "FloatingPointComputations")
	}
	return strings.Join(names, " | ")
}

// Config carries target settings the program was compiled for.
type Config struct {
	Capabilities Capabilities
}

// Ty is the type of a variable or literal.
type Ty uint8

const (
	TyQubit Ty = iota
	TyResult
	TyBoolean
	TyInteger
	TyDouble
	TyPointer
)

func (t Ty) String() string {
	switch t {
	case TyQubit:
		return "Qubit"
	case TyResult:
		return "Result"
	case TyBoolean:
		return "Boolean"
	case TyInteger:
		return "Integer"
	case TyDouble:
		return "Double"
	default:
		return "Pointer"
	}
}

// QIRName is the name of the type in textual QIR, used in diagnostics.
func (t Ty) QIRName() string {
	switch t {
	case TyQubit:
		return "%Qubit*"
	case TyResult:
		return "%Result*"
	case TyBoolean:
		return "i1"
	case TyInteger:
		return "i64"
	case TyDouble:
		return "f64"
	default:
		return "i8*"
	}
}

// Variable is a typed slot written by an instruction.
type Variable struct {
	ID VariableID
	Ty Ty
}

func (v Variable) String() string {
	return fmt.Sprintf("Variable(%d, %s)", v.ID, v.Ty)
}

// LiteralKind tags a Literal.
type LiteralKind uint8

const (
	LitQubit LiteralKind = iota
	LitResult
	LitBool
	LitInteger
	LitDouble
	LitPointer
)

// Literal is a constant operand. Literals are comparable with ==.
type Literal struct {
	Kind   LiteralKind
	ID     uint32 // qubit or result id
	Bool   bool
	Int    int64
	Double float64
}

func Qubit(id uint32) Literal      { return Literal{Kind: LitQubit, ID: id} }
func Result(id uint32) Literal     { return Literal{Kind: LitResult, ID: id} }
func Bool(b bool) Literal          { return Literal{Kind: LitBool, Bool: b} }
func Integer(i int64) Literal      { return Literal{Kind: LitInteger, Int: i} }
func Double(d float64) Literal     { return Literal{Kind: LitDouble, Double: d} }
func Pointer() Literal             { return Literal{Kind: LitPointer} }
func (l Literal) Operand() Operand { return Lit(l) }

// Type returns the IR type of the literal.
func (l Literal) Type() Ty {
	switch l.Kind {
	case LitQubit:
		return TyQubit
	case LitResult:
		return TyResult
	case LitBool:
		return TyBoolean
	case LitInteger:
		return TyInteger
	case LitDouble:
		return TyDouble
	default:
		return TyPointer
	}
}

func (l Literal) String() string {
	switch l.Kind {
	case LitQubit:
		return fmt.Sprintf("Qubit(%d)", l.ID)
	case LitResult:
		return fmt.Sprintf("Result(%d)", l.ID)
	case LitBool:
		return fmt.Sprintf("Bool(%t)", l.Bool)
	case LitInteger:
		return fmt.Sprintf("Integer(%d)", l.Int)
	case LitDouble:
		return fmt.Sprintf("Double(%s)", strconv.FormatFloat(l.Double, 'f', -1, 64))
	default:
		return "Pointer"
	}
}

// Operand is either a Literal or a Variable.
type Operand struct {
	isVar bool
	lit   Literal
	v     Variable
}

// Lit wraps a literal as an operand.
func Lit(l Literal) Operand { return Operand{lit: l} }

// Var wraps a variable as an operand.
func Var(v Variable) Operand { return Operand{isVar: true, v: v} }

// Literal returns the literal and true if the operand is a literal.
func (o Operand) Literal() (Literal, bool) { return o.lit, !o.isVar }

// Variable returns the variable and true if the operand is a variable.
func (o Operand) Variable() (Variable, bool) { return o.v, o.isVar }

// IsLiteral reports whether the operand is a literal.
func (o Operand) IsLiteral() bool { return !o.isVar }

// Type returns the IR type of the operand.
func (o Operand) Type() Ty {
	if o.isVar {
		return o.v.Ty
	}
	return o.lit.Type()
}

func (o Operand) String() string {
	if o.isVar {
		return o.v.String()
	}
	return o.lit.String()
}

// Metadata is the debug information attached to an emitted instruction.
type Metadata struct {
	Package   uint32
	Lo, Hi    uint32
	Scope     *uint32 // source block id
	Iteration *int    // loop iteration discriminator
	Callable  string
}

func (m *Metadata) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "!dbg package_id=%d span=[%d-%d]", m.Package, m.Lo, m.Hi)
	if m.Scope != nil {
		fmt.Fprintf(&sb, " scope=%d", *m.Scope)
	}
	if m.Iteration != nil {
		fmt.Fprintf(&sb, " discriminator=%d", *m.Iteration)
	}
	if m.Callable != "" {
		fmt.Fprintf(&sb, " callable=%s", m.Callable)
	}
	return sb.String()
}

// Block is straight-line code ending in a terminator. Meta runs parallel to
// Instrs; entries may be nil.
type Block struct {
	Instrs []Instruction
	Meta   []*Metadata
}

// Append adds an instruction to the end of the block.
func (b *Block) Append(instr Instruction, meta *Metadata) {
	b.Instrs = append(b.Instrs, instr)
	b.Meta = append(b.Meta, meta)
}

// Len returns the number of instructions.
func (b *Block) Len() int { return len(b.Instrs) }

// MetaAt returns the metadata of the i-th instruction, or nil.
func (b *Block) MetaAt(i int) *Metadata {
	if i < len(b.Meta) {
		return b.Meta[i]
	}
	return nil
}

// Terminator returns the last instruction if it ends the block.
func (b *Block) Terminator() (Instruction, bool) {
	if len(b.Instrs) == 0 {
		return nil, false
	}
	last := b.Instrs[len(b.Instrs)-1]
	return last, IsTerminator(last)
}

// Successors returns the blocks control may transfer to from b.
func (b *Block) Successors() []BlockID {
	term, ok := b.Terminator()
	if !ok {
		return nil
	}
	switch t := term.(type) {
	case *Jump:
		return []BlockID{t.Target}
	case *Branch:
		if t.IfTrue == t.IfFalse {
			return []BlockID{t.IfTrue}
		}
		return []BlockID{t.IfTrue, t.IfFalse}
	}
	return nil
}
