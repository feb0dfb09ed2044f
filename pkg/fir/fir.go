// Package fir defines the typed, resolved program tree consumed by the
// partial evaluator.
//
// Design: Arena tables per package indexed by dense ids, one tagged struct
// per node family, value-kind annotations stored on each expression.
// Local variable ids are unique within a package.
package fir

import "fmt"

type (
	PackageID   uint32
	LocalItemID uint32
	BlockID     uint32
	StmtID      uint32
	ExprID      uint32
	PatID       uint32
	LocalVarID  uint32
)

// ItemID names an item across the store.
type ItemID struct {
	Package PackageID   `yaml:"package"`
	Item    LocalItemID `yaml:"item"`
}

func (id ItemID) String() string {
	return fmt.Sprintf("Item %d (Package %d)", id.Item, id.Package)
}

// Span is a byte range in the package's source.
type Span struct {
	Lo uint32 `yaml:"lo"`
	Hi uint32 `yaml:"hi"`
}

func (s Span) String() string {
	return fmt.Sprintf("[%d-%d]", s.Lo, s.Hi)
}

// PackageSpan locates a span within a specific package.
type PackageSpan struct {
	Package PackageID
	Span    Span
}

func (s PackageSpan) String() string {
	return fmt.Sprintf("package %d %s", s.Package, s.Span)
}

// Store holds every package of a program and its entry expression.
type Store struct {
	Packages  []*Package  `yaml:"packages"`
	Entry     *EntryPoint `yaml:"entry,omitempty"`
	Annotated bool        `yaml:"annotated"`
}

// EntryPoint is the expression evaluated as the program.
type EntryPoint struct {
	Package PackageID `yaml:"package"`
	Expr    ExprID    `yaml:"expr"`
}

// Package returns the package with the given id.
func (s *Store) Package(id PackageID) *Package {
	if int(id) >= len(s.Packages) || s.Packages[id] == nil {
		panic(fmt.Sprintf("package %d should be present", id))
	}
	return s.Packages[id]
}

// Callable resolves an item to its callable declaration.
func (s *Store) Callable(id ItemID) (*CallableDecl, bool) {
	if int(id.Package) >= len(s.Packages) {
		return nil, false
	}
	pkg := s.Packages[id.Package]
	if int(id.Item) >= len(pkg.Items) || pkg.Items[id.Item].Callable == nil {
		return nil, false
	}
	return pkg.Items[id.Item].Callable, true
}

// Package is one compilation unit.
type Package struct {
	ID     PackageID `yaml:"id"`
	Items  []*Item   `yaml:"items"`
	Blocks []*Block  `yaml:"blocks"`
	Stmts  []*Stmt   `yaml:"stmts"`
	Exprs  []*Expr   `yaml:"exprs"`
	Pats   []*Pat    `yaml:"pats"`
}

func (p *Package) Item(id LocalItemID) *Item { return p.Items[id] }
func (p *Package) Block(id BlockID) *Block   { return p.Blocks[id] }
func (p *Package) Stmt(id StmtID) *Stmt      { return p.Stmts[id] }
func (p *Package) Expr(id ExprID) *Expr      { return p.Exprs[id] }
func (p *Package) Pat(id PatID) *Pat         { return p.Pats[id] }

// Item is a top-level declaration.
type Item struct {
	ID       LocalItemID   `yaml:"id"`
	Callable *CallableDecl `yaml:"callable,omitempty"`
}

// CallableKind separates pure functions from operations.
type CallableKind uint8

const (
	Function CallableKind = iota
	Operation
)

// Attr is a declaration attribute the evaluator acts on.
type Attr uint8

const (
	AttrMeasurement Attr = iota
	AttrReset
)

// CallableDecl is a callable declaration. Body is nil for intrinsics.
type CallableDecl struct {
	Name   string       `yaml:"name"`
	Kind   CallableKind `yaml:"kind"`
	Input  PatID        `yaml:"input"`
	Output Ty           `yaml:"output"`
	Body   *BlockID     `yaml:"body,omitempty"`
	Attrs  []Attr       `yaml:"attrs,omitempty"`
	Span   Span         `yaml:"span"`
}

// HasAttr reports whether the declaration carries attr.
func (c *CallableDecl) HasAttr(attr Attr) bool {
	for _, a := range c.Attrs {
		if a == attr {
			return true
		}
	}
	return false
}

// Block is a sequence of statements. Its value is the trailing expression
// statement, if any.
type Block struct {
	ID    BlockID  `yaml:"id"`
	Stmts []StmtID `yaml:"stmts"`
	Ty    Ty       `yaml:"ty"`
	Span  Span     `yaml:"span"`
}

// StmtKind tags a statement.
type StmtKind uint8

const (
	StmtExpr StmtKind = iota
	StmtSemi
	StmtLocal
)

// Stmt is a statement. Pat and Mutable apply to StmtLocal only.
type Stmt struct {
	ID      StmtID   `yaml:"id"`
	Kind    StmtKind `yaml:"kind"`
	Expr    ExprID   `yaml:"expr"`
	Pat     PatID    `yaml:"pat,omitempty"`
	Mutable bool     `yaml:"mutable,omitempty"`
	Span    Span     `yaml:"span"`
}

// PatKind tags a pattern.
type PatKind uint8

const (
	PatBind PatKind = iota
	PatTuple
	PatDiscard
)

// Pat is a binding pattern.
type Pat struct {
	ID    PatID   `yaml:"id"`
	Kind  PatKind `yaml:"kind"`
	Ident *Ident  `yaml:"ident,omitempty"`
	Elems []PatID `yaml:"elems,omitempty"`
	Ty    Ty      `yaml:"ty"`
	Span  Span    `yaml:"span"`
}

// Ident is a bound local name.
type Ident struct {
	ID   LocalVarID `yaml:"id"`
	Name string     `yaml:"name"`
	Span Span       `yaml:"span"`
}

// ComputeKind says whether an expression can be evaluated classically.
type ComputeKind uint8

const (
	Classical ComputeKind = iota
	Quantum
)

// ValueKind says whether an expression's value is known at compile time.
type ValueKind uint8

const (
	Static ValueKind = iota
	Dynamic
)

// ExprKind tags an expression.
type ExprKind uint8

const (
	ExprArray ExprKind = iota
	ExprArrayRepeat
	ExprAssign
	ExprAssignOp
	ExprAssignIndex
	ExprBinOp
	ExprBlock
	ExprCall
	ExprFail
	ExprIf
	ExprIndex
	ExprLit
	ExprRange
	ExprReturn
	ExprString
	ExprTuple
	ExprUnOp
	ExprUpdateIndex
	ExprVar
	ExprWhile
	ExprHole
)

// BinOp is a binary operator.
type BinOp uint8

const (
	Add BinOp = iota
	Sub
	Mul
	Div
	Mod
	Exp
	AndB
	OrB
	XorB
	Shl
	Shr
	AndL
	OrL
	Eq
	Neq
	Lt
	Lte
	Gt
	Gte
)

// IsComparison reports whether op yields a Bool from non-Bool operands.
func (op BinOp) IsComparison() bool {
	switch op {
	case Eq, Neq, Lt, Lte, Gt, Gte:
		return true
	}
	return false
}

// UnOp is a unary operator.
type UnOp uint8

const (
	Neg UnOp = iota
	Pos
	NotB
	NotL
)

// LitKind tags a literal.
type LitKind uint8

const (
	LitInt LitKind = iota
	LitDouble
	LitBool
	LitResult
)

// Lit is a literal value. Result literals use Bool: true is One.
type Lit struct {
	Kind   LitKind `yaml:"kind"`
	Int    int64   `yaml:"int,omitempty"`
	Double float64 `yaml:"double,omitempty"`
	Bool   bool    `yaml:"bool,omitempty"`
}

// Res is what a Var expression resolves to: exactly one of Local or Item.
type Res struct {
	Local *LocalVarID `yaml:"local,omitempty"`
	Item  *ItemID     `yaml:"item,omitempty"`
}

// Expr is an expression. Operands live in Exprs with a per-kind layout:
//
//	Array, Tuple        elements
//	ArrayRepeat         value, size
//	Assign              lhs, rhs
//	AssignOp, BinOp     lhs, rhs (Op in BinOp)
//	AssignIndex         array, index, value
//	UpdateIndex         array, index, value
//	Call                callee, args
//	Fail, Return        value
//	If                  cond, then [, else]
//	Index               array, index
//	Range               start, step, end
//	UnOp                operand (Op in UnOp)
//	While               cond (body in Block)
type Expr struct {
	ID      ExprID      `yaml:"id"`
	Kind    ExprKind    `yaml:"kind"`
	Ty      Ty          `yaml:"ty"`
	Span    Span        `yaml:"span"`
	Compute ComputeKind `yaml:"compute,omitempty"`
	Value   ValueKind   `yaml:"value,omitempty"`
	Exprs   []ExprID    `yaml:"exprs,omitempty"`
	BinOp   BinOp       `yaml:"bin_op,omitempty"`
	UnOp    UnOp        `yaml:"un_op,omitempty"`
	Lit     *Lit        `yaml:"lit,omitempty"`
	Block   BlockID     `yaml:"block,omitempty"`
	Res     *Res        `yaml:"res,omitempty"`
	Str     string      `yaml:"str,omitempty"`
}

// IsClassical reports whether the expression was annotated as classical.
func (e *Expr) IsClassical() bool { return e.Compute == Classical }

// Else returns the else branch of an If expression.
func (e *Expr) Else() (ExprID, bool) {
	if len(e.Exprs) > 2 {
		return e.Exprs[2], true
	}
	return 0, false
}

// LocalRes returns the local a Var expression refers to.
func (e *Expr) LocalRes() (LocalVarID, bool) {
	if e.Kind != ExprVar || e.Res == nil || e.Res.Local == nil {
		return 0, false
	}
	return *e.Res.Local, true
}

// ItemRes returns the item a Var expression refers to.
func (e *Expr) ItemRes() (ItemID, bool) {
	if e.Kind != ExprVar || e.Res == nil || e.Res.Item == nil {
		return ItemID{}, false
	}
	return *e.Res.Item, true
}
