// Package partialeval - Partial evaluation of annotated program trees into circuit IR
// Design: One evaluator per compilation owns the program builder, a stack of
// call-frame scopes and a stack of open blocks. Static code runs on the
// classical interpreter, everything else is emitted as instructions.
package partialeval

import (
	"fmt"
	"maps"

	"github.com/GriffinCanCode/qirc/pkg/eval"
	"github.com/GriffinCanCode/qirc/pkg/fir"
	"github.com/GriffinCanCode/qirc/pkg/ir"
)

// BlockNode is an open block together with the block control continues to
// once it is sealed.
type BlockNode struct {
	ID        ir.BlockID
	Successor *ir.BlockID
}

// EvaluationContext tracks call frames and open blocks while a program is
// being evaluated. The last element of each stack is the current one.
type EvaluationContext struct {
	blocks []BlockNode
	scopes []*Scope

	// CurrentIteration is the loop iteration being unrolled, nil outside loops.
	CurrentIteration *int
}

// NewEvaluationContext creates a context with the entry scope of pkg and
// initialBlock as the only open block.
func NewEvaluationContext(pkg fir.PackageID, initialBlock ir.BlockID) *EvaluationContext {
	return &EvaluationContext{
		blocks: []BlockNode{{ID: initialBlock}},
		scopes: []*Scope{NewScope(pkg, nil, "", nil)},
	}
}

// CurrentBlockID returns the id of the block instructions are appended to.
func (c *EvaluationContext) CurrentBlockID() ir.BlockID {
	return c.CurrentBlockNode().ID
}

// CurrentBlockNode returns the innermost open block.
func (c *EvaluationContext) CurrentBlockNode() BlockNode {
	if len(c.blocks) == 0 {
		panic("there are no active blocks in the evaluation context")
	}
	return c.blocks[len(c.blocks)-1]
}

// CurrentScope returns the innermost call frame.
func (c *EvaluationContext) CurrentScope() *Scope {
	if len(c.scopes) == 0 {
		panic("the evaluation context does not have a current scope")
	}
	return c.scopes[len(c.scopes)-1]
}

// Depth is the number of open call frames including the entry scope.
func (c *EvaluationContext) Depth() int { return len(c.scopes) }

// PushBlockNode opens a block in the current scope.
func (c *EvaluationContext) PushBlockNode(b BlockNode) {
	c.blocks = append(c.blocks, b)
	c.CurrentScope().activeBlocks++
}

// PopBlockNode closes the innermost block.
func (c *EvaluationContext) PopBlockNode() BlockNode {
	b := c.CurrentBlockNode()
	c.blocks = c.blocks[:len(c.blocks)-1]
	c.CurrentScope().activeBlocks--
	return b
}

// PushScope enters a call frame.
func (c *EvaluationContext) PushScope(s *Scope) {
	c.scopes = append(c.scopes, s)
}

// PopScope leaves the innermost call frame.
func (c *EvaluationContext) PopScope() *Scope {
	s := c.CurrentScope()
	c.scopes = c.scopes[:len(c.scopes)-1]
	return s
}

// IsCurrentlyEvaluatingAnyBranch reports whether a dynamic branch is open in
// any frame of the call stack.
func (c *EvaluationContext) IsCurrentlyEvaluatingAnyBranch() bool {
	for _, s := range c.scopes {
		if s.IsCurrentlyEvaluatingBranch() {
			return true
		}
	}
	return false
}

// Arg is a callable argument matched against one binding of the parameter
// pattern. Discarded arguments have no local.
type Arg struct {
	Local   fir.LocalVarID
	Name    string
	Span    fir.Span
	Value   eval.Value
	Discard bool
}

// Scope is the evaluation state of one call frame.
type Scope struct {
	Package  fir.PackageID
	Callable *fir.ItemID // nil for the entry expression
	Name     string
	Caller   fir.PackageSpan // span of the call that opened the frame

	// ArgsValueKind records, per argument, whether it holds run-time values.
	ArgsValueKind []fir.ValueKind

	// Env is the classical interpreter's view of the frame.
	Env *eval.Env

	hybrid       map[fir.LocalVarID]eval.Value
	static       map[ir.VariableID]ir.Literal
	activeBlocks int
}

// NewScope creates the frame for a call. Every argument is bound in both the
// classical environment and the hybrid map; arguments holding run-time values
// are recorded as dynamic so they are never folded.
func NewScope(pkg fir.PackageID, callable *fir.ItemID, name string, args []Arg) *Scope {
	env := eval.NewEnv()
	env.PushScope()
	s := &Scope{
		Package:      pkg,
		Callable:     callable,
		Name:         name,
		Env:          env,
		hybrid:       make(map[fir.LocalVarID]eval.Value),
		static:       make(map[ir.VariableID]ir.Literal),
		activeBlocks: 1,
	}
	for _, arg := range args {
		s.ArgsValueKind = append(s.ArgsValueKind, ValueKindOf(arg.Value))
		if arg.Discard {
			continue
		}
		env.Bind(arg.Local, &eval.Variable{Name: arg.Name, Value: arg.Value, Span: arg.Span})
		s.hybrid[arg.Local] = arg.Value
	}
	return s
}

// ValueKindOf classifies a value: variables and measured results are
// dynamic, containers are dynamic when any element is.
func ValueKindOf(v eval.Value) fir.ValueKind {
	switch v := v.(type) {
	case eval.Var, eval.ResultID:
		return fir.Dynamic
	case eval.Array:
		return elementsKind(v)
	case eval.Tuple:
		return elementsKind(v)
	}
	return fir.Static
}

func elementsKind(vs []eval.Value) fir.ValueKind {
	for _, v := range vs {
		if ValueKindOf(v) == fir.Dynamic {
			return fir.Dynamic
		}
	}
	return fir.Static
}

// GetStaticValue returns the literal a variable is known to hold.
func (s *Scope) GetStaticValue(v ir.VariableID) (ir.Literal, bool) {
	l, ok := s.static[v]
	return l, ok
}

// InsertStaticVarMapping records that v holds lit.
func (s *Scope) InsertStaticVarMapping(v ir.VariableID, lit ir.Literal) {
	s.static[v] = lit
}

// RemoveStaticValue forgets what v holds.
func (s *Scope) RemoveStaticValue(v ir.VariableID) {
	delete(s.static, v)
}

// CloneStaticVarMap returns a copy of the static mappings.
func (s *Scope) CloneStaticVarMap() map[ir.VariableID]ir.Literal {
	return maps.Clone(s.static)
}

// OverwriteStaticVarMap replaces the static mappings.
func (s *Scope) OverwriteStaticVarMap(m map[ir.VariableID]ir.Literal) {
	s.static = m
}

// KeepMatchingStaticVarMappings joins the mappings with other: a variable
// stays known only if other maps it to the same literal.
func (s *Scope) KeepMatchingStaticVarMappings(other map[ir.VariableID]ir.Literal) {
	maps.DeleteFunc(s.static, func(v ir.VariableID, lit ir.Literal) bool {
		o, ok := other[v]
		return !ok || o != lit
	})
}

// GetHybridLocalValue returns the value bound to a local.
func (s *Scope) GetHybridLocalValue(local fir.LocalVarID) eval.Value {
	v, ok := s.hybrid[local]
	if !ok {
		panic(fmt.Sprintf("local %d should be bound in the hybrid map", local))
	}
	return v
}

// InsertHybridLocalValue binds a local.
func (s *Scope) InsertHybridLocalValue(local fir.LocalVarID, v eval.Value) {
	s.hybrid[local] = v
}

// UpdateHybridLocalValue rebinds a local that must already exist.
func (s *Scope) UpdateHybridLocalValue(local fir.LocalVarID, v eval.Value) {
	if _, ok := s.hybrid[local]; !ok {
		panic(fmt.Sprintf("local %d to update does not exist", local))
	}
	s.hybrid[local] = v
}

// GetClassicalLocalValue returns the value the interpreter holds for a local.
func (s *Scope) GetClassicalLocalValue(local fir.LocalVarID) eval.Value {
	v, ok := s.Env.Get(local)
	if !ok {
		panic(fmt.Sprintf("local %d should be bound in the classical environment", local))
	}
	return v.Value
}

// IsCurrentlyEvaluatingBranch reports whether a dynamic branch is open in
// this frame.
func (s *Scope) IsCurrentlyEvaluatingBranch() bool {
	return s.activeBlocks > 1
}

// HasClassicalEvaluatorReturned reports whether the interpreter executed a
// return in this frame, which unwinds its environment to the root.
func (s *Scope) HasClassicalEvaluatorReturned() bool {
	return s.Env.Len() == 1
}
