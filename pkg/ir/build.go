// Package ir - program construction
// Design: One builder per compilation owns the program, hands out dense ids
// and interns callables by name.
package ir

import (
	"github.com/GriffinCanCode/qirc/pkg/logger"
)

// Builder owns a Program while it is being emitted.
type Builder struct {
	prog      *Program
	callables map[string]CallableID
	nextVar   VariableID
	nextBlock BlockID
	nextCall  CallableID
	emitted   int
}

func NewBuilder(cfg Config) *Builder {
	prog := NewProgram()
	prog.Config = cfg
	return &Builder{
		prog:      prog,
		callables: make(map[string]CallableID),
	}
}

// Program returns the program under construction.
func (b *Builder) Program() *Program {
	return b.prog
}

// NewBlock allocates an empty block and returns its id.
func (b *Builder) NewBlock() BlockID {
	id := b.nextBlock
	b.nextBlock++
	b.prog.Blocks.Insert(id, &Block{})
	return id
}

// NewVariable allocates a variable of the given type.
func (b *Builder) NewVariable(ty Ty) Variable {
	id := b.nextVar
	b.nextVar++
	return Variable{ID: id, Ty: ty}
}

// Emit appends instr to block.
func (b *Builder) Emit(block BlockID, instr Instruction, meta *Metadata) {
	b.prog.Block(block).Append(instr, meta)
	b.emitted++
}

// Intern returns the id of the callable with c's name, inserting c if it is
// not present yet.
func (b *Builder) Intern(c *Callable) CallableID {
	if id, ok := b.callables[c.Name]; ok {
		return id
	}
	id := b.nextCall
	b.nextCall++
	b.callables[c.Name] = id
	b.prog.Callables.Insert(id, c)
	logger.Debug("Interned callable", "name", c.Name, "id", id)
	return id
}

// Emitted returns the number of instructions emitted so far.
func (b *Builder) Emitted() int {
	return b.emitted
}

// Finish records resource counts and returns the program.
func (b *Builder) Finish(entry CallableID, numQubits, numResults uint32) *Program {
	b.prog.Entry = entry
	b.prog.NumQubits = numQubits
	b.prog.NumResults = numResults
	logger.Debug("Program built",
		"blocks", b.prog.Blocks.Len(),
		"callables", b.prog.Callables.Len(),
		"instructions", b.emitted)
	return b.prog
}
