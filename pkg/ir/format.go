package ir

import (
	"fmt"
	"strings"
)

const indentUnit = "    "

// indentWriter prefixes each line after a newline with the current depth.
type indentWriter struct {
	sb    strings.Builder
	depth int
}

func (w *indentWriter) printf(format string, args ...any) {
	s := fmt.Sprintf(format, args...)
	w.sb.WriteString(strings.ReplaceAll(s, "\n", "\n"+strings.Repeat(indentUnit, w.depth)))
}

func (b *Block) String() string {
	var w indentWriter
	w.printf("Block:")
	if len(b.Instrs) == 0 {
		w.printf(" <EMPTY>")
		return w.sb.String()
	}
	w.depth = 1
	for _, instr := range b.Instrs {
		w.printf("\n%s", instr)
	}
	return w.sb.String()
}

// StringWithMetadata renders the block with debug metadata after each
// instruction that carries it.
func (b *Block) StringWithMetadata() string {
	var w indentWriter
	w.printf("Block:")
	if len(b.Instrs) == 0 {
		w.printf(" <EMPTY>")
		return w.sb.String()
	}
	w.depth = 1
	for i, instr := range b.Instrs {
		w.printf("\n%s", instr)
		if m := b.MetaAt(i); m != nil {
			w.printf(" %s", m)
		}
	}
	return w.sb.String()
}

func (c *Callable) String() string {
	var w indentWriter
	w.printf("Callable:")
	w.depth = 1
	w.printf("\nname: %s", c.Name)
	w.printf("\ncall_type: %s", c.CallType)
	w.printf("\ninput_type:")
	if len(c.InputTypes) == 0 {
		w.printf(" <VOID>")
	} else {
		w.depth = 2
		for i, ty := range c.InputTypes {
			w.printf("\n[%d]: %s", i, ty)
		}
		w.depth = 1
	}
	w.printf("\noutput_type:")
	if c.OutputType != nil {
		w.printf(" %s", *c.OutputType)
	} else {
		w.printf(" <VOID>")
	}
	w.printf("\nbody:")
	if c.Body != nil {
		w.printf(" %d", *c.Body)
	} else {
		w.printf(" <NONE>")
	}
	return w.sb.String()
}

func (c Config) String() string {
	var w indentWriter
	w.printf("Config:")
	w.depth = 1
	w.printf("\ncapabilities: %s", c.Capabilities)
	return w.sb.String()
}

func (p *Program) String() string {
	var w indentWriter
	w.printf("Program:")
	w.depth = 1
	w.printf("\nentry: %d", p.Entry)
	w.printf("\ncallables:")
	w.depth = 2
	for id, c := range p.Callables.All() {
		w.printf("\nCallable %d: %s", id, c)
	}
	w.depth = 1
	w.printf("\nblocks:")
	w.depth = 2
	for id, b := range p.Blocks.All() {
		w.printf("\nBlock %d: %s", id, b)
	}
	w.depth = 1
	w.printf("\nconfig: %s", p.Config)
	w.printf("\nnum_qubits: %d", p.NumQubits)
	w.printf("\nnum_results: %d", p.NumResults)
	return w.sb.String()
}
