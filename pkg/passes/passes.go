// Package passes - Program-level rewrites run after partial evaluation
// Design: Each pass takes the program and returns it so passes chain. A
// program that breaks a pass's preconditions is a compiler defect, so passes
// panic instead of returning errors.
package passes

import (
	"fmt"
	"time"

	"github.com/GriffinCanCode/qirc/pkg/ir"
	"github.com/GriffinCanCode/qirc/pkg/logger"
)

// Pipeline selects the optional passes Run applies.
type Pipeline struct {
	RemapBlocks   bool
	ReindexQubits bool
}

// DefaultPipeline enables every pass.
func DefaultPipeline() Pipeline {
	return Pipeline{RemapBlocks: true, ReindexQubits: true}
}

// Run applies the pipeline to prog. Reindexing needs ordered block ids, so
// blocks are remapped whenever it is enabled. The result is type checked
// before it is returned.
func Run(prog *ir.Program, p Pipeline) *ir.Program {
	start := time.Now()
	logger.LogPhase("passes", "remap", p.RemapBlocks, "reindex", p.ReindexQubits)

	prog = PruneUnreachable(prog)
	if p.RemapBlocks || p.ReindexQubits {
		prog = RemapBlockIDs(prog)
	}
	prog = CheckTerminators(prog)
	if p.ReindexQubits {
		prog = ReindexQubits(prog)
	}
	ir.CheckTypes(prog)

	logger.LogPhaseComplete("passes", start,
		"blocks", prog.Blocks.Len(),
		"qubits", prog.NumQubits)
	return prog
}

// PruneUnreachable removes blocks that no path from the entry block reaches.
func PruneUnreachable(prog *ir.Program) *ir.Program {
	logger.Debug("Running unreachable block pruning")

	reachable := make(map[ir.BlockID]bool)
	worklist := []ir.BlockID{prog.EntryBlock()}
	for len(worklist) > 0 {
		id := worklist[0]
		worklist = worklist[1:]
		if reachable[id] {
			continue
		}
		reachable[id] = true
		worklist = append(worklist, prog.Block(id).Successors()...)
	}

	before := prog.Blocks.Len()
	prog.Blocks.Retain(func(id ir.BlockID, _ *ir.Block) bool { return reachable[id] })
	if removed := before - prog.Blocks.Len(); removed > 0 {
		logger.LogPass("prune", "removed", removed)
	}
	return prog
}

// RemapBlockIDs renumbers blocks in reverse post-order from the entry, so
// every forward edge points to a higher id. Unreachable blocks are dropped.
func RemapBlockIDs(prog *ir.Program) *ir.Program {
	logger.Debug("Running block id remapping")

	order := reversePostOrder(prog, prog.EntryBlock())
	remap := make(map[ir.BlockID]ir.BlockID, len(order))
	for i, id := range order {
		remap[id] = ir.BlockID(i)
	}
	target := func(id ir.BlockID) ir.BlockID {
		to, ok := remap[id]
		if !ok {
			panic(fmt.Sprintf("block %d is referenced but was not visited", id))
		}
		return to
	}

	blocks := ir.NewTable[ir.BlockID, *ir.Block]()
	changed := 0
	for _, id := range order {
		b := prog.Block(id)
		for i, instr := range b.Instrs {
			switch t := instr.(type) {
			case *ir.Jump:
				b.Instrs[i] = ir.NewJump(target(t.Target))
			case *ir.Branch:
				b.Instrs[i] = ir.NewBranch(t.Cond, target(t.IfTrue), target(t.IfFalse))
			case *ir.Phi:
				incoming := make([]ir.PhiArg, len(t.Incoming))
				for j, arg := range t.Incoming {
					incoming[j] = ir.PhiArg{Value: arg.Value, Block: target(arg.Block)}
				}
				b.Instrs[i] = ir.NewPhi(incoming, t.Var)
			}
		}
		if remap[id] != id {
			changed++
		}
		blocks.Insert(remap[id], b)
	}

	for _, c := range prog.Callables.All() {
		if c.Body != nil {
			body := target(*c.Body)
			c.Body = &body
		}
	}
	prog.Blocks = blocks

	logger.LogPass("remap-blocks", "blocks", len(order), "renumbered", changed)
	return prog
}

// reversePostOrder lists the blocks reachable from entry so that each block
// comes before its successors, ignoring back edges.
func reversePostOrder(prog *ir.Program, entry ir.BlockID) []ir.BlockID {
	type frame struct {
		id   ir.BlockID
		succ []ir.BlockID
	}
	visited := map[ir.BlockID]bool{entry: true}
	stack := []frame{{entry, prog.Block(entry).Successors()}}
	var post []ir.BlockID
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if len(top.succ) == 0 {
			post = append(post, top.id)
			stack = stack[:len(stack)-1]
			continue
		}
		next := top.succ[0]
		top.succ = top.succ[1:]
		if !visited[next] {
			visited[next] = true
			stack = append(stack, frame{next, prog.Block(next).Successors()})
		}
	}

	for i, j := 0, len(post)-1; i < j; i, j = i+1, j-1 {
		post[i], post[j] = post[j], post[i]
	}
	return post
}

// CheckTerminators panics unless every block ends in exactly one terminator.
func CheckTerminators(prog *ir.Program) *ir.Program {
	logger.Debug("Running terminator check")

	for id, b := range prog.Blocks.All() {
		if _, ok := b.Terminator(); !ok {
			panic(fmt.Sprintf("block %d does not end in a terminator", id))
		}
		for i, instr := range b.Instrs[:len(b.Instrs)-1] {
			if ir.IsTerminator(instr) {
				panic(fmt.Sprintf("block %d has terminator %s before its end at %d", id, instr, i))
			}
		}
	}
	return prog
}

// Successors returns the blocks control may reach directly from b.
func Successors(b *ir.Block) []ir.BlockID {
	return b.Successors()
}

// Predecessors maps each block to the blocks that branch or jump to it, in
// ascending id order. Blocks without predecessors are absent.
func Predecessors(prog *ir.Program) map[ir.BlockID][]ir.BlockID {
	preds := make(map[ir.BlockID][]ir.BlockID)
	for id, b := range prog.Blocks.All() {
		for _, succ := range Successors(b) {
			preds[succ] = append(preds[succ], id)
		}
	}
	return preds
}
