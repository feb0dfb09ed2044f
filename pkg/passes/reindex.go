package passes

import (
	"fmt"

	"github.com/GriffinCanCode/qirc/pkg/ir"
	"github.com/GriffinCanCode/qirc/pkg/logger"
)

// qubitMap is the renaming in effect at one point of a block. An id with no
// entry maps to itself. An ambiguous id was renamed differently along the
// paths into the block and may not be used until it is reset or measured.
type qubitMap struct {
	ids       map[uint32]uint32
	ambiguous map[uint32]bool
	next      uint32
}

func newQubitMap(next uint32) *qubitMap {
	return &qubitMap{ids: make(map[uint32]uint32), ambiguous: make(map[uint32]bool), next: next}
}

// advance gives q a fresh id for its uses from here on.
func (m *qubitMap) advance(q uint32) {
	m.ids[q] = m.next
	delete(m.ambiguous, q)
	m.next++
}

// lookup returns the id q currently maps to.
func (m *qubitMap) lookup(q uint32) uint32 {
	if m.ambiguous[q] {
		panic(fmt.Sprintf("Qubit id %d has multiple mappings across predecessors", q))
	}
	if to, ok := m.ids[q]; ok {
		return to
	}
	return q
}

type reindexer struct {
	prog      *ir.Program
	m         ir.CallableID
	usedM     bool
	cx        ir.CallableID
	usedCX    bool
	mresetz   *ir.CallableID
	numQubits uint32
	fixups    int
	resets    int
	succs     map[ir.BlockID][]ir.BlockID
	reachAll  map[ir.BlockID][]ir.BlockID
}

// ReindexQubits gives each qubit a fresh id after it is measured or reset so
// no id is reused within the program. Reset calls are dropped and mresetz
// calls become m calls. A measured qubit that is used again later is first
// copied onto its fresh id with a cx.
//
// Only the entry callable may have a body, and every block's successors must
// have higher ids. Both hold after RemapBlockIDs.
func ReindexQubits(prog *ir.Program) *ir.Program {
	logger.Debug("Running qubit reindexing")
	checkReindexable(prog)

	r := &reindexer{prog: prog, numQubits: prog.NumQubits}
	r.m, r.usedM = findOrAdd(prog, ir.MDecl())
	r.cx, r.usedCX = findOrAdd(prog, ir.CXDecl())
	if id, ok := prog.FindCallable(ir.MResetZName); ok {
		r.mresetz = &id
	}

	// Blocks are rewritten in place, so successors are read up front.
	preds := Predecessors(prog)
	r.succs = make(map[ir.BlockID][]ir.BlockID, prog.Blocks.Len())
	for id, b := range prog.Blocks.All() {
		r.succs[id] = b.Successors()
	}
	r.reachAll = make(map[ir.BlockID][]ir.BlockID)
	done := make(map[ir.BlockID]*qubitMap)
	for id, b := range prog.Blocks.All() {
		m := r.merge(id, preds[id], done)
		r.block(id, b, m)
		done[id] = m
	}

	prog.NumQubits = r.numQubits
	prog.Callables.Retain(func(id ir.CallableID, c *ir.Callable) bool {
		return c.CallType != ir.Reset && (r.mresetz == nil || id != *r.mresetz)
	})
	if !r.usedM {
		prog.Callables.Remove(r.m)
	}
	if !r.usedCX {
		prog.Callables.Remove(r.cx)
	}

	fixupsInserted.Add(float64(r.fixups))
	resetsDropped.Add(float64(r.resets))
	logger.LogPass("reindex-qubits",
		"qubits", prog.NumQubits,
		"fixups", r.fixups,
		"resets", r.resets)
	return prog
}

func checkReindexable(prog *ir.Program) {
	for id, c := range prog.Callables.All() {
		if c.Body != nil && id != prog.Entry {
			panic("only the entry callable should have a body")
		}
	}
	for id, b := range prog.Blocks.All() {
		for _, succ := range b.Successors() {
			if succ <= id {
				panic(fmt.Sprintf("block %d has successor %d, which does not follow it", id, succ))
			}
		}
	}
}

// findOrAdd returns the id of the callable named like c, adding c if the
// program has none. It reports whether the callable was already present.
func findOrAdd(prog *ir.Program, c *ir.Callable) (ir.CallableID, bool) {
	if id, ok := prog.FindCallable(c.Name); ok {
		return id, true
	}
	id := prog.Callables.NextID()
	prog.Callables.Insert(id, c)
	return id, false
}

// merge seeds a block's map from its predecessors' final maps. Predecessors
// that rename an id differently leave it ambiguous in the block.
func (r *reindexer) merge(id ir.BlockID, preds []ir.BlockID, done map[ir.BlockID]*qubitMap) *qubitMap {
	m := newQubitMap(r.prog.NumQubits)
	maps := make([]*qubitMap, 0, len(preds))
	for _, pred := range preds {
		pm, ok := done[pred]
		if !ok {
			panic(fmt.Sprintf("predecessor %d of block %d has not been reindexed", pred, id))
		}
		maps = append(maps, pm)
		m.next = max(m.next, pm.next)
	}

	keys := make(map[uint32]bool)
	for _, pm := range maps {
		for q := range pm.ids {
			keys[q] = true
		}
		for q := range pm.ambiguous {
			keys[q] = true
		}
	}
	for q := range keys {
		to, ok := maps[0].ids[q]
		if !ok {
			to = q
		}
		for _, pm := range maps {
			other, ok := pm.ids[q]
			if !ok {
				other = q
			}
			if pm.ambiguous[q] || other != to {
				m.ambiguous[q] = true
			}
		}
		if !m.ambiguous[q] && to != q {
			m.ids[q] = to
		}
	}
	return m
}

func (r *reindexer) block(id ir.BlockID, b *ir.Block, m *qubitMap) {
	instrs, meta := b.Instrs, b.Meta
	b.Instrs, b.Meta = make([]ir.Instruction, 0, len(instrs)), make([]*ir.Metadata, 0, len(meta))

	for i, instr := range instrs {
		var md *ir.Metadata
		if i < len(meta) {
			md = meta[i]
		}
		call, ok := instr.(*ir.Call)
		if !ok {
			b.Append(instr, md)
			continue
		}
		callee := r.prog.Callable(call.Callee)
		if callee.CallType == ir.Reset {
			for _, q := range qubitArgs(call.Args) {
				m.advance(q)
			}
			r.resets++
			continue
		}

		args := make([]ir.Operand, len(call.Args))
		for j, arg := range call.Args {
			args[j] = arg
			if lit, ok := arg.Literal(); ok && lit.Kind == ir.LitQubit {
				to := m.lookup(lit.ID)
				r.numQubits = max(r.numQubits, to+1)
				args[j] = ir.Lit(ir.Qubit(to))
			}
		}
		if call.Var != nil {
			b.Append(ir.NewCall(call.Callee, args, call.Var), md)
			continue
		}

		calleeID := call.Callee
		if calleeID == r.m {
			q := qubitArgs(call.Args)
			if len(q) == 0 {
				panic("measurement call should have a qubit argument")
			}
			if !r.usedLater(q[0], id, instrs[i+1:]) {
				b.Append(ir.NewCall(calleeID, args, nil), md)
				continue
			}
			r.usedCX = true
			r.fixups++
			b.Append(ir.NewCall(r.cx, []ir.Operand{args[0], ir.Lit(ir.Qubit(m.next))}, nil), md)
			r.numQubits = max(r.numQubits, m.next+1)
		}
		if r.mresetz != nil && calleeID == *r.mresetz {
			r.usedM = true
			calleeID = r.m
		}

		b.Append(ir.NewCall(calleeID, args, nil), md)
		if r.prog.Callable(calleeID).CallType == ir.Measurement {
			for _, q := range qubitArgs(call.Args) {
				m.advance(q)
			}
		}
	}
}

// usedLater reports whether q is passed to a call in rest or in any block
// reachable from id.
func (r *reindexer) usedLater(q uint32, id ir.BlockID, rest []ir.Instruction) bool {
	if usesQubit(q, rest) {
		return true
	}
	for _, succ := range r.reachable(id) {
		if usesQubit(q, r.prog.Block(succ).Instrs) {
			return true
		}
	}
	return false
}

// reachable lists the blocks reachable from id, excluding id.
func (r *reindexer) reachable(id ir.BlockID) []ir.BlockID {
	if out, ok := r.reachAll[id]; ok {
		return out
	}
	seen := make(map[ir.BlockID]bool)
	var out []ir.BlockID
	worklist := append([]ir.BlockID(nil), r.succs[id]...)
	for len(worklist) > 0 {
		next := worklist[0]
		worklist = worklist[1:]
		if seen[next] {
			continue
		}
		seen[next] = true
		out = append(out, next)
		worklist = append(worklist, r.succs[next]...)
	}
	r.reachAll[id] = out
	return out
}

func usesQubit(q uint32, instrs []ir.Instruction) bool {
	for _, instr := range instrs {
		if call, ok := instr.(*ir.Call); ok {
			for _, arg := range qubitArgs(call.Args) {
				if arg == q {
					return true
				}
			}
		}
	}
	return false
}

func qubitArgs(args []ir.Operand) []uint32 {
	var out []uint32
	for _, arg := range args {
		if lit, ok := arg.Literal(); ok && lit.Kind == ir.LitQubit {
			out = append(out, lit.ID)
		}
	}
	return out
}
