package passes

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/qirc/pkg/ir"
)

const (
	hName = "__quantum__qis__h__body"
	xName = "__quantum__qis__x__body"
)

func hDecl() *ir.Callable { return &ir.Callable{Name: hName, InputTypes: []ir.Ty{ir.TyQubit}} }
func xDecl() *ir.Callable { return &ir.Callable{Name: xName, InputTypes: []ir.Ty{ir.TyQubit}} }

func q(id uint32) ir.Operand { return ir.Lit(ir.Qubit(id)) }
func r(id uint32) ir.Operand { return ir.Lit(ir.Result(id)) }

// newEntry starts a program whose entry callable has id 0 and body block 0.
func newEntry() (*ir.Builder, ir.BlockID) {
	b := ir.NewBuilder(ir.Config{Capabilities: ir.Adaptive})
	entry := b.NewBlock()
	b.Intern(ir.EntryDecl(entry))
	return b, entry
}

func call(b *ir.Builder, block ir.BlockID, decl *ir.Callable, args ...ir.Operand) {
	b.Emit(block, ir.NewCall(b.Intern(decl), args, nil), nil)
}

// branchShape builds the layout the evaluator emits for a dynamic if without
// an else: the continuation block is allocated before the arm.
func branchShape() (*ir.Builder, ir.BlockID, ir.BlockID, ir.BlockID) {
	b, entry := newEntry()
	cont := b.NewBlock()
	arm := b.NewBlock()
	cond := b.NewVariable(ir.TyBoolean)
	b.Emit(entry, ir.NewStore(ir.Lit(ir.Bool(true)), cond), nil)
	b.Emit(entry, ir.NewBranch(cond, arm, cont), nil)
	return b, entry, cont, arm
}

func TestRemapBlockIDsOrdersSuccessorsAfterPredecessors(t *testing.T) {
	b, entry, cont, arm := branchShape()
	call(b, arm, hDecl(), q(0))
	b.Emit(arm, ir.NewJump(cont), nil)
	out := b.NewVariable(ir.TyInteger)
	b.Emit(cont, ir.NewPhi([]ir.PhiArg{
		{Value: ir.Lit(ir.Integer(1)), Block: arm},
		{Value: ir.Lit(ir.Integer(2)), Block: entry},
	}, out), nil)
	b.Emit(cont, &ir.Return{}, nil)
	prog := b.Finish(0, 1, 0)

	prog = RemapBlockIDs(prog)

	assert.Equal(t, []ir.BlockID{0, 1, 2}, prog.Blocks.IDs())
	assert.Equal(t, ir.BlockID(0), prog.EntryBlock())
	assert.Equal(t, `Block:
    Variable(0, Boolean) = Store Bool(true)
    Branch Variable(0, Boolean), 1, 2`, prog.Block(0).String())
	assert.Equal(t, `Block:
    Call id(1), args( Qubit(0), )
    Jump(2)`, prog.Block(1).String())
	assert.Equal(t, `Block:
    Variable(1, Integer) = Phi ( [Integer(1), 1], [Integer(2), 0], )
    Return`, prog.Block(2).String())
}

func TestRemapBlockIDsKeepsMetadata(t *testing.T) {
	b, _, cont, arm := branchShape()
	b.Emit(arm, ir.NewJump(cont), &ir.Metadata{Lo: 4, Hi: 9})
	b.Emit(cont, &ir.Return{}, nil)
	prog := RemapBlockIDs(b.Finish(0, 0, 0))

	meta := prog.Block(1).MetaAt(0)
	require.NotNil(t, meta)
	assert.Equal(t, uint32(4), meta.Lo)
}

func TestPruneUnreachable(t *testing.T) {
	b, entry := newEntry()
	orphan := b.NewBlock()
	b.Emit(entry, &ir.Return{}, nil)
	b.Emit(orphan, &ir.Return{}, nil)
	prog := PruneUnreachable(b.Finish(0, 0, 0))

	assert.Equal(t, []ir.BlockID{entry}, prog.Blocks.IDs())
}

func TestCheckTerminators(t *testing.T) {
	t.Run("missing", func(t *testing.T) {
		b, entry := newEntry()
		call(b, entry, hDecl(), q(0))
		prog := b.Finish(0, 1, 0)
		assert.PanicsWithValue(t, "block 0 does not end in a terminator", func() { CheckTerminators(prog) })
	})
	t.Run("empty", func(t *testing.T) {
		b, _ := newEntry()
		prog := b.Finish(0, 0, 0)
		assert.Panics(t, func() { CheckTerminators(prog) })
	})
	t.Run("early", func(t *testing.T) {
		b, entry := newEntry()
		b.Emit(entry, &ir.Return{}, nil)
		b.Emit(entry, &ir.Return{}, nil)
		prog := b.Finish(0, 0, 0)
		assert.PanicsWithValue(t, "block 0 has terminator Return before its end at 0", func() { CheckTerminators(prog) })
	})
	t.Run("ok", func(t *testing.T) {
		b, entry := newEntry()
		call(b, entry, hDecl(), q(0))
		b.Emit(entry, &ir.Return{}, nil)
		prog := b.Finish(0, 1, 0)
		assert.NotPanics(t, func() { CheckTerminators(prog) })
	})
}

func TestPredecessors(t *testing.T) {
	b, entry, cont, arm := branchShape()
	b.Emit(arm, ir.NewJump(cont), nil)
	b.Emit(cont, &ir.Return{}, nil)
	prog := b.Finish(0, 0, 0)

	preds := Predecessors(prog)
	assert.Equal(t, []ir.BlockID{entry, arm}, preds[cont])
	assert.Equal(t, []ir.BlockID{entry}, preds[arm])
	assert.NotContains(t, preds, entry)
	assert.Equal(t, []ir.BlockID{arm, cont}, Successors(prog.Block(entry)))
}

func TestReindexWithoutReuseLeavesProgramUnchanged(t *testing.T) {
	b, entry := newEntry()
	call(b, entry, hDecl(), q(0))
	call(b, entry, ir.MDecl(), q(0), r(0))
	call(b, entry, hDecl(), q(1))
	call(b, entry, ir.MDecl(), q(1), r(1))
	b.Emit(entry, &ir.Return{}, nil)
	prog := b.Finish(0, 2, 2)
	before := prog.Block(entry).String()
	fixups := testutil.ToFloat64(fixupsInserted)

	prog = ReindexQubits(prog)

	assert.Equal(t, before, prog.Block(entry).String())
	assert.Equal(t, uint32(2), prog.NumQubits)
	assert.Equal(t, uint32(2), prog.NumResults)
	assert.Equal(t, fixups, testutil.ToFloat64(fixupsInserted))
	_, ok := prog.FindCallable(ir.CXName)
	assert.False(t, ok, "unused cx helper is removed")
}

func TestReindexInsertsFixupForReusedQubit(t *testing.T) {
	b, entry := newEntry()
	call(b, entry, hDecl(), q(0))
	call(b, entry, ir.MDecl(), q(0), r(0))
	call(b, entry, hDecl(), q(0))
	call(b, entry, ir.MDecl(), q(0), r(1))
	b.Emit(entry, &ir.Return{}, nil)
	prog := b.Finish(0, 1, 2)
	fixups := testutil.ToFloat64(fixupsInserted)

	prog = ReindexQubits(prog)

	want := `Block:
    Call id(1), args( Qubit(0), )
    Call id(3), args( Qubit(0), Qubit(1), )
    Call id(2), args( Qubit(0), Result(0), )
    Call id(1), args( Qubit(1), )
    Call id(2), args( Qubit(1), Result(1), )
    Return`
	assert.Equal(t, want, prog.Block(entry).String())
	assert.Equal(t, uint32(2), prog.NumQubits)
	assert.Equal(t, fixups+1, testutil.ToFloat64(fixupsInserted))
	cx, ok := prog.FindCallable(ir.CXName)
	require.True(t, ok)
	assert.Equal(t, ir.CallableID(3), cx)

	prog = ReindexQubits(prog)
	assert.Equal(t, want, prog.Block(entry).String(), "reindexing is idempotent")
	assert.Equal(t, uint32(2), prog.NumQubits)
	assert.Equal(t, fixups+1, testutil.ToFloat64(fixupsInserted))
}

func TestReindexRewritesMResetZAndDropsResets(t *testing.T) {
	b, entry := newEntry()
	call(b, entry, hDecl(), q(0))
	call(b, entry, ir.MResetZDecl(), q(0), r(0))
	call(b, entry, hDecl(), q(0))
	call(b, entry, ir.ResetDecl(), q(0))
	call(b, entry, hDecl(), q(0))
	b.Emit(entry, &ir.Return{}, nil)
	prog := b.Finish(0, 1, 1)
	resets := testutil.ToFloat64(resetsDropped)

	prog = ReindexQubits(prog)

	assert.Equal(t, `Block:
    Call id(1), args( Qubit(0), )
    Call id(4), args( Qubit(0), Result(0), )
    Call id(1), args( Qubit(1), )
    Call id(1), args( Qubit(2), )
    Return`, prog.Block(entry).String())
	assert.Equal(t, uint32(3), prog.NumQubits)
	assert.Equal(t, resets+1, testutil.ToFloat64(resetsDropped))

	var names []string
	for _, c := range prog.Callables.All() {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{ir.EntryName, hName, ir.MName}, names)
}

func TestReindexMergesAgreeingPredecessors(t *testing.T) {
	b, entry := newEntry()
	left, right, join := b.NewBlock(), b.NewBlock(), b.NewBlock()
	cond := b.NewVariable(ir.TyBoolean)
	b.Emit(entry, ir.NewStore(ir.Lit(ir.Bool(false)), cond), nil)
	b.Emit(entry, ir.NewBranch(cond, left, right), nil)
	call(b, left, ir.MResetZDecl(), q(0), r(0))
	b.Emit(left, ir.NewJump(join), nil)
	call(b, right, ir.MResetZDecl(), q(0), r(1))
	b.Emit(right, ir.NewJump(join), nil)
	call(b, join, hDecl(), q(0))
	b.Emit(join, &ir.Return{}, nil)
	prog := ReindexQubits(b.Finish(0, 1, 2))

	assert.Equal(t, `Block:
    Call id(2), args( Qubit(1), )
    Return`, prog.Block(join).String())
	assert.Equal(t, uint32(2), prog.NumQubits)
}

func TestReindexRejectsAmbiguousMerge(t *testing.T) {
	b, entry := newEntry()
	left, right, join := b.NewBlock(), b.NewBlock(), b.NewBlock()
	cond := b.NewVariable(ir.TyBoolean)
	b.Emit(entry, ir.NewStore(ir.Lit(ir.Bool(false)), cond), nil)
	b.Emit(entry, ir.NewBranch(cond, left, right), nil)
	call(b, left, ir.MResetZDecl(), q(0), r(0))
	call(b, left, ir.MResetZDecl(), q(1), r(1))
	b.Emit(left, ir.NewJump(join), nil)
	call(b, right, ir.MResetZDecl(), q(1), r(2))
	b.Emit(right, ir.NewJump(join), nil)
	call(b, join, hDecl(), q(1))
	b.Emit(join, &ir.Return{}, nil)
	prog := b.Finish(0, 2, 3)

	assert.PanicsWithValue(t, "Qubit id 1 has multiple mappings across predecessors", func() {
		ReindexQubits(prog)
	})
}

// oneSidedMeasure measures q0 in the arm of an if without an else and reuses
// it there. The continuation is reached from the arm and from the entry.
func oneSidedMeasure(join func(b *ir.Builder, cont ir.BlockID)) *ir.Program {
	b, entry := newEntry()
	arm, cont := b.NewBlock(), b.NewBlock()
	cond := b.NewVariable(ir.TyBoolean)
	b.Emit(entry, ir.NewStore(ir.Lit(ir.Bool(true)), cond), nil)
	b.Emit(entry, ir.NewBranch(cond, arm, cont), nil)
	call(b, arm, ir.MDecl(), q(0), r(0))
	call(b, arm, hDecl(), q(0))
	b.Emit(arm, ir.NewJump(cont), nil)
	join(b, cont)
	b.Emit(cont, &ir.Return{}, nil)
	return b.Finish(0, 2, 1)
}

func TestReindexRejectsOneSidedRemapAtUse(t *testing.T) {
	prog := oneSidedMeasure(func(b *ir.Builder, cont ir.BlockID) {
		call(b, cont, xDecl(), q(0))
	})

	assert.PanicsWithValue(t, "Qubit id 0 has multiple mappings across predecessors", func() {
		ReindexQubits(prog)
	})
}

func TestReindexAllowsOneSidedRemapWithoutUse(t *testing.T) {
	prog := oneSidedMeasure(func(b *ir.Builder, cont ir.BlockID) {
		call(b, cont, xDecl(), q(1))
	})

	require.NotPanics(t, func() { prog = ReindexQubits(prog) })
	assert.Equal(t, `Block:
    Call id(4), args( Qubit(0), Qubit(2), )
    Call id(1), args( Qubit(0), Result(0), )
    Call id(2), args( Qubit(2), )
    Jump(2)`, prog.Block(1).String())
	assert.Equal(t, `Block:
    Call id(3), args( Qubit(1), )
    Return`, prog.Block(2).String())
	assert.Equal(t, uint32(3), prog.NumQubits)
}

func TestReindexOneSidedRemapResolvedByReset(t *testing.T) {
	prog := oneSidedMeasure(func(b *ir.Builder, cont ir.BlockID) {
		call(b, cont, ir.ResetDecl(), q(0))
		call(b, cont, xDecl(), q(0))
	})

	prog = ReindexQubits(prog)

	assert.Equal(t, `Block:
    Call id(4), args( Qubit(3), )
    Return`, prog.Block(2).String())
	assert.Equal(t, uint32(4), prog.NumQubits)
}

func TestReindexFixupInEachArmBeforeJoin(t *testing.T) {
	b, entry := newEntry()
	left, right, join := b.NewBlock(), b.NewBlock(), b.NewBlock()
	cond := b.NewVariable(ir.TyBoolean)
	b.Emit(entry, ir.NewStore(ir.Lit(ir.Bool(false)), cond), nil)
	b.Emit(entry, ir.NewBranch(cond, left, right), nil)
	call(b, left, ir.MDecl(), q(0), r(0))
	b.Emit(left, ir.NewJump(join), nil)
	call(b, right, ir.MDecl(), q(0), r(1))
	b.Emit(right, ir.NewJump(join), nil)
	call(b, join, hDecl(), q(0))
	b.Emit(join, &ir.Return{}, nil)
	fixups := testutil.ToFloat64(fixupsInserted)

	prog := ReindexQubits(b.Finish(0, 1, 2))

	assert.Equal(t, `Block:
    Call id(3), args( Qubit(0), Qubit(1), )
    Call id(1), args( Qubit(0), Result(0), )
    Jump(3)`, prog.Block(left).String())
	assert.Equal(t, `Block:
    Call id(3), args( Qubit(0), Qubit(1), )
    Call id(1), args( Qubit(0), Result(1), )
    Jump(3)`, prog.Block(right).String())
	assert.Equal(t, `Block:
    Call id(2), args( Qubit(1), )
    Return`, prog.Block(join).String())
	assert.Equal(t, uint32(2), prog.NumQubits)
	assert.Equal(t, fixups+2, testutil.ToFloat64(fixupsInserted))
}

func TestReindexFixupForUseInLaterBlock(t *testing.T) {
	b, entry, cont, arm := branchShape()
	b.Emit(arm, ir.NewJump(cont), nil)
	call(b, cont, xDecl(), q(0))
	b.Emit(cont, &ir.Return{}, nil)

	// Measure before the branch; the qubit is next used in the continuation.
	prog := b.Program()
	m := b.Intern(ir.MDecl())
	blk := prog.Block(entry)
	blk.Instrs = append([]ir.Instruction{ir.NewCall(m, []ir.Operand{q(0), r(0)}, nil)}, blk.Instrs...)
	blk.Meta = append([]*ir.Metadata{nil}, blk.Meta...)
	prog = Run(b.Finish(0, 1, 1), DefaultPipeline())

	cx, ok := prog.FindCallable(ir.CXName)
	require.True(t, ok)
	first := prog.Block(0).Instrs[0].(*ir.Call)
	assert.Equal(t, cx, first.Callee)
	assert.Equal(t, []ir.Operand{q(0), q(1)}, first.Args)
	assert.Equal(t, `Block:
    Call id(1), args( Qubit(1), )
    Return`, prog.Block(2).String())
	assert.Equal(t, uint32(2), prog.NumQubits)
}

func TestReindexPreconditions(t *testing.T) {
	t.Run("extra body", func(t *testing.T) {
		b, entry := newEntry()
		b.Emit(entry, &ir.Return{}, nil)
		other := b.NewBlock()
		b.Emit(other, &ir.Return{}, nil)
		b.Intern(&ir.Callable{Name: "helper", Body: &other})
		prog := b.Finish(0, 0, 0)
		assert.PanicsWithValue(t, "only the entry callable should have a body", func() { ReindexQubits(prog) })
	})
	t.Run("unordered blocks", func(t *testing.T) {
		b, _, cont, arm := branchShape()
		b.Emit(arm, ir.NewJump(cont), nil)
		b.Emit(cont, &ir.Return{}, nil)
		prog := b.Finish(0, 0, 0)
		assert.PanicsWithValue(t, "block 2 has successor 1, which does not follow it", func() {
			ReindexQubits(prog)
		})
	})
}

func TestRunRemapsWhenOnlyReindexing(t *testing.T) {
	b, _, cont, arm := branchShape()
	b.Emit(arm, ir.NewJump(cont), nil)
	call(b, cont, hDecl(), q(0))
	b.Emit(cont, &ir.Return{}, nil)
	prog := b.Finish(0, 1, 0)

	require.NotPanics(t, func() { prog = Run(prog, Pipeline{ReindexQubits: true}) })
	assert.Equal(t, `Block:
    Jump(2)`, prog.Block(1).String())
	assert.Equal(t, `Block:
    Call id(1), args( Qubit(0), )
    Return`, prog.Block(2).String())
}

func TestRunChecksCallTypes(t *testing.T) {
	b, entry := newEntry()
	call(b, entry, hDecl(), r(0))
	b.Emit(entry, &ir.Return{}, nil)
	prog := b.Finish(0, 0, 1)

	assert.PanicsWithValue(t, "mismatched argument types (%Result*, %Qubit*) for call to "+hName, func() {
		Run(prog, Pipeline{})
	})
}

func TestRunReordersBeforeReindexing(t *testing.T) {
	b, _, cont, arm := branchShape()
	call(b, arm, xDecl(), q(0))
	b.Emit(arm, ir.NewJump(cont), nil)
	call(b, cont, ir.ResetDecl(), q(0))
	call(b, cont, hDecl(), q(0))
	b.Emit(cont, &ir.Return{}, nil)

	prog := Run(b.Finish(0, 1, 0), DefaultPipeline())

	assert.Equal(t, `Block:
    Variable(0, Boolean) = Store Bool(true)
    Branch Variable(0, Boolean), 1, 2`, prog.Block(0).String())
	assert.Equal(t, `Block:
    Call id(1), args( Qubit(0), )
    Jump(2)`, prog.Block(1).String())
	assert.Equal(t, `Block:
    Call id(3), args( Qubit(1), )
    Return`, prog.Block(2).String())
	assert.Equal(t, uint32(2), prog.NumQubits)
}
