package partialeval

import (
	"time"

	"github.com/pkg/errors"

	"github.com/GriffinCanCode/qirc/pkg/eval"
	"github.com/GriffinCanCode/qirc/pkg/fir"
	"github.com/GriffinCanCode/qirc/pkg/ir"
	"github.com/GriffinCanCode/qirc/pkg/logger"
	"github.com/GriffinCanCode/qirc/pkg/rca"
)

// Options control a partial evaluation.
type Options struct {
	// Capabilities gates which dynamic instructions may be emitted.
	Capabilities ir.Capabilities
	// MaxCallDepth bounds nested calls. Zero selects eval.DefaultMaxCallDepth.
	MaxCallDepth int
}

type controlFlow uint8

const (
	cfContinue controlFlow = iota
	cfReturn
)

// PartialEvaluator turns one program tree into a Program.
type PartialEvaluator struct {
	store   *fir.Store
	opts    Options
	interp  *eval.Interpreter
	builder *ir.Builder
	ctx     *EvaluationContext
	res     resources
	entry   ir.CallableID

	// source blocks being evaluated, innermost last
	sourceBlocks []fir.BlockID
}

func newPartialEvaluator(store *fir.Store, pkg fir.PackageID, opts Options) *PartialEvaluator {
	if opts.MaxCallDepth <= 0 {
		opts.MaxCallDepth = eval.DefaultMaxCallDepth
	}
	builder := ir.NewBuilder(ir.Config{Capabilities: opts.Capabilities})
	block := builder.NewBlock()
	entry := builder.Intern(ir.EntryDecl(block))
	return &PartialEvaluator{
		store:   store,
		opts:    opts,
		interp:  eval.New(store, opts.MaxCallDepth),
		builder: builder,
		ctx:     NewEvaluationContext(pkg, block),
		entry:   entry,
	}
}

// Evaluate compiles the store's entry expression. Stores that are not yet
// annotated are analyzed first.
func Evaluate(store *fir.Store, opts Options) (*ir.Program, error) {
	if store.Entry == nil {
		return nil, errors.New("program has no entry expression")
	}
	rca.Analyze(store)

	entry := store.Entry
	pe := newPartialEvaluator(store, entry.Package, opts)
	return pe.run("entry", func() (eval.Value, fir.Ty, fir.PackageSpan, error) {
		e := store.Package(entry.Package).Expr(entry.Expr)
		span := fir.PackageSpan{Package: entry.Package, Span: e.Span}
		v, _, err := pe.expr(entry.Expr)
		return v, e.Ty, span, err
	})
}

// EvaluateCallable compiles a call to item with already evaluated arguments.
func EvaluateCallable(store *fir.Store, item fir.ItemID, args eval.Value, opts Options) (*ir.Program, error) {
	decl, ok := store.Callable(item)
	if !ok {
		return nil, errors.Errorf("%s is not a callable", item)
	}
	rca.Analyze(store)

	pe := newPartialEvaluator(store, item.Package, opts)
	return pe.run(decl.Name, func() (eval.Value, fir.Ty, fir.PackageSpan, error) {
		span := fir.PackageSpan{Package: item.Package, Span: decl.Span}
		if decl.Body == nil {
			v, err := pe.intrinsic(item, decl, args, span)
			return v, decl.Output, span, err
		}
		v, err := pe.callSpec(item, decl, args, span)
		return v, decl.Output, span, err
	})
}

func (pe *PartialEvaluator) run(name string, body func() (eval.Value, fir.Ty, fir.PackageSpan, error)) (*ir.Program, error) {
	start := time.Now()
	logger.LogPhase("partial-eval", "target", name, "capabilities", pe.opts.Capabilities)

	prog, err := pe.finish(body())
	evaluationDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		compilationsTotal.WithLabelValues("error").Inc()
		logger.LogError("Partial evaluation failed", err, "target", name)
		return nil, errors.WithStack(err)
	}
	compilationsTotal.WithLabelValues("ok").Inc()
	logger.LogPhaseComplete("partial-eval", start,
		"target", name,
		"blocks", prog.Blocks.Len(),
		"instructions", pe.builder.Emitted(),
		"qubits", prog.NumQubits,
		"results", prog.NumResults)
	return prog, nil
}

// finish records the returned value and closes the current block.
func (pe *PartialEvaluator) finish(v eval.Value, ty fir.Ty, span fir.PackageSpan, err error) (*ir.Program, error) {
	if err != nil {
		return nil, err
	}
	instrs, ok := pe.outputRecording(v, ty)
	if !ok {
		return nil, newError(ErrOutputResultLiteral, span, "result literals cannot be recorded as program output")
	}
	block := pe.ctx.CurrentBlockID()
	for _, instr := range instrs {
		pe.builder.Emit(block, instr, nil)
	}
	pe.builder.Emit(block, &ir.Return{}, nil)
	instructionsEmitted.Add(float64(len(instrs) + 1))
	return pe.builder.Finish(pe.entry, pe.res.qubitCount(), pe.res.resultCount()), nil
}

func (pe *PartialEvaluator) pkg() *fir.Package {
	return pe.store.Package(pe.ctx.CurrentScope().Package)
}

func (pe *PartialEvaluator) span(s fir.Span) fir.PackageSpan {
	return fir.PackageSpan{Package: pe.ctx.CurrentScope().Package, Span: s}
}

func (pe *PartialEvaluator) metadata(span fir.PackageSpan) *ir.Metadata {
	meta := &ir.Metadata{
		Package:  uint32(span.Package),
		Lo:       span.Span.Lo,
		Hi:       span.Span.Hi,
		Callable: pe.ctx.CurrentScope().Name,
	}
	if n := len(pe.sourceBlocks); n > 0 {
		scope := uint32(pe.sourceBlocks[n-1])
		meta.Scope = &scope
	}
	if it := pe.ctx.CurrentIteration; it != nil {
		iter := *it
		meta.Iteration = &iter
	}
	return meta
}

func (pe *PartialEvaluator) emit(instr ir.Instruction, span fir.PackageSpan) {
	pe.emitTo(pe.ctx.CurrentBlockID(), instr, span)
}

func (pe *PartialEvaluator) emitTo(block ir.BlockID, instr ir.Instruction, span fir.PackageSpan) {
	pe.builder.Emit(block, instr, pe.metadata(span))
	instructionsEmitted.Inc()
}

func (pe *PartialEvaluator) newBlock() ir.BlockID {
	blocksCreated.Inc()
	return pe.builder.NewBlock()
}

func (pe *PartialEvaluator) require(caps ir.Capabilities, what string, span fir.PackageSpan) error {
	if pe.opts.Capabilities.Has(caps) {
		return nil
	}
	return newError(ErrCapability, span, "%s requires %s", what, caps)
}

// evalError attaches the frames of the calls being evaluated to an error
// raised by the classical interpreter.
func (pe *PartialEvaluator) evalError(err error) error {
	var evalErr *eval.Error
	if !errors.As(err, &evalErr) {
		return err
	}
	var frames []eval.Frame
	for _, s := range pe.ctx.scopes {
		if s.Callable != nil {
			frames = append(frames, eval.Frame{Callable: s.Name, Span: s.Caller})
		}
	}
	return evaluationFailed(evalErr.WithOuterFrames(frames))
}

func (pe *PartialEvaluator) failEval(kind eval.ErrorKind, span fir.PackageSpan, format string, args ...any) error {
	return pe.evalError(eval.NewError(kind, span, format, args...))
}

// block evaluates a source block in its own binding frame. A return from a
// dynamic branch with statements left to run is not supported.
func (pe *PartialEvaluator) block(id fir.BlockID) (eval.Value, controlFlow, error) {
	scope := pe.ctx.CurrentScope()
	pkg := pe.pkg()
	height := scope.Env.Len()
	scope.Env.PushScope()
	defer scope.Env.Truncate(height)
	pe.sourceBlocks = append(pe.sourceBlocks, id)
	defer func() { pe.sourceBlocks = pe.sourceBlocks[:len(pe.sourceBlocks)-1] }()

	stmts := pkg.Block(id).Stmts
	value, cf := eval.Unit(), cfContinue
	for i, sid := range stmts {
		stmt := pkg.Stmt(sid)
		v, c, err := pe.stmt(stmt)
		if err != nil {
			return nil, cf, err
		}
		value, cf = v, c
		if cf == cfReturn {
			if i < len(stmts)-1 && scope.IsCurrentlyEvaluatingBranch() {
				return nil, cf, newError(ErrUnimplemented, pe.span(stmt.Span), "early return")
			}
			break
		}
	}
	return value, cf, nil
}

func (pe *PartialEvaluator) stmt(stmt *fir.Stmt) (eval.Value, controlFlow, error) {
	v, cf, err := pe.expr(stmt.Expr)
	if err != nil || cf == cfReturn {
		return v, cf, err
	}
	switch stmt.Kind {
	case fir.StmtExpr:
		return v, cf, nil
	case fir.StmtLocal:
		if err := pe.bindPat(stmt.Mutable, stmt.Pat, v); err != nil {
			return nil, cf, err
		}
	}
	return eval.Unit(), cf, nil
}

// expr folds classical expressions and emits instructions for the rest.
func (pe *PartialEvaluator) expr(id fir.ExprID) (eval.Value, controlFlow, error) {
	e := pe.pkg().Expr(id)
	if e.IsClassical() {
		return pe.classicalExpr(id, e)
	}
	return pe.hybridExpr(e)
}

func (pe *PartialEvaluator) classicalExpr(id fir.ExprID, e *fir.Expr) (eval.Value, controlFlow, error) {
	scope := pe.ctx.CurrentScope()
	classicalEvaluations.Inc()
	v, err := pe.interp.Eval(scope.Package, id, scope.Env)
	if err != nil {
		return nil, cfContinue, pe.evalError(err)
	}
	if scope.HasClassicalEvaluatorReturned() {
		return v, cfReturn, nil
	}
	switch e.Kind {
	case fir.ExprAssign, fir.ExprAssignOp, fir.ExprAssignIndex:
		if err := pe.updateHybridFromClassical(e.Exprs[0]); err != nil {
			return nil, cfContinue, err
		}
	}
	return v, cfContinue, nil
}

// operand evaluates a sub-expression that must produce a value.
func (pe *PartialEvaluator) operand(id fir.ExprID, what string) (eval.Value, error) {
	v, cf, err := pe.expr(id)
	if err != nil {
		return nil, err
	}
	if cf == cfReturn {
		return nil, newError(ErrUnexpected, pe.span(pe.pkg().Expr(id).Span), "embedded return in %s", what)
	}
	return v, nil
}

func (pe *PartialEvaluator) hybridExpr(e *fir.Expr) (eval.Value, controlFlow, error) {
	span := pe.span(e.Span)
	var (
		v   eval.Value
		err error
	)
	switch e.Kind {
	case fir.ExprArray:
		var elems []eval.Value
		elems, err = pe.operands(e.Exprs, "array")
		v = eval.Array(elems)
	case fir.ExprArrayRepeat:
		v, err = pe.arrayRepeat(e)
	case fir.ExprAssign:
		if v, err = pe.operand(e.Exprs[1], "assignment"); err == nil {
			v, err = eval.Unit(), pe.updateBindings(e.Exprs[0], v)
		}
	case fir.ExprAssignIndex:
		v, err = pe.assignIndex(e)
	case fir.ExprAssignOp:
		v, err = pe.assignOp(e)
	case fir.ExprBinOp:
		v, err = pe.binOpExpr(e)
	case fir.ExprBlock:
		return pe.block(e.Block)
	case fir.ExprCall:
		v, err = pe.call(e)
	case fir.ExprFail:
		err = newError(ErrUnexpected, span, "using a dynamic value in a fail statement is invalid")
	case fir.ExprHole:
		err = newError(ErrUnexpected, span, "hole expressions are not expected during partial evaluation")
	case fir.ExprIf:
		return pe.ifExpr(e)
	case fir.ExprIndex:
		v, err = pe.index(e)
	case fir.ExprLit:
		err = newError(ErrUnexpected, span, "literal should have been classically evaluated")
	case fir.ExprRange:
		err = newError(ErrUnexpected, span, "dynamic ranges are invalid")
	case fir.ExprReturn:
		if v, err = pe.operand(e.Exprs[0], "return expression"); err == nil {
			return v, cfReturn, nil
		}
	case fir.ExprString:
		err = newError(ErrUnexpected, span, "dynamic strings are invalid")
	case fir.ExprTuple:
		var elems []eval.Value
		elems, err = pe.operands(e.Exprs, "tuple")
		v = eval.Tuple(elems)
	case fir.ExprUnOp:
		v, err = pe.unOp(e)
	case fir.ExprUpdateIndex:
		v, err = pe.updateIndex(e)
	case fir.ExprVar:
		v = pe.varValue(e)
	case fir.ExprWhile:
		return pe.while(e)
	default:
		err = newError(ErrUnexpected, span, "unknown expression kind %d", e.Kind)
	}
	return v, cfContinue, err
}

func (pe *PartialEvaluator) operands(ids []fir.ExprID, what string) ([]eval.Value, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	out := make([]eval.Value, len(ids))
	for i, id := range ids {
		v, err := pe.operand(id, what)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// varValue reads a local through the hybrid map. Variables with a known
// literal are read as that literal.
func (pe *PartialEvaluator) varValue(e *fir.Expr) eval.Value {
	if item, ok := e.ItemRes(); ok {
		return eval.Global{Item: item}
	}
	local, _ := e.LocalRes()
	scope := pe.ctx.CurrentScope()
	v := scope.GetHybridLocalValue(local)
	if dyn, ok := v.(eval.Var); ok {
		if lit, ok := scope.GetStaticValue(ir.VariableID(dyn.ID)); ok {
			return literalValue(lit)
		}
	}
	return v
}
