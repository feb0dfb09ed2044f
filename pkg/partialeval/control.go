package partialeval

import (
	"github.com/GriffinCanCode/qirc/pkg/eval"
	"github.com/GriffinCanCode/qirc/pkg/fir"
	"github.com/GriffinCanCode/qirc/pkg/ir"
)

// ifExpr evaluates one arm of a classical conditional. A dynamic condition
// closes the current block with a branch to one block per arm, each jumping
// to a new continuation block.
func (pe *PartialEvaluator) ifExpr(e *fir.Expr) (eval.Value, controlFlow, error) {
	condSpan := pe.span(pe.pkg().Expr(e.Exprs[0]).Span)
	cond, err := pe.operand(e.Exprs[0], "if condition")
	if err != nil {
		return nil, cfContinue, err
	}
	els, hasElse := e.Else()

	switch c := cond.(type) {
	case eval.Bool:
		if c {
			return pe.expr(e.Exprs[1])
		}
		if hasElse {
			return pe.expr(els)
		}
		return eval.Unit(), cfContinue, nil
	case eval.Var:
		if c.Ty != eval.VarBool {
			break
		}
		v, err := pe.dynamicIf(e, irVar(c), condSpan)
		return v, cfContinue, err
	}
	return nil, cfContinue, newError(ErrUnexpected, condSpan, "invalid if condition %s", cond)
}

func (pe *PartialEvaluator) dynamicIf(e *fir.Expr, cond ir.Variable, condSpan fir.PackageSpan) (eval.Value, error) {
	if err := pe.require(ir.ForwardBranching, "dynamic conditional", condSpan); err != nil {
		return nil, err
	}
	var out *ir.Variable
	if !e.Ty.IsUnit() {
		ty := irTy(e.Ty)
		switch ty {
		case ir.TyBoolean, ir.TyInteger, ir.TyDouble:
		default:
			return nil, newError(ErrUnexpectedDynamicValue, pe.span(e.Span), "conditional expression of type %s", e.Ty)
		}
		v := pe.builder.NewVariable(ty)
		out = &v
	}

	current := pe.ctx.PopBlockNode()
	cont := pe.newBlock()
	pe.ctx.PushBlockNode(BlockNode{ID: cont, Successor: current.Successor})

	scope := pe.ctx.CurrentScope()
	before := scope.CloneStaticVarMap()
	ifTrue, err := pe.ifBranch(e.Exprs[1], cont, out)
	if err != nil {
		return nil, err
	}
	ifFalse := cont
	if els, ok := e.Else(); ok {
		afterTrue := scope.CloneStaticVarMap()
		scope.OverwriteStaticVarMap(before)
		if ifFalse, err = pe.ifBranch(els, cont, out); err != nil {
			return nil, err
		}
		scope.KeepMatchingStaticVarMappings(afterTrue)
	} else {
		scope.KeepMatchingStaticVarMappings(before)
	}

	pe.emitTo(current.ID, ir.NewBranch(cond, ifTrue, ifFalse), condSpan)
	if out == nil {
		return eval.Unit(), nil
	}
	return evalVar(*out), nil
}

// ifBranch evaluates one arm into its own block. The arm's value, if any,
// is stored into out.
func (pe *PartialEvaluator) ifBranch(body fir.ExprID, cont ir.BlockID, out *ir.Variable) (ir.BlockID, error) {
	block := pe.newBlock()
	pe.ctx.PushBlockNode(BlockNode{ID: block, Successor: &cont})
	span := pe.span(pe.pkg().Expr(body).Span)
	v, cf, err := pe.expr(body)
	if err != nil {
		return 0, err
	}
	if cf == cfReturn {
		return 0, newError(ErrUnimplemented, span, "early return")
	}
	if out != nil {
		pe.emit(ir.NewStore(toOperand(v), *out), span)
	}
	pe.emit(ir.NewJump(cont), span)
	pe.ctx.PopBlockNode()
	return block, nil
}

// while unrolls a loop with a classical condition.
func (pe *PartialEvaluator) while(e *fir.Expr) (eval.Value, controlFlow, error) {
	condExpr := pe.pkg().Expr(e.Exprs[0])
	condSpan := pe.span(condExpr.Span)
	if !condExpr.IsClassical() {
		return nil, cfContinue, newError(ErrUnsupported, condSpan, "loop conditions must be known at compile time")
	}

	saved := pe.ctx.CurrentIteration
	defer func() { pe.ctx.CurrentIteration = saved }()

	for iteration := 0; ; iteration++ {
		if local, ok := pe.dynamicLocalIn(e.Exprs[0]); ok {
			return nil, cfContinue, newError(ErrUnsupported, condSpan,
				"loop condition reads local %d, which became dynamic after %d unrolled iterations", local, iteration)
		}
		cond, err := pe.operand(e.Exprs[0], "loop condition")
		if err != nil {
			return nil, cfContinue, err
		}
		b, ok := cond.(eval.Bool)
		if !ok {
			return nil, cfContinue, newError(ErrUnsupported, condSpan, "loop condition %s is not a known Boolean", cond)
		}
		if !b {
			return eval.Unit(), cfContinue, nil
		}
		it := iteration
		pe.ctx.CurrentIteration = &it
		v, cf, err := pe.block(e.Block)
		if err != nil || cf == cfReturn {
			return v, cf, err
		}
	}
}

// dynamicLocalIn finds a local read by expr whose binding holds a variable
// with no known value. Such a read would see a stale classical value.
func (pe *PartialEvaluator) dynamicLocalIn(expr fir.ExprID) (fir.LocalVarID, bool) {
	pkg := pe.pkg()
	scope := pe.ctx.CurrentScope()
	var found *fir.LocalVarID
	var walk func(id fir.ExprID)
	walk = func(id fir.ExprID) {
		if found != nil {
			return
		}
		e := pkg.Expr(id)
		if local, ok := e.LocalRes(); ok {
			v, bound := scope.hybrid[local]
			if dyn, isVar := v.(eval.Var); bound && isVar {
				if _, known := scope.GetStaticValue(ir.VariableID(dyn.ID)); !known {
					found = &local
				}
			}
			return
		}
		for _, sub := range e.Exprs {
			walk(sub)
		}
	}
	walk(expr)
	if found == nil {
		return 0, false
	}
	return *found, true
}

func (pe *PartialEvaluator) index(e *fir.Expr) (eval.Value, error) {
	arr, err := pe.operand(e.Exprs[0], "array expression")
	if err != nil {
		return nil, err
	}
	idx, err := pe.operand(e.Exprs[1], "index expression")
	if err != nil {
		return nil, err
	}
	a, ok := arr.(eval.Array)
	if !ok {
		return nil, newError(ErrUnexpected, pe.span(e.Span), "cannot index into %s", arr)
	}
	idxSpan := pe.span(pe.pkg().Expr(e.Exprs[1]).Span)
	switch i := idx.(type) {
	case eval.Int:
		if i < 0 || int(i) >= len(a) {
			return nil, pe.failEval(eval.ErrIndexOutOfRange, idxSpan, "index %d out of range for length %d", i, len(a))
		}
		return a[i], nil
	case eval.Range:
		n := i.Len()
		out := make(eval.Array, 0, n)
		for k := range n {
			at := i.At(k)
			if at < 0 || at >= int64(len(a)) {
				return nil, pe.failEval(eval.ErrIndexOutOfRange, idxSpan, "index %d out of range for length %d", at, len(a))
			}
			out = append(out, a[at])
		}
		return out, nil
	case eval.Var:
		return nil, newError(ErrUnsupported, idxSpan, "dynamic array indices are not supported")
	}
	return nil, newError(ErrUnexpected, idxSpan, "invalid index %s", idx)
}

func (pe *PartialEvaluator) updateIndex(e *fir.Expr) (eval.Value, error) {
	arr, err := pe.operand(e.Exprs[0], "array expression")
	if err != nil {
		return nil, err
	}
	a, ok := arr.(eval.Array)
	if !ok {
		return nil, newError(ErrUnexpected, pe.span(e.Span), "cannot update %s", arr)
	}
	return pe.arrayUpdate(a, e.Exprs[1], e.Exprs[2])
}

func (pe *PartialEvaluator) assignIndex(e *fir.Expr) (eval.Value, error) {
	target := pe.pkg().Expr(e.Exprs[0])
	local, ok := target.LocalRes()
	if !ok {
		return nil, newError(ErrUnexpected, pe.span(target.Span), "invalid assignment target")
	}
	a, ok := pe.ctx.CurrentScope().GetHybridLocalValue(local).(eval.Array)
	if !ok {
		return nil, newError(ErrUnexpected, pe.span(target.Span), "cannot update a non-array local")
	}
	updated, err := pe.arrayUpdate(a, e.Exprs[1], e.Exprs[2])
	if err != nil {
		return nil, err
	}
	return eval.Unit(), pe.updateBindings(e.Exprs[0], updated)
}

// arrayUpdate returns a copy of a with the elements at index replaced.
// Ranges replace successive elements with those of an array value.
func (pe *PartialEvaluator) arrayUpdate(a eval.Array, index, value fir.ExprID) (eval.Value, error) {
	idx, err := pe.operand(index, "index expression")
	if err != nil {
		return nil, err
	}
	v, err := pe.operand(value, "update value")
	if err != nil {
		return nil, err
	}
	idxSpan := pe.span(pe.pkg().Expr(index).Span)
	out := make(eval.Array, len(a))
	copy(out, a)
	switch i := idx.(type) {
	case eval.Int:
		if i < 0 || int(i) >= len(a) {
			return nil, pe.failEval(eval.ErrIndexOutOfRange, idxSpan, "index %d out of range for length %d", i, len(a))
		}
		out[i] = v
		return out, nil
	case eval.Range:
		elems, ok := v.(eval.Array)
		if !ok {
			return nil, newError(ErrUnexpected, idxSpan, "range updates need an array value, got %s", v)
		}
		for k := range min(i.Len(), int64(len(elems))) {
			at := i.At(k)
			if at < 0 || at >= int64(len(a)) {
				return nil, pe.failEval(eval.ErrIndexOutOfRange, idxSpan, "index %d out of range for length %d", at, len(a))
			}
			out[at] = elems[k]
		}
		return out, nil
	case eval.Var:
		return nil, newError(ErrUnsupported, idxSpan, "dynamic array indices are not supported")
	}
	return nil, newError(ErrUnexpected, idxSpan, "invalid index %s", idx)
}

func (pe *PartialEvaluator) arrayRepeat(e *fir.Expr) (eval.Value, error) {
	v, err := pe.operand(e.Exprs[0], "array value")
	if err != nil {
		return nil, err
	}
	size, err := pe.operand(e.Exprs[1], "array size")
	if err != nil {
		return nil, err
	}
	sizeSpan := pe.span(pe.pkg().Expr(e.Exprs[1]).Span)
	n, ok := size.(eval.Int)
	if !ok {
		return nil, newError(ErrUnsupported, sizeSpan, "array sizes must be known at compile time")
	}
	if n < 0 {
		return nil, pe.failEval(eval.ErrInvalidArrayLength, sizeSpan, "array length %d is negative", n)
	}
	if n > eval.MaxArrayLength {
		return nil, pe.failEval(eval.ErrInvalidArrayLength, sizeSpan, "array length %d exceeds %d", n, eval.MaxArrayLength)
	}
	out := make(eval.Array, n)
	for i := range out {
		out[i] = v
	}
	return out, nil
}
