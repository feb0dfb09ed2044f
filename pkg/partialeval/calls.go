package partialeval

import (
	"github.com/GriffinCanCode/qirc/pkg/eval"
	"github.com/GriffinCanCode/qirc/pkg/fir"
	"github.com/GriffinCanCode/qirc/pkg/ir"
)

// Intrinsics that only matter to simulators or resource estimators.
var noopIntrinsics = map[string]bool{
	"DumpMachine":                  true,
	"DumpRegister":                 true,
	"DumpOperation":                true,
	"AccountForEstimatesInternal":  true,
	"BeginRepeatEstimatesInternal": true,
	"EndRepeatEstimatesInternal":   true,
	"ApplyIdleNoise":               true,
	"GlobalPhase":                  true,
}

var randomIntrinsics = map[string]bool{
	"DrawRandomInt":    true,
	"DrawRandomDouble": true,
	"DrawRandomBool":   true,
}

func (pe *PartialEvaluator) call(e *fir.Expr) (eval.Value, error) {
	span := pe.span(e.Span)
	callee, err := pe.operand(e.Exprs[0], "callee expression")
	if err != nil {
		return nil, err
	}
	args, err := pe.operand(e.Exprs[1], "call arguments")
	if err != nil {
		return nil, err
	}
	global, ok := callee.(eval.Global)
	if !ok {
		return nil, newError(ErrUnexpected, span, "%s is not callable", callee)
	}
	decl, ok := pe.store.Callable(global.Item)
	if !ok {
		return nil, newError(ErrUnexpected, span, "%s is not a callable", global.Item)
	}
	if decl.Body == nil {
		return pe.intrinsic(global.Item, decl, args, span)
	}
	return pe.callSpec(global.Item, decl, args, span)
}

// callSpec evaluates a callable body in a new frame.
func (pe *PartialEvaluator) callSpec(item fir.ItemID, decl *fir.CallableDecl, args eval.Value, span fir.PackageSpan) (eval.Value, error) {
	if pe.ctx.Depth() > pe.opts.MaxCallDepth {
		return nil, newError(ErrUnsupported, span, "call depth exceeds %d frames while calling %s", pe.opts.MaxCallDepth, decl.Name)
	}
	resolved, err := resolveArgs(pe.store.Package(item.Package), decl.Input, args)
	if err != nil {
		return nil, newError(ErrUnexpected, span, "calling %s: %v", decl.Name, err)
	}
	scope := NewScope(item.Package, &item, decl.Name, resolved)
	scope.Caller = span
	pe.ctx.PushScope(scope)
	defer pe.ctx.PopScope()

	v, _, err := pe.block(*decl.Body)
	return v, err
}

// resolveArgs matches an argument value against a parameter pattern.
func resolveArgs(pkg *fir.Package, id fir.PatID, v eval.Value) ([]Arg, error) {
	pat := pkg.Pat(id)
	switch pat.Kind {
	case fir.PatBind:
		return []Arg{{Local: pat.Ident.ID, Name: pat.Ident.Name, Span: pat.Ident.Span, Value: v}}, nil
	case fir.PatDiscard:
		return []Arg{{Value: v, Discard: true}}, nil
	}
	tup, ok := v.(eval.Tuple)
	if !ok || len(tup) != len(pat.Elems) {
		return nil, eval.NewError(eval.ErrTypeMismatch, fir.PackageSpan{Package: pkg.ID, Span: pat.Span},
			"cannot match %s against %d parameters", v, len(pat.Elems))
	}
	var out []Arg
	for i, elem := range pat.Elems {
		args, err := resolveArgs(pkg, elem, tup[i])
		if err != nil {
			return nil, err
		}
		out = append(out, args...)
	}
	return out, nil
}

// intrinsic handles calls to body-less callables.
func (pe *PartialEvaluator) intrinsic(item fir.ItemID, decl *fir.CallableDecl, args eval.Value, span fir.PackageSpan) (eval.Value, error) {
	for _, q := range eval.Qubits(args) {
		if !q.Released {
			continue
		}
		if decl.Name == fir.QubitReleaseName {
			return nil, pe.failEval(eval.ErrQubitDoubleRelease, span, "qubit %d released twice", q.ID)
		}
		return nil, pe.failEval(eval.ErrQubitUsedAfterRelease, span, "qubit %d used after release", q.ID)
	}
	if decl.HasAttr(fir.AttrMeasurement) {
		return pe.measureQubits(item, decl, args, span)
	}
	if decl.HasAttr(fir.AttrReset) {
		return pe.qisCall(item, decl, args, ir.Reset, span)
	}

	switch name := decl.Name; {
	case name == fir.QubitAllocateName:
		return pe.res.allocateQubit(), nil
	case name == fir.QubitReleaseName:
		q, ok := args.(*eval.Qubit)
		if !ok {
			return nil, newError(ErrUnexpected, span, "cannot release %s", args)
		}
		pe.res.releaseQubit(q)
		return eval.Unit(), nil
	case name == fir.MName:
		return pe.measureQubit(ir.MDecl(), args, span)
	case name == fir.MResetZName:
		return pe.measureQubit(ir.MResetZDecl(), args, span)
	case name == fir.LengthName:
		arr, ok := args.(eval.Array)
		if !ok {
			return nil, newError(ErrUnexpected, span, "cannot take the length of %s", args)
		}
		return eval.Int(len(arr)), nil
	case name == "BeginEstimateCaching":
		return eval.Bool(true), nil
	case name == "CheckZero":
		return nil, newError(ErrUnsupportedSimulationIntrinsic, span, "%s", name)
	case noopIntrinsics[name]:
		return eval.Unit(), nil
	case randomIntrinsics[name]:
		return nil, newError(ErrUnexpected, span, "`%s` is not supported by partial evaluation", name)
	}
	return pe.qisCall(item, decl, args, ir.Regular, span)
}

func (pe *PartialEvaluator) measureQubit(c *ir.Callable, args eval.Value, span fir.PackageSpan) (eval.Value, error) {
	q, ok := args.(*eval.Qubit)
	if !ok {
		return nil, newError(ErrUnexpected, span, "cannot measure %s", args)
	}
	result := pe.res.allocateResult()
	id := pe.builder.Intern(c)
	pe.emit(ir.NewCall(id, []ir.Operand{ir.Lit(ir.Qubit(q.ID)), ir.Lit(ir.Result(result))}, nil), span)
	return eval.ResultID(result), nil
}

// measureQubits lowers a custom measurement: qubits are passed first, then
// one fresh result per result the declaration returns.
func (pe *PartialEvaluator) measureQubits(item fir.ItemID, decl *fir.CallableDecl, args eval.Value, span fir.PackageSpan) (eval.Value, error) {
	var operands []ir.Operand
	var inputs []ir.Ty
	for _, q := range eval.Qubits(args) {
		operands = append(operands, ir.Lit(ir.Qubit(q.ID)))
		inputs = append(inputs, ir.TyQubit)
	}

	var results []eval.Value
	addResult := func() {
		r := pe.res.allocateResult()
		operands = append(operands, ir.Lit(ir.Result(r)))
		inputs = append(inputs, ir.TyResult)
		results = append(results, eval.ResultID(r))
	}
	out := decl.Output
	switch {
	case out.IsPrim(fir.PrimResult):
		addResult()
	case out.Kind == fir.TyTuple && !out.IsUnit():
		for _, elem := range out.Elems {
			if !elem.IsPrim(fir.PrimResult) {
				return nil, newError(ErrUnexpected, span, "measurement %s returns %s", decl.Name, out)
			}
			addResult()
		}
	default:
		return nil, newError(ErrUnexpected, span, "measurement %s returns %s", decl.Name, out)
	}

	id := pe.builder.Intern(&ir.Callable{Name: decl.Name, InputTypes: inputs, CallType: ir.Measurement})
	pe.emit(ir.NewCall(id, operands, nil), span)
	if out.Kind == fir.TyTuple {
		return eval.Tuple(results), nil
	}
	return results[0], nil
}

// qisCall emits a call to an intrinsic. Intrinsics returning a value write
// it into a fresh variable.
func (pe *PartialEvaluator) qisCall(item fir.ItemID, decl *fir.CallableDecl, args eval.Value, callType ir.CallableType, span fir.PackageSpan) (eval.Value, error) {
	pkg := pe.store.Package(item.Package)
	if decl.Name == fir.ResetName {
		callType = ir.Reset
	}
	c := &ir.Callable{
		Name:       decl.Name,
		InputTypes: inputTypes(pkg, decl.Input),
		CallType:   callType,
	}
	var out *ir.Variable
	if !decl.Output.IsUnit() {
		ty := irTy(decl.Output)
		switch ty {
		case ir.TyBoolean, ir.TyInteger, ir.TyDouble:
		default:
			return nil, newError(ErrUnexpectedDynamicIntrinsicReturnType, span, "%s", decl.Output)
		}
		c.OutputType = &ty
		v := pe.builder.NewVariable(ty)
		out = &v
	}

	resolved, err := resolveArgs(pkg, decl.Input, args)
	if err != nil {
		return nil, newError(ErrUnexpected, span, "calling %s: %v", decl.Name, err)
	}
	operands := make([]ir.Operand, 0, len(resolved))
	for _, arg := range resolved {
		if !isOperandValue(arg.Value) {
			return nil, newError(ErrUnexpected, span, "%s cannot be passed to %s", arg.Value, decl.Name)
		}
		operands = append(operands, toOperand(arg.Value))
	}

	id := pe.builder.Intern(c)
	pe.emit(ir.NewCall(id, operands, out), span)
	if out == nil {
		return eval.Unit(), nil
	}
	return evalVar(*out), nil
}

// isOperandValue reports whether v can be passed to an intrinsic. Result
// literals have no operand form of type Result.
func isOperandValue(v eval.Value) bool {
	switch v.(type) {
	case eval.Bool, eval.Int, eval.Double, *eval.Qubit, eval.ResultID, eval.Var:
		return true
	}
	return false
}

// inputTypes flattens a parameter pattern into intrinsic parameter types.
func inputTypes(pkg *fir.Package, id fir.PatID) []ir.Ty {
	pat := pkg.Pat(id)
	if pat.Kind != fir.PatTuple {
		if pat.Ty.IsUnit() {
			return nil
		}
		return []ir.Ty{irTy(pat.Ty)}
	}
	var out []ir.Ty
	for _, elem := range pat.Elems {
		out = append(out, inputTypes(pkg, elem)...)
	}
	return out
}
