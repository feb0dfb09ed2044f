package partialeval

import (
	"fmt"

	"github.com/GriffinCanCode/qirc/pkg/eval"
	"github.com/GriffinCanCode/qirc/pkg/fir"
	"github.com/GriffinCanCode/qirc/pkg/ir"
)

func (pe *PartialEvaluator) bindPat(mutable bool, id fir.PatID, v eval.Value) error {
	pat := pe.pkg().Pat(id)
	switch pat.Kind {
	case fir.PatBind:
		pe.bindIdent(mutable, pat.Ident, v)
	case fir.PatTuple:
		tup, ok := v.(eval.Tuple)
		if !ok || len(tup) != len(pat.Elems) {
			return newError(ErrUnexpected, pe.span(pat.Span), "cannot destructure %s into %d elements", v, len(pat.Elems))
		}
		for i, elem := range pat.Elems {
			if err := pe.bindPat(mutable, elem, tup[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

// bindIdent binds a local in both maps. Immutable copies of variables whose
// value is not known are given their own variable so later writes to the
// source are not observed.
func (pe *PartialEvaluator) bindIdent(mutable bool, ident *fir.Ident, v eval.Value) {
	scope := pe.ctx.CurrentScope()
	if !mutable {
		dyn, isVar := v.(eval.Var)
		if !isVar {
			pe.bindClassical(ident, v)
			scope.InsertHybridLocalValue(ident.ID, v)
			return
		}
		if _, known := scope.GetStaticValue(ir.VariableID(dyn.ID)); known {
			scope.InsertHybridLocalValue(ident.ID, v)
			return
		}
	}
	if _, isVar := v.(eval.Var); !isVar {
		pe.bindClassical(ident, v)
	}
	if !pe.newMutableVariable(ident, v) {
		scope.InsertHybridLocalValue(ident.ID, v)
	}
}

func (pe *PartialEvaluator) bindClassical(ident *fir.Ident, v eval.Value) {
	pe.ctx.CurrentScope().Env.Bind(ident.ID, &eval.Variable{Name: ident.Name, Value: v, Span: ident.Span})
}

// newMutableVariable backs a scalar local with a variable holding its
// current value. Values of other types are bound directly.
func (pe *PartialEvaluator) newMutableVariable(ident *fir.Ident, v eval.Value) bool {
	ty, ok := varTyOf(v)
	if !ok {
		return false
	}
	scope := pe.ctx.CurrentScope()
	variable := pe.builder.NewVariable(irTyOf(ty))
	scope.InsertHybridLocalValue(ident.ID, evalVar(variable))
	op := toOperand(v)
	pe.emit(ir.NewStore(op, variable), pe.span(ident.Span))
	if lit, ok := op.Literal(); ok {
		scope.InsertStaticVarMapping(variable.ID, lit)
	}
	return true
}

// updateBindings writes v to an assignment target.
func (pe *PartialEvaluator) updateBindings(lhs fir.ExprID, v eval.Value) error {
	e := pe.pkg().Expr(lhs)
	switch e.Kind {
	case fir.ExprHole:
		return nil
	case fir.ExprVar:
		local, ok := e.LocalRes()
		if !ok {
			break
		}
		if err := pe.updateHybridLocal(e, local, v); err != nil {
			return err
		}
		pe.updateClassicalLocal(local, v)
		return nil
	case fir.ExprTuple:
		tup, ok := v.(eval.Tuple)
		if !ok || len(tup) != len(e.Exprs) {
			break
		}
		for i, sub := range e.Exprs {
			if err := pe.updateBindings(sub, tup[i]); err != nil {
				return err
			}
		}
		return nil
	}
	return newError(ErrUnexpected, pe.span(e.Span), "invalid assignment target")
}

// updateClassicalLocal keeps the interpreter's view in sync. Writes under
// dynamic control are not visible classically.
func (pe *PartialEvaluator) updateClassicalLocal(local fir.LocalVarID, v eval.Value) {
	scope := pe.ctx.CurrentScope()
	if scope.IsCurrentlyEvaluatingBranch() {
		return
	}
	if _, isVar := v.(eval.Var); isVar {
		return
	}
	scope.Env.Update(local, v)
}

func (pe *PartialEvaluator) updateHybridLocal(e *fir.Expr, local fir.LocalVarID, v eval.Value) error {
	scope := pe.ctx.CurrentScope()
	bound := scope.GetHybridLocalValue(local)
	if dyn, ok := bound.(eval.Var); ok {
		variable := irVar(dyn)
		op := toOperand(v)
		pe.emit(ir.NewStore(op, variable), pe.span(e.Span))
		if lit, ok := op.Literal(); ok {
			scope.InsertStaticVarMapping(variable.ID, lit)
		} else {
			scope.RemoveStaticValue(variable.ID)
		}
		return nil
	}
	if scope.IsCurrentlyEvaluatingBranch() {
		return newError(ErrUnexpected, pe.span(e.Span), "re-assignment within a dynamic branch is unsupported for type %s", e.Ty)
	}
	scope.UpdateHybridLocalValue(local, v)
	return nil
}

// updateHybridFromClassical mirrors a classical assignment into the hybrid
// map.
func (pe *PartialEvaluator) updateHybridFromClassical(lhs fir.ExprID) error {
	e := pe.pkg().Expr(lhs)
	switch e.Kind {
	case fir.ExprHole:
		return nil
	case fir.ExprVar:
		local, ok := e.LocalRes()
		if !ok {
			break
		}
		v := pe.ctx.CurrentScope().GetClassicalLocalValue(local)
		return pe.updateHybridLocal(e, local, v)
	case fir.ExprTuple:
		for _, sub := range e.Exprs {
			if err := pe.updateHybridFromClassical(sub); err != nil {
				return err
			}
		}
		return nil
	}
	return newError(ErrUnexpected, pe.span(e.Span), "invalid assignment target")
}

// Value and operand conversions.

func varTyOf(v eval.Value) (eval.VarTy, bool) {
	switch v := v.(type) {
	case eval.Bool:
		return eval.VarBool, true
	case eval.Int:
		return eval.VarInt, true
	case eval.Double:
		return eval.VarDouble, true
	case eval.Var:
		return v.Ty, true
	}
	return 0, false
}

func irTyOf(t eval.VarTy) ir.Ty {
	switch t {
	case eval.VarBool:
		return ir.TyBoolean
	case eval.VarInt:
		return ir.TyInteger
	}
	return ir.TyDouble
}

func irVar(v eval.Var) ir.Variable {
	return ir.Variable{ID: ir.VariableID(v.ID), Ty: irTyOf(v.Ty)}
}

func evalVar(v ir.Variable) eval.Var {
	var ty eval.VarTy
	switch v.Ty {
	case ir.TyBoolean:
		ty = eval.VarBool
	case ir.TyInteger:
		ty = eval.VarInt
	case ir.TyDouble:
		ty = eval.VarDouble
	default:
		panic(fmt.Sprintf("variable of type %s cannot hold a value", v.Ty))
	}
	return eval.Var{ID: uint32(v.ID), Ty: ty}
}

// irTy maps a source type to the type of an intrinsic parameter or result.
func irTy(t fir.Ty) ir.Ty {
	if t.Kind == fir.TyPrim {
		switch t.Prim {
		case fir.PrimQubit:
			return ir.TyQubit
		case fir.PrimResult:
			return ir.TyResult
		case fir.PrimBool:
			return ir.TyBoolean
		case fir.PrimInt:
			return ir.TyInteger
		case fir.PrimDouble:
			return ir.TyDouble
		}
	}
	return ir.TyPointer
}

// toOperand converts a value that can appear as an instruction argument.
func toOperand(v eval.Value) ir.Operand {
	switch v := v.(type) {
	case eval.Bool:
		return ir.Lit(ir.Bool(bool(v)))
	case eval.Int:
		return ir.Lit(ir.Integer(int64(v)))
	case eval.Double:
		return ir.Lit(ir.Double(float64(v)))
	case *eval.Qubit:
		return ir.Lit(ir.Qubit(v.ID))
	case eval.ResultID:
		return ir.Lit(ir.Result(uint32(v)))
	case eval.ResultVal:
		return ir.Lit(ir.Bool(bool(v)))
	case eval.Var:
		return ir.Var(irVar(v))
	}
	panic(fmt.Sprintf("%s cannot be mapped to an operand", v))
}

func literalValue(lit ir.Literal) eval.Value {
	switch lit.Kind {
	case ir.LitBool:
		return eval.Bool(lit.Bool)
	case ir.LitInteger:
		return eval.Int(lit.Int)
	case ir.LitDouble:
		return eval.Double(lit.Double)
	}
	panic(fmt.Sprintf("literal %s cannot be used as a value", lit))
}
