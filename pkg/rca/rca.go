// Package rca - Runtime capability analysis
// Design: Whole-program, flow-insensitive fixpoint. Sets only grow, so the
// last sweep leaves every expression annotated consistently.
package rca

import (
	"time"

	"github.com/GriffinCanCode/qirc/pkg/fir"
	"github.com/GriffinCanCode/qirc/pkg/logger"
)

type localKey struct {
	pkg   fir.PackageID
	local fir.LocalVarID
}

type analyzer struct {
	store     *fir.Store
	dynLocals map[localKey]bool
	dynOutput map[fir.ItemID]bool
	opCalls   map[fir.ItemID]bool
	changed   bool

	// callable whose body is being walked, nil for the entry expression
	current *fir.ItemID
}

// summary is what the analysis knows about one expression.
type summary struct {
	quantum bool
	dynamic bool
}

func (s summary) or(o summary) summary {
	return summary{quantum: s.quantum || o.quantum, dynamic: s.dynamic || o.dynamic}
}

// Analyze annotates every expression in the store with its compute and
// value kind. Stores already marked as annotated are left untouched.
func Analyze(store *fir.Store) {
	if store.Annotated {
		return
	}
	start := time.Now()
	a := &analyzer{
		store:     store,
		dynLocals: make(map[localKey]bool),
		dynOutput: make(map[fir.ItemID]bool),
		opCalls:   make(map[fir.ItemID]bool),
	}
	sweeps := 0
	for {
		sweeps++
		a.changed = false
		a.sweep()
		if !a.changed {
			break
		}
	}
	store.Annotated = true
	logger.Debug("Capability analysis complete",
		"sweeps", sweeps,
		"dynamic_locals", len(a.dynLocals),
		"duration", time.Since(start))
}

func (a *analyzer) sweep() {
	for _, pkg := range a.store.Packages {
		for _, item := range pkg.Items {
			decl := item.Callable
			if decl == nil || decl.Body == nil {
				continue
			}
			id := fir.ItemID{Package: pkg.ID, Item: item.ID}
			a.current = &id
			if s := a.block(pkg, *decl.Body, false); s.dynamic {
				a.markOutput(id)
			}
		}
	}
	a.current = nil
	if entry := a.store.Entry; entry != nil {
		a.expr(a.store.Package(entry.Package), entry.Expr, false)
	}
}

func (a *analyzer) markLocal(pkg fir.PackageID, local fir.LocalVarID) {
	key := localKey{pkg, local}
	if !a.dynLocals[key] {
		a.dynLocals[key] = true
		a.changed = true
	}
}

func (a *analyzer) markOutput(item fir.ItemID) {
	if !a.dynOutput[item] {
		a.dynOutput[item] = true
		a.changed = true
	}
}

func (a *analyzer) markOpCalls(item fir.ItemID) {
	if !a.opCalls[item] {
		a.opCalls[item] = true
		a.changed = true
	}
}

func (a *analyzer) isDynamic(pkg fir.PackageID, local fir.LocalVarID) bool {
	return a.dynLocals[localKey{pkg, local}]
}

// markPat marks every local bound by a pattern.
func (a *analyzer) markPat(pkg *fir.Package, id fir.PatID) {
	pat := pkg.Pat(id)
	switch pat.Kind {
	case fir.PatBind:
		a.markLocal(pkg.ID, pat.Ident.ID)
	case fir.PatTuple:
		for _, e := range pat.Elems {
			a.markPat(pkg, e)
		}
	}
}

// markAssigned marks the locals an assignment target writes.
func (a *analyzer) markAssigned(pkg *fir.Package, id fir.ExprID) {
	e := pkg.Expr(id)
	switch e.Kind {
	case fir.ExprVar:
		if local, ok := e.LocalRes(); ok {
			a.markLocal(pkg.ID, local)
		}
	case fir.ExprTuple:
		for _, sub := range e.Exprs {
			a.markAssigned(pkg, sub)
		}
	}
}

// targetDynamic reports whether any local an assignment writes is dynamic.
func (a *analyzer) targetDynamic(pkg *fir.Package, id fir.ExprID) bool {
	e := pkg.Expr(id)
	switch e.Kind {
	case fir.ExprVar:
		local, ok := e.LocalRes()
		return ok && a.isDynamic(pkg.ID, local)
	case fir.ExprTuple:
		for _, sub := range e.Exprs {
			if a.targetDynamic(pkg, sub) {
				return true
			}
		}
	}
	return false
}

func (a *analyzer) block(pkg *fir.Package, id fir.BlockID, dynCtl bool) summary {
	var s summary
	var trailing bool
	for _, sid := range pkg.Block(id).Stmts {
		stmt := pkg.Stmt(sid)
		es := a.expr(pkg, stmt.Expr, dynCtl)
		s.quantum = s.quantum || es.quantum
		trailing = false
		switch stmt.Kind {
		case fir.StmtLocal:
			if es.dynamic {
				a.markPat(pkg, stmt.Pat)
			}
		case fir.StmtExpr:
			trailing = es.dynamic
		}
	}
	s.dynamic = trailing
	return s
}

func (a *analyzer) exprs(pkg *fir.Package, ids []fir.ExprID, dynCtl bool) summary {
	var s summary
	for _, id := range ids {
		s = s.or(a.expr(pkg, id, dynCtl))
	}
	return s
}

func (a *analyzer) expr(pkg *fir.Package, id fir.ExprID, dynCtl bool) summary {
	e := pkg.Expr(id)
	return annotate(e, a.classify(pkg, e, dynCtl))
}

func annotate(e *fir.Expr, s summary) summary {
	// dynamic values can only be produced by the symbolic evaluator
	s.quantum = s.quantum || s.dynamic
	e.Compute, e.Value = fir.Classical, fir.Static
	if s.quantum {
		e.Compute = fir.Quantum
	}
	if s.dynamic {
		e.Value = fir.Dynamic
	}
	return s
}

func (a *analyzer) classify(pkg *fir.Package, e *fir.Expr, dynCtl bool) summary {
	switch e.Kind {
	case fir.ExprLit, fir.ExprString, fir.ExprHole:
		return summary{}
	case fir.ExprVar:
		if local, ok := e.LocalRes(); ok {
			dyn := a.isDynamic(pkg.ID, local)
			return summary{quantum: dyn, dynamic: dyn}
		}
		return summary{}
	case fir.ExprBlock:
		return a.block(pkg, e.Block, dynCtl)
	case fir.ExprCall:
		return a.call(pkg, e, dynCtl)
	case fir.ExprIf:
		cond := a.expr(pkg, e.Exprs[0], dynCtl)
		branches := a.exprs(pkg, e.Exprs[1:], dynCtl || cond.dynamic)
		s := cond.or(branches)
		s.dynamic = s.dynamic && !e.Ty.IsUnit()
		return s
	case fir.ExprWhile:
		cond := a.expr(pkg, e.Exprs[0], dynCtl)
		body := a.block(pkg, e.Block, dynCtl || cond.dynamic)
		return summary{quantum: cond.quantum || body.quantum}
	case fir.ExprReturn:
		s := a.expr(pkg, e.Exprs[0], dynCtl)
		if a.current != nil && (s.dynamic || dynCtl) {
			a.markOutput(*a.current)
		}
		return summary{quantum: s.quantum || dynCtl}
	case fir.ExprAssign:
		rhs := a.expr(pkg, e.Exprs[1], dynCtl)
		return a.assignment(pkg, e.Exprs[0], rhs, dynCtl)
	case fir.ExprAssignOp, fir.ExprAssignIndex:
		operands := a.exprs(pkg, e.Exprs, dynCtl)
		return a.assignment(pkg, e.Exprs[0], operands, dynCtl)
	}
	return a.exprs(pkg, e.Exprs, dynCtl)
}

// assignment marks the target dynamic when the written value is dynamic or
// the write happens under dynamic control. Writes to dynamic locals must go
// through the symbolic evaluator.
func (a *analyzer) assignment(pkg *fir.Package, target fir.ExprID, value summary, dynCtl bool) summary {
	if value.dynamic || dynCtl {
		a.markAssigned(pkg, target)
	}
	a.expr(pkg, target, dynCtl)
	return summary{quantum: value.quantum || dynCtl || a.targetDynamic(pkg, target)}
}

func (a *analyzer) call(pkg *fir.Package, e *fir.Expr, dynCtl bool) summary {
	callee := pkg.Expr(e.Exprs[0])
	item, ok := callee.ItemRes()
	a.expr(pkg, e.Exprs[0], dynCtl)
	if !ok {
		args := a.expr(pkg, e.Exprs[1], dynCtl)
		return summary{quantum: true, dynamic: args.dynamic}
	}
	decl, _ := a.store.Callable(item)
	args := a.args(pkg, e.Exprs[1], item, decl, dynCtl)

	operation := decl.Kind == fir.Operation || a.opCalls[item]
	if operation && a.current != nil {
		a.markOpCalls(*a.current)
	}
	s := summary{quantum: args.quantum || operation}
	switch {
	case decl.Body != nil:
		s.dynamic = a.dynOutput[item]
	case decl.Kind == fir.Operation:
		s.dynamic = producesRuntimeValue(decl.Output)
	case decl.Name == fir.LengthName:
		// array lengths are always known
	default:
		s.dynamic = args.dynamic
	}
	return s
}

// args walks call arguments and marks the callee parameters that receive
// dynamic values. Tuple arguments are matched element-wise when the
// parameter pattern has the same shape.
func (a *analyzer) args(pkg *fir.Package, id fir.ExprID, item fir.ItemID, decl *fir.CallableDecl, dynCtl bool) summary {
	calleePkg := a.store.Package(item.Package)
	input := calleePkg.Pat(decl.Input)
	argExpr := pkg.Expr(id)
	if input.Kind == fir.PatTuple && argExpr.Kind == fir.ExprTuple && len(input.Elems) == len(argExpr.Exprs) {
		var s summary
		for i, sub := range argExpr.Exprs {
			es := a.expr(pkg, sub, dynCtl)
			if es.dynamic {
				a.markPat(calleePkg, input.Elems[i])
			}
			s = s.or(es)
		}
		return annotate(argExpr, s)
	}
	s := a.expr(pkg, id, dynCtl)
	if s.dynamic {
		a.markPat(calleePkg, decl.Input)
	}
	return s
}

// producesRuntimeValue reports whether an intrinsic operation returning ty
// yields a value only known at run time. Qubit handles and unit are static.
func producesRuntimeValue(ty fir.Ty) bool {
	switch ty.Kind {
	case fir.TyPrim:
		return !ty.IsPrim(fir.PrimQubit)
	case fir.TyArray:
		return producesRuntimeValue(ty.Elem())
	case fir.TyTuple:
		for _, e := range ty.Elems {
			if producesRuntimeValue(e) {
				return true
			}
		}
	}
	return false
}
