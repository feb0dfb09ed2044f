package ir

import "fmt"

// Type assertions run when an instruction is built. A failure means the
// caller produced ill-typed IR, so they panic instead of returning an error.

func assertSameInputs(op string, lhs, rhs Ty) {
	if lhs != rhs {
		panic(fmt.Sprintf("mismatched input types (%s, %s) for %s", lhs.QIRName(), rhs.QIRName(), op))
	}
}

func assertBinaryTypes(op string, lhs, rhs, out, want Ty) {
	assertSameInputs(op, lhs, rhs)
	if lhs != out {
		panic(fmt.Sprintf("mismatched input/output types (%s, %s) for %s", lhs.QIRName(), out.QIRName(), op))
	}
	if out != want {
		panic(fmt.Sprintf("unsupported type %s for %s", out.QIRName(), op))
	}
}

func assertUnaryTypes(op string, value, out, want Ty) {
	if value != out {
		panic(fmt.Sprintf("mismatched input/output types (%s, %s) for %s", value.QIRName(), out.QIRName(), op))
	}
	if out != want {
		panic(fmt.Sprintf("unsupported type %s for %s", out.QIRName(), op))
	}
}

func assertSameType(op string, value, out Ty) {
	if value != out {
		panic(fmt.Sprintf("mismatched input/output types (%s, %s) for %s", value.QIRName(), out.QIRName(), op))
	}
}

func assertComparisonOutput(op string, out Ty) {
	if out != TyBoolean {
		panic(fmt.Sprintf("unsupported output type %s for %s", out.QIRName(), op))
	}
}

func assertPhiTypes(incoming []PhiArg, out Ty) {
	if len(incoming) == 0 {
		panic("phi instruction should have at least one argument")
	}
	for _, arg := range incoming {
		if ty := arg.Value.Type(); ty != out {
			panic(fmt.Sprintf("mismatched types (%s [... %s]) for phi", out.QIRName(), ty.QIRName()))
		}
	}
}

// CheckTypes re-runs the construction checks over every instruction in the
// program. passes.Run calls it after the pipeline to catch hand-built
// instructions that skipped the constructors.
func CheckTypes(p *Program) {
	for _, block := range p.Blocks.All() {
		for _, instr := range block.Instrs {
			switch i := instr.(type) {
			case *Store:
				NewStore(i.Value, i.Var)
			case *Branch:
				NewBranch(i.Cond, i.IfTrue, i.IfFalse)
			case *BinOp:
				NewBinOp(i.Op, i.LHS, i.RHS, i.Var)
			case *UnOp:
				NewUnOp(i.Op, i.Value, i.Var)
			case *Icmp:
				NewIcmp(i.Cond, i.LHS, i.RHS, i.Var)
			case *Fcmp:
				NewFcmp(i.Cond, i.LHS, i.RHS, i.Var)
			case *Phi:
				NewPhi(i.Incoming, i.Var)
			case *Call:
				checkCallArgs(p, i)
			}
		}
	}
}

func checkCallArgs(p *Program, call *Call) {
	callable := p.Callable(call.Callee)
	if len(call.Args) != len(callable.InputTypes) {
		panic(fmt.Sprintf("mismatched argument count (%d, %d) for call to %s", len(call.Args), len(callable.InputTypes), callable.Name))
	}
	for i, arg := range call.Args {
		if arg.Type() != callable.InputTypes[i] {
			panic(fmt.Sprintf("mismatched argument types (%s, %s) for call to %s", arg.Type().QIRName(), callable.InputTypes[i].QIRName(), callable.Name))
		}
	}
	switch {
	case call.Var == nil && callable.OutputType != nil:
		panic(fmt.Sprintf("missing output variable for call to %s", callable.Name))
	case call.Var != nil && (callable.OutputType == nil || *callable.OutputType != call.Var.Ty):
		panic(fmt.Sprintf("mismatched output type %s for call to %s", call.Var.Ty.QIRName(), callable.Name))
	}
}
