package partialeval

import (
	"fmt"

	"github.com/GriffinCanCode/qirc/pkg/eval"
	"github.com/GriffinCanCode/qirc/pkg/fir"
	"github.com/GriffinCanCode/qirc/pkg/ir"
)

// outputRecording builds the calls that record the program's return value.
// It reports false when the value contains a result literal, which has no
// run-time representation.
func (pe *PartialEvaluator) outputRecording(v eval.Value, ty fir.Ty) ([]ir.Instruction, bool) {
	var instrs []ir.Instruction
	ok := pe.record(v, ty, &instrs)
	return instrs, ok
}

func (pe *PartialEvaluator) record(v eval.Value, ty fir.Ty, instrs *[]ir.Instruction) bool {
	recordCall := func(decl *ir.Callable, value ir.Operand) {
		id := pe.builder.Intern(decl)
		*instrs = append(*instrs, ir.NewCall(id, []ir.Operand{value, ir.Lit(ir.Pointer())}, nil))
	}

	switch v := v.(type) {
	case eval.ResultVal:
		return false
	case eval.Array:
		recordCall(ir.ArrayRecordDecl(), ir.Lit(ir.Integer(int64(len(v)))))
		for _, elem := range v {
			if !pe.record(elem, ty.Elem(), instrs) {
				return false
			}
		}
	case eval.Tuple:
		recordCall(ir.TupleRecordDecl(), ir.Lit(ir.Integer(int64(len(v)))))
		for i, elem := range v {
			if !pe.record(elem, ty.Elems[i], instrs) {
				return false
			}
		}
	case eval.ResultID:
		recordCall(ir.ResultRecordDecl(), ir.Lit(ir.Result(uint32(v))))
	case eval.Var:
		recordCall(recordDecl(v.Ty), ir.Var(irVar(v)))
	case eval.Bool:
		recordCall(ir.BoolRecordDecl(), ir.Lit(ir.Bool(bool(v))))
	case eval.Int:
		recordCall(ir.IntRecordDecl(), ir.Lit(ir.Integer(int64(v))))
	case eval.Double:
		recordCall(ir.DoubleRecordDecl(), ir.Lit(ir.Double(float64(v))))
	default:
		panic(fmt.Sprintf("cannot record %s of type %s as output", v, ty))
	}
	return true
}

func recordDecl(ty eval.VarTy) *ir.Callable {
	switch ty {
	case eval.VarBool:
		return ir.BoolRecordDecl()
	case eval.VarInt:
		return ir.IntRecordDecl()
	}
	return ir.DoubleRecordDecl()
}
