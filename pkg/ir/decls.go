package ir

// Names of the intrinsics the compiler emits or rewrites.
const (
	EntryName        = "main"
	MName            = "__quantum__qis__m__body"
	MResetZName      = "__quantum__qis__mresetz__body"
	ResetName        = "__quantum__qis__reset__body"
	CXName           = "__quantum__qis__cx__body"
	ReadResultName   = "__quantum__rt__read_result"
	ResultRecordName = "__quantum__rt__result_record_output"
	TupleRecordName  = "__quantum__rt__tuple_record_output"
	ArrayRecordName  = "__quantum__rt__array_record_output"
	IntRecordName    = "__quantum__rt__int_record_output"
	BoolRecordName   = "__quantum__rt__bool_record_output"
	DoubleRecordName = "__quantum__rt__double_record_output"
)

func tyPtr(t Ty) *Ty { return &t }

func intrinsic(name string, callType CallableType, out *Ty, in ...Ty) *Callable {
	return &Callable{Name: name, InputTypes: in, OutputType: out, CallType: callType}
}

// EntryDecl is the entry callable with its body at block.
func EntryDecl(block BlockID) *Callable {
	return &Callable{Name: EntryName, OutputType: tyPtr(TyInteger), Body: &block, CallType: Regular}
}

func CXDecl() *Callable { return intrinsic(CXName, Regular, nil, TyQubit, TyQubit) }

func MDecl() *Callable       { return intrinsic(MName, Measurement, nil, TyQubit, TyResult) }
func MResetZDecl() *Callable { return intrinsic(MResetZName, Measurement, nil, TyQubit, TyResult) }
func ResetDecl() *Callable   { return intrinsic(ResetName, Reset, nil, TyQubit) }

func ReadResultDecl() *Callable {
	return intrinsic(ReadResultName, Readout, tyPtr(TyBoolean), TyResult)
}

func ResultRecordDecl() *Callable {
	return intrinsic(ResultRecordName, OutputRecording, nil, TyResult, TyPointer)
}

func TupleRecordDecl() *Callable {
	return intrinsic(TupleRecordName, OutputRecording, nil, TyInteger, TyPointer)
}

func ArrayRecordDecl() *Callable {
	return intrinsic(ArrayRecordName, OutputRecording, nil, TyInteger, TyPointer)
}

func IntRecordDecl() *Callable {
	return intrinsic(IntRecordName, OutputRecording, nil, TyInteger, TyPointer)
}

func BoolRecordDecl() *Callable {
	return intrinsic(BoolRecordName, OutputRecording, nil, TyBoolean, TyPointer)
}

func DoubleRecordDecl() *Callable {
	return intrinsic(DoubleRecordName, OutputRecording, nil, TyDouble, TyPointer)
}
