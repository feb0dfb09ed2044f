package partialeval

import (
	"fmt"

	"github.com/GriffinCanCode/qirc/pkg/eval"
	"github.com/GriffinCanCode/qirc/pkg/fir"
)

// ErrorKind classifies partial evaluation failures.
type ErrorKind uint8

const (
	ErrCapability ErrorKind = iota
	ErrUnexpectedDynamicValue
	ErrUnexpectedDynamicIntrinsicReturnType
	ErrEvaluationFailed
	ErrOutputResultLiteral
	ErrUnexpected
	ErrUnimplemented
	ErrUnsupported
	ErrUnsupportedSimulationIntrinsic
)

var errorKindNames = []string{
	"capability",
	"unexpected dynamic value",
	"unexpected dynamic intrinsic return type",
	"evaluation failed",
	"output result literal",
	"unexpected",
	"unimplemented",
	"unsupported",
	"unsupported simulation intrinsic",
}

func (k ErrorKind) String() string {
	if int(k) < len(errorKindNames) {
		return errorKindNames[k]
	}
	return "unknown"
}

// Error is a fatal partial evaluation failure. Failures raised by the
// classical interpreter keep their call stack in Eval.
type Error struct {
	Kind    ErrorKind
	Message string
	Span    fir.PackageSpan
	Eval    *eval.Error
}

func newError(kind ErrorKind, span fir.PackageSpan, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Span: span}
}

func evaluationFailed(err *eval.Error) *Error {
	return &Error{Kind: ErrEvaluationFailed, Message: err.Message, Span: err.Span, Eval: err}
}

func (e *Error) Error() string {
	if e.Eval != nil {
		return "partial evaluation failed: " + e.Eval.Error()
	}
	msg := fmt.Sprintf("partial evaluation error [%s] at %s", e.Kind, e.Span)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

func (e *Error) Unwrap() error {
	if e.Eval == nil {
		return nil
	}
	return e.Eval
}
