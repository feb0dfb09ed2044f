package eval

import (
	"fmt"
	"strings"

	"github.com/GriffinCanCode/qirc/pkg/fir"
)

// ErrorKind classifies evaluation failures.
type ErrorKind uint8

const (
	ErrDivZero ErrorKind = iota
	ErrIndexOutOfRange
	ErrNegativeExponent
	ErrInvalidArrayLength
	ErrEmptyRange
	ErrUserFail
	ErrQubitUsedAfterRelease
	ErrQubitDoubleRelease
	ErrUnboundLocal
	ErrQuantumInClassical
	ErrTypeMismatch
	ErrUnsupported
)

var errorKindNames = []string{
	"division by zero",
	"index out of range",
	"negative exponent",
	"invalid array length",
	"empty range",
	"program failed",
	"qubit used after release",
	"qubit double release",
	"unbound local",
	"quantum operation in classical context",
	"type mismatch",
	"unsupported",
}

func (k ErrorKind) String() string {
	if int(k) < len(errorKindNames) {
		return errorKindNames[k]
	}
	return "unknown"
}

// Frame is one entry of the call stack at the point of failure.
type Frame struct {
	Callable string
	Span     fir.PackageSpan
}

// Error is a failure raised while evaluating a program.
type Error struct {
	Kind    ErrorKind
	Message string
	Span    fir.PackageSpan
	Stack   []Frame
}

// NewError creates an evaluation error without call-stack context.
func NewError(kind ErrorKind, span fir.PackageSpan, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Span: span}
}

func (e *Error) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "evaluation error [%s] at %s", e.Kind, e.Span)
	if e.Message != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Message)
	}
	for i := len(e.Stack) - 1; i >= 0; i-- {
		fmt.Fprintf(&sb, "\n    in %s at %s", e.Stack[i].Callable, e.Stack[i].Span)
	}
	return sb.String()
}

// WithOuterFrames prepends frames from enclosing evaluators.
func (e *Error) WithOuterFrames(frames []Frame) *Error {
	stack := make([]Frame, 0, len(frames)+len(e.Stack))
	stack = append(stack, frames...)
	e.Stack = append(stack, e.Stack...)
	return e
}
