package errs

import "fmt"

// Kind classifies engine errors so callers can branch on failure class
// without string matching.
type Kind string

const (
	SyntaxError       Kind = "SyntaxError"
	CompileError      Kind = "CompilationError"
	TypeError         Kind = "RuntimeTypeError"
	UndefinedName     Kind = "UndefinedNameError"
	StackUnderflow    Kind = "StackUnderflowError"
	IndexOutOfBounds  Kind = "IndexOutOfBoundsError"
	DivisionByZero    Kind = "DivisionByZeroError"
	InvalidBytecode   Kind = "InvalidBytecodeError"
	RuntimeError      Kind = "RuntimeError"
)

// FlowError is the engine's error value. Line is 0 when no source
// position is known.
type FlowError struct {
	Kind    Kind
	Message string
	Line    int
}

func (e *FlowError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s: %s (line %d)", e.Kind, e.Message, e.Line)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func New(kind Kind, format string, args ...interface{}) *FlowError {
	return &FlowError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NewAt(kind Kind, line int, format string, args ...interface{}) *FlowError {
	return &FlowError{Kind: kind, Line: line, Message: fmt.Sprintf(format, args...)}
}

func Syntax(line int, format string, args ...interface{}) *FlowError {
	return NewAt(SyntaxError, line, format, args...)
}

func Compile(line int, format string, args ...interface{}) *FlowError {
	return NewAt(CompileError, line, format, args...)
}

func Type(format string, args ...interface{}) *FlowError {
	return New(TypeError, format, args...)
}

func Undefined(name string) *FlowError {
	return New(UndefinedName, "undefined name '%s'", name)
}

func Runtime(format string, args ...interface{}) *FlowError {
	return New(RuntimeError, format, args...)
}

// IsKind reports whether err is a FlowError of the given kind.
func IsKind(err error, kind Kind) bool {
	fe, ok := err.(*FlowError)
	return ok && fe.Kind == kind
}
