package runtime

import (
	"errors"
	"fmt"

	"minilisp/interpreter-go/pkg/ast"
)

// ErrorKind classifies runtime failures. Every kind is fatal to a run.
type ErrorKind int

const (
	ErrorTypeMismatch ErrorKind = iota + 1
	ErrorUnboundVariable
	ErrorUndefinedFunction
	ErrorArityMismatch
	ErrorDivisionByZero
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorTypeMismatch:
		return "TypeMismatch"
	case ErrorUnboundVariable:
		return "UnboundVariable"
	case ErrorUndefinedFunction:
		return "UndefinedFunction"
	case ErrorArityMismatch:
		return "ArityMismatch"
	case ErrorDivisionByZero:
		return "DivisionByZero"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Sentinels for errors.Is checks against a *Error of the matching kind.
var (
	ErrTypeMismatch      = errors.New("type mismatch")
	ErrUnboundVariable   = errors.New("unbound variable")
	ErrUndefinedFunction = errors.New("undefined function")
	ErrArityMismatch     = errors.New("arity mismatch")
	ErrDivisionByZero    = errors.New("division by zero")
)

func (k ErrorKind) sentinel() error {
	switch k {
	case ErrorTypeMismatch:
		return ErrTypeMismatch
	case ErrorUnboundVariable:
		return ErrUnboundVariable
	case ErrorUndefinedFunction:
		return ErrUndefinedFunction
	case ErrorArityMismatch:
		return ErrArityMismatch
	case ErrorDivisionByZero:
		return ErrDivisionByZero
	default:
		return nil
	}
}

// Error is a runtime failure raised while evaluating a program.
type Error struct {
	Kind    ErrorKind
	Message string
	// Node is the kind of AST node being evaluated when the error arose; it is
	// empty for errors raised outside the evaluator (e.g. environment lookups).
	Node ast.NodeType
}

func (e *Error) Error() string {
	if e.Node != "" {
		return fmt.Sprintf("%s: %s (in %s)", e.Kind, e.Message, e.Node)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is lets errors.Is match the kind sentinels.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	return e.Kind.sentinel() == target
}

// Errorf builds a runtime error of the given kind.
func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the error kind from err, if it wraps a *Error.
func KindOf(err error) (ErrorKind, bool) {
	var rtErr *Error
	if errors.As(err, &rtErr) {
		return rtErr.Kind, true
	}
	return 0, false
}
