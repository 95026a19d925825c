package compiler

import (
	"fmt"

	"github.com/wisplang/wisp/internal/typedast"
)

// Error is a compile-time failure: an unknown identifier, an unsupported
// call form, a missing/duplicate struct field, a wrong enum payload
// arity, or any other node the lowering rules cannot handle. Compilation
// stops at the first one returned.
type Error struct {
	Span    typedast.Span
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("compile error at %d:%d: %s", e.Span.StartLine, e.Span.StartColumn, e.Message)
}

func errorf(span typedast.Span, format string, args ...any) *Error {
	return &Error{Span: span, Message: fmt.Sprintf(format, args...)}
}
