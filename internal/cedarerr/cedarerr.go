// Package cedarerr implements cedar's error reporting: thrown values carry
// a Kind, a source Location, and a formatted call-stack dump, wrapping
// github.com/pkg/errors for the cause chain instead of a bare string so
// a cedarerr.Error retains %+v-able stack traces from whatever caused it
// at the Go level (an os.Open failure inside a builtin, say), layered
// underneath the cedar-level call stack that belongs to the fiber.
package cedarerr

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Kind classifies a thrown value: arity, type, division-by-zero,
// index-out-of-range, unbound symbol, plus the reader/compiler-time kinds.
type Kind string

const (
	KindSyntax        Kind = "SyntaxError"
	KindCompile       Kind = "CompileError"
	KindType          Kind = "TypeError"
	KindArity         Kind = "ArityError"
	KindArithmetic    Kind = "ArithmeticError"
	KindIndexRange    Kind = "IndexRangeError"
	KindUnbound       Kind = "UnboundError"
	KindImport        Kind = "ImportError"
	KindRuntime       Kind = "RuntimeError"
	KindSerialization Kind = "SerializationError"
)

// Location is a source position.
type Location struct {
	File   string
	Line   int
	Column int
}

// StackFrame is one cedar-level call-stack entry: a lambda name plus the
// position of its current instruction, recorded by the VM as it unwinds
// on error (§4.8).
type StackFrame struct {
	Function string
	Location Location
}

// Error is a cedar-domain error: a Kind, a message, an optional source
// location, and the fiber call stack active when it was raised. It wraps
// an underlying cause (possibly nil) via github.com/pkg/errors so Go-level
// stack traces survive when a builtin's host-side error becomes a cedar
// error.
type Error struct {
	Kind      Kind
	Message   string
	Location  Location
	CallStack []StackFrame
	Source    string
	cause     error
}

func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches cause to a new cedarerr.Error, using pkg/errors so the
// Go-level stack trace at the wrap site is preserved for diagnostics.
func Wrap(cause error, kind Kind, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		cause:   errors.WithStack(cause),
	}
}

func (e *Error) Unwrap() error { return e.cause }

func (e *Error) At(file string, line, col int) *Error {
	e.Location = Location{File: file, Line: line, Column: col}
	return e
}

func (e *Error) WithSource(src string) *Error {
	e.Source = src
	return e
}

func (e *Error) Push(frame StackFrame) *Error {
	e.CallStack = append(e.CallStack, frame)
	return e
}

// Error implements error, rendering a multi-line report: type+message,
// location with a source-line caret, then a call-stack dump, in that
// order.
func (e *Error) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %s\n", e.Kind, e.Message)

	if e.Location.File != "" {
		fmt.Fprintf(&sb, "  at %s:%d:%d\n", e.Location.File, e.Location.Line, e.Location.Column)
		if e.Source != "" {
			fmt.Fprintf(&sb, "\n  %d | %s\n", e.Location.Line, e.Source)
			gutter := fmt.Sprintf("%d | ", e.Location.Line)
			sb.WriteString("  " + strings.Repeat(" ", len(gutter)))
			if e.Location.Column > 0 {
				sb.WriteString(strings.Repeat(" ", e.Location.Column-1))
			}
			sb.WriteString("^\n")
		}
	}

	if len(e.CallStack) > 0 {
		sb.WriteString("\nCall Stack:\n")
		for _, f := range e.CallStack {
			if f.Function != "" {
				fmt.Fprintf(&sb, "  at %s (%s:%d:%d)\n", f.Function, f.Location.File, f.Location.Line, f.Location.Column)
			} else {
				fmt.Fprintf(&sb, "  at %s:%d:%d\n", f.Location.File, f.Location.Line, f.Location.Column)
			}
		}
	}

	if e.cause != nil {
		fmt.Fprintf(&sb, "\nCaused by: %v\n", e.cause)
	}

	return sb.String()
}
