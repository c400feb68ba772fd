// Package errutil carries the server's panic-to-error conversion and
// builder validation error kinds.
package errutil

import (
	"fmt"
	"runtime/debug"
)

// PanicError is a panic recovered from a worker goroutine, turned into an
// ordinary error so it can flow through the same failure accounting as a
// handler returning an error — a worker panic becomes a job failure, never
// pool death.
type PanicError struct {
	Value      interface{}
	Stacktrace string
}

func (p *PanicError) Error() string {
	return fmt.Sprintf("panic recovered: %v", p.Value)
}

// NewPanicError wraps an already-recovered panic value. recover() only has
// effect when called directly inside a deferred function, so callers must
// do `if r := recover(); r != nil { err := errutil.NewPanicError(r) }`
// themselves rather than deferring this function.
func NewPanicError(value interface{}) *PanicError {
	return &PanicError{Value: value, Stacktrace: string(debug.Stack())}
}

// FormatPanicForLog renders a PanicError for a log line.
func FormatPanicForLog(panicErr *PanicError) string {
	return fmt.Sprintf("panic: %v\n%s", panicErr.Value, panicErr.Stacktrace)
}
