// Package handler maps a job's class name to the user-registered function
// that performs it, taking the JobAgent the middleware chain already
// carries instead of a bare job.Job, and returning a typed
// UnknownJobClass error rather than a generic fmt.Errorf.
package handler

import (
	"context"
	"fmt"

	"github.com/ghoststack/sidekiq-go/internal/job"
)

// Func performs one job. It receives the agent so it can read (and, if it
// needs to, mutate) the underlying Job.
type Func func(ctx context.Context, agent *job.JobAgent) error

// UnknownJobClassError is returned when no handler is registered for a
// job's class.
type UnknownJobClassError struct {
	Class string
}

func (e *UnknownJobClassError) Error() string {
	return fmt.Sprintf("no handler registered for job class %q", e.Class)
}

// Registry maps job class names to their handler.
type Registry struct {
	handlers map[string]Func
}

// NewRegistry creates an empty handler registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Func)}
}

// Register adds a handler for a job class, overwriting any prior handler
// registered for the same class.
func (r *Registry) Register(class string, fn Func) {
	r.handlers[class] = fn
}

// Get retrieves a handler by class name.
func (r *Registry) Get(class string) (Func, bool) {
	fn, ok := r.handlers[class]
	return fn, ok
}

// Count returns the number of registered handlers.
func (r *Registry) Count() int {
	return len(r.handlers)
}

// Execute runs the handler registered for agent's class, or returns
// UnknownJobClassError if none is registered.
func (r *Registry) Execute(ctx context.Context, agent *job.JobAgent) error {
	fn, ok := r.Get(agent.Class())
	if !ok {
		return &UnknownJobClassError{Class: agent.Class()}
	}
	return fn(ctx, agent)
}
