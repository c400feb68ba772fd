// Package middleware implements the before/after chain wrapped around a
// handler invocation.
//
// Grounded on sidekiq-rs's Middleware trait (before/after
// hooks over a boxed future): the Rust crate threads a deferred
// continuation through before/after closures, replaced here with an
// explicit Result chain so no boxed-future erasure is needed.
package middleware

import "github.com/ghoststack/sidekiq-go/internal/job"

// Result is the value threaded through a dispatch pipeline: the job agent on
// success, or an error that later After stages may inspect or suppress.
type Result struct {
	Agent *job.JobAgent
	Err   error
}

// Stage is one middleware's before/after hooks. Before runs on the inbound
// leg before the handler; After runs on the outbound leg after it, in the
// same registration order, and may turn a failed Result back into a
// successful one (this is how retry-style middleware suppresses a failure).
type Stage interface {
	Before(in Result) Result
	After(in Result) Result
}

// Chain is an ordered, registered sequence of stages.
type Chain struct {
	stages []Stage
}

// NewChain builds a Chain from stages in registration order.
func NewChain(stages ...Stage) *Chain {
	return &Chain{stages: stages}
}

// RunBefore applies each stage's Before hook in registration order.
func (c *Chain) RunBefore(in Result) Result {
	out := in
	for _, s := range c.stages {
		out = s.Before(out)
	}
	return out
}

// RunAfter applies each stage's After hook in registration order. It still
// runs even when in carries a failure — that is exactly how an After stage
// gets the chance to convert it to success.
func (c *Chain) RunAfter(in Result) Result {
	out := in
	for _, s := range c.stages {
		out = s.After(out)
	}
	return out
}
