package dispatch

import "sync/atomic"

// BusyEvent reports a worker entering or leaving the busy state. Dispatch
// sends these; nothing else writes to worker_info directly — busy state is
// passed back over a channel rather than shared and mutated in place.
type BusyEvent struct {
	WorkerID string
	Busy     bool
}

// BusyTracker owns the only mutable view of worker busy/idle counts. It is
// driven by a single aggregator goroutine (started when the server is
// constructed) draining
// dispatch's BusyEvent channel, so Count is safe to read concurrently from
// the reporter without any lock on the write side racing a worker goroutine.
type BusyTracker struct {
	count atomic.Int64
}

// NewBusyTracker builds an empty tracker.
func NewBusyTracker() *BusyTracker {
	return &BusyTracker{}
}

// Apply updates the busy count for one event. Call only from the owning
// aggregator goroutine.
func (t *BusyTracker) Apply(ev BusyEvent) {
	if ev.Busy {
		t.count.Add(1)
	} else {
		t.count.Add(-1)
	}
}

// Run drains events until ch is closed, applying each to the tracker. It is
// the body of the single aggregator goroutine that owns the busy count.
func (t *BusyTracker) Run(ch <-chan BusyEvent) {
	for ev := range ch {
		t.Apply(ev)
	}
}

// Count returns the current busy worker count. Safe for concurrent reads,
// e.g. from the liveness reporter's BusyCounter callback.
func (t *BusyTracker) Count() int64 {
	return t.count.Load()
}
