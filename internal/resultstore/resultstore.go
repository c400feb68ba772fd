// Package resultstore is an optional dispatcher add-on: when a Store is
// configured on the Builder, the dispatcher's terminal stage persists the
// handler's outcome after the processed/failed counters are written. Uses a
// plain JSON payload rather than a protobuf-aware result type, since the
// Sidekiq job wire format this core speaks is JSON-only end to end.
package resultstore

import (
	"context"
	"encoding/json"
	"time"
)

// Result is the outcome of one dispatch, success or failure.
type Result struct {
	JID         string          `json:"jid"`
	Success     bool            `json:"success"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Error       string          `json:"error,omitempty"`
	CompletedAt time.Time       `json:"completed_at"`
	Duration    time.Duration   `json:"duration"`
}

// Store persists and retrieves dispatch results. Implementations must treat
// Put as best-effort from the dispatcher's point of view: a Put failure is
// logged, never allowed to flip a dispatch's success/failure accounting.
type Store interface {
	Put(ctx context.Context, result *Result) error
	Get(ctx context.Context, jid string) (*Result, error)
	Close() error
}
