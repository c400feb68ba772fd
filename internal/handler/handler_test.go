package handler

import (
	"context"
	"errors"
	"testing"

	"github.com/ghoststack/sidekiq-go/internal/job"
)

func TestRegistry_ExecuteRunsRegisteredHandler(t *testing.T) {
	r := NewRegistry()
	called := false
	r.Register("SendEmail", func(ctx context.Context, agent *job.JobAgent) error {
		called = true
		return nil
	})

	agent := job.NewAgent(job.New("SendEmail", "default", "jid1"))
	if err := r.Execute(context.Background(), agent); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Fatal("expected handler to be called")
	}
}

func TestRegistry_ExecuteUnknownClass(t *testing.T) {
	r := NewRegistry()
	agent := job.NewAgent(job.New("Mystery", "default", "jid1"))

	err := r.Execute(context.Background(), agent)
	var unknownErr *UnknownJobClassError
	if !errors.As(err, &unknownErr) {
		t.Fatalf("expected UnknownJobClassError, got %v", err)
	}
	if unknownErr.Class != "Mystery" {
		t.Errorf("expected class Mystery, got %q", unknownErr.Class)
	}
}

func TestRegistry_Count(t *testing.T) {
	r := NewRegistry()
	r.Register("A", func(context.Context, *job.JobAgent) error { return nil })
	r.Register("B", func(context.Context, *job.JobAgent) error { return nil })
	if r.Count() != 2 {
		t.Errorf("expected 2 handlers, got %d", r.Count())
	}
}
