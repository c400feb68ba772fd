package server

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/ghoststack/sidekiq-go/internal/errutil"
	"github.com/ghoststack/sidekiq-go/internal/job"
)

func startMiniredis(t *testing.T) string {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	return "redis://" + mr.Addr()
}

func TestBuild_ZeroConcurrencyRejected(t *testing.T) {
	url := startMiniredis(t)
	b := NewBuilder().Concurrency(0).Queue("default", 1).Handler("echo", func(context.Context, *job.JobAgent) error { return nil })

	_, err := b.Build(url)
	assertConfigError(t, err, errutil.ZeroConcurrency)
}

func TestBuild_NoHandlerRejected(t *testing.T) {
	url := startMiniredis(t)
	b := NewBuilder().Queue("default", 1)

	_, err := b.Build(url)
	assertConfigError(t, err, errutil.NoJobHandler)
}

func TestBuild_NoQueueRejected(t *testing.T) {
	url := startMiniredis(t)
	b := NewBuilder().Handler("echo", func(context.Context, *job.JobAgent) error { return nil })

	_, err := b.Build(url)
	assertConfigError(t, err, errutil.ZeroQueue)
}

func TestBuild_ZeroWeightQueueRejected(t *testing.T) {
	url := startMiniredis(t)
	b := NewBuilder().Queue("default", 0).Handler("echo", func(context.Context, *job.JobAgent) error { return nil })

	_, err := b.Build(url)
	assertConfigError(t, err, errutil.ZeroWeight)
}

func TestBuild_NegativeWeightQueueRejected(t *testing.T) {
	url := startMiniredis(t)
	b := NewBuilder().Queue("default", -1.5).Handler("echo", func(context.Context, *job.JobAgent) error { return nil })

	_, err := b.Build(url)
	assertConfigError(t, err, errutil.ZeroWeight)
}

func TestBuild_FractionalWeightAccepted(t *testing.T) {
	url := startMiniredis(t)
	b := NewBuilder().
		Queue("critical", 2.5).
		Queue("default", 1.5).
		Handler("echo", func(context.Context, *job.JobAgent) error { return nil })

	if _, err := b.Build(url); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBuild_SucceedsWithValidConfig(t *testing.T) {
	url := startMiniredis(t)
	b := NewBuilder().
		Queue("default", 1).
		Handler("echo", func(context.Context, *job.JobAgent) error { return nil })

	srv, err := b.Build(url)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if srv == nil {
		t.Fatal("expected a non-nil server")
	}
}

func TestBuild_DefaultConcurrencyAppliedWhenUnset(t *testing.T) {
	url := startMiniredis(t)
	b := NewBuilder().
		Queue("default", 1).
		Handler("echo", func(context.Context, *job.JobAgent) error { return nil })

	srv, err := b.Build(url)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if srv.pool == nil {
		t.Fatal("expected a worker pool to be constructed")
	}
	if got := srv.client.Options().PoolSize; got != DefaultConcurrency {
		t.Fatalf("expected redis pool sized to default concurrency %d, got %d", DefaultConcurrency, got)
	}
}

func assertConfigError(t *testing.T, err error, kind errutil.ConfigErrorKind) {
	t.Helper()
	if err == nil {
		t.Fatal("expected an error, got nil")
	}
	var cfgErr *errutil.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected a *errutil.ConfigError, got %T: %v", err, err)
	}
	if cfgErr.Kind != kind {
		t.Fatalf("expected kind %v, got %v", kind, cfgErr.Kind)
	}
}
