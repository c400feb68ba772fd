package rediskeys

import (
	"testing"
	"time"
)

func TestWithNamespace_Empty(t *testing.T) {
	n := Namespace{}
	if got := n.WithNamespace("processes"); got != "processes" {
		t.Errorf("expected no prefix, got %q", got)
	}
}

func TestWithNamespace_Prefixed(t *testing.T) {
	n := Namespace{Prefix: "myapp"}
	if got := n.WithNamespace("processes"); got != "myapp:processes" {
		t.Errorf("expected myapp:processes, got %q", got)
	}
}

func TestQueueName(t *testing.T) {
	n := Namespace{Prefix: "myapp"}
	if got := n.QueueName("default"); got != "myapp:queue:default" {
		t.Errorf("expected myapp:queue:default, got %q", got)
	}
}

func TestWorkersKey_IncludesServerID(t *testing.T) {
	n := Namespace{Prefix: "myapp", ServerID: "host1:123"}
	if got := n.WorkersKey(); got != "myapp:host1:123:workers" {
		t.Errorf("expected myapp:host1:123:workers, got %q", got)
	}
}

func TestRetryKey_Namespaced(t *testing.T) {
	n := Namespace{Prefix: "myapp"}
	if got := n.RetryKey(); got != "myapp:retry" {
		t.Errorf("expected myapp:retry, got %q", got)
	}
}

func TestStatProcessedTodayKey_UsesUTCDate(t *testing.T) {
	n := Namespace{Prefix: "myapp"}
	ts := time.Date(2026, 7, 30, 23, 59, 0, 0, time.FixedZone("EST", -5*3600))
	got := n.StatProcessedTodayKey(ts)
	want := "myapp:stat:processed:2026-07-31"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}
