package reporter

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/ghoststack/sidekiq-go/internal/rediskeys"
	"github.com/redis/go-redis/v9"
)

func setupMiniredis(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestReportAlive_WritesIdentityHashAndProcessesSet(t *testing.T) {
	client := setupMiniredis(t)
	ns := rediskeys.Namespace{Prefix: "myapp", ServerID: "host1:123"}

	r := New(client, ns, 10, []string{"default", "critical"}, func() int64 { return 3 }, nil)

	if err := r.ReportAlive(context.Background()); err != nil {
		t.Fatalf("report_alive: %v", err)
	}

	ctx := context.Background()
	identityKey := ns.WithNamespace(ns.Identity())

	fields, err := client.HGetAll(ctx, identityKey).Result()
	if err != nil {
		t.Fatalf("hgetall: %v", err)
	}
	if fields["busy"] != "3" {
		t.Errorf("expected busy=3, got %q", fields["busy"])
	}
	if fields["info"] == "" {
		t.Error("expected info field to be set")
	}
	if fields["beat"] == "" {
		t.Error("expected beat field to be set")
	}

	ttl, err := client.TTL(ctx, identityKey).Result()
	if err != nil {
		t.Fatalf("ttl: %v", err)
	}
	if ttl <= 0 {
		t.Errorf("expected a positive TTL, got %v", ttl)
	}

	isMember, err := client.SIsMember(ctx, ns.ProcessesKey(), ns.Identity()).Result()
	if err != nil {
		t.Fatalf("sismember: %v", err)
	}
	if !isMember {
		t.Error("expected identity to be a member of the processes set")
	}
}
