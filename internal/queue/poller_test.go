package queue

import (
	"context"
	"testing"
	"time"

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

func TestPoll_DecodesJobAndStampsNamespace(t *testing.T) {
	client := setupMiniredis(t)
	ns := rediskeys.Namespace{Prefix: "myapp"}

	payload := `{"class":"SendEmail","args":[],"queue":"default","jid":"abc1"}`
	if err := client.LPush(context.Background(), ns.QueueName("default"), payload).Err(); err != nil {
		t.Fatalf("seed queue: %v", err)
	}

	p := NewPoller(client, ns, []WeightedQueue{{Name: "default", Weight: 1}})
	j, err := p.Poll(context.Background())
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if j == nil {
		t.Fatal("expected a job, got nil")
	}
	if j.Class != "SendEmail" || j.JID != "abc1" {
		t.Errorf("unexpected job: %+v", j)
	}
	if j.Namespace != "myapp" {
		t.Errorf("expected namespace stamped, got %q", j.Namespace)
	}
}

func TestPoll_TimesOutToNilJob(t *testing.T) {
	client := setupMiniredis(t)
	ns := rediskeys.Namespace{}

	p := NewPoller(client, ns, []WeightedQueue{{Name: "empty", Weight: 1}})

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	// miniredis's BRPOP honors the blocking timeout argument, so a short
	// context here just bounds the test; the real timeout is BlockTimeout.
	j, err := p.Poll(ctx)
	if err != nil && err != context.DeadlineExceeded {
		t.Fatalf("unexpected error: %v", err)
	}
	if err == nil && j != nil {
		t.Fatalf("expected no job from an empty queue, got %+v", j)
	}
}

func TestPoll_RetryInfoGetsRetriedAtStamp(t *testing.T) {
	client := setupMiniredis(t)
	ns := rediskeys.Namespace{}

	payload := `{"class":"SendEmail","args":[],"queue":"default","jid":"abc2","retry_info":{"retry_count":1,"failed_at":"2026-01-01T00:00:00Z"}}`
	if err := client.LPush(context.Background(), ns.QueueName("default"), payload).Err(); err != nil {
		t.Fatalf("seed queue: %v", err)
	}

	p := NewPoller(client, ns, []WeightedQueue{{Name: "default", Weight: 1}})
	j, err := p.Poll(context.Background())
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if j.RetryInfo == nil || j.RetryInfo.RetriedAt == nil {
		t.Fatal("expected RetriedAt to be stamped")
	}
}

func TestPick_SingleQueueAlwaysReturnsIt(t *testing.T) {
	p := &Poller{queues: []WeightedQueue{{Name: "only", Weight: 5}}, total: 5}
	for i := 0; i < 10; i++ {
		if got := p.pick(); got != "only" {
			t.Errorf("expected only, got %q", got)
		}
	}
}

func TestPick_ZeroWeightQueueNeverChosen(t *testing.T) {
	p := &Poller{
		queues: []WeightedQueue{{Name: "never", Weight: 0}, {Name: "always", Weight: 10}},
		total:  10,
	}
	for i := 0; i < 50; i++ {
		if got := p.pick(); got != "always" {
			t.Errorf("expected always, got %q", got)
		}
	}
}
