package workerpool

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestPool_RunsSubmittedTasks(t *testing.T) {
	p := New(3, 10, nil)

	var count atomic.Int64
	var wg sync.WaitGroup
	wg.Add(10)
	for i := 0; i < 10; i++ {
		p.Submit(func(worker string) {
			count.Add(1)
			wg.Done()
		})
	}
	wg.Wait()
	p.Close()

	if count.Load() != 10 {
		t.Errorf("expected 10 tasks run, got %d", count.Load())
	}
}

func TestPool_WorkerIDIsStablePerGoroutine(t *testing.T) {
	p := New(1, 1, nil)

	var first, second string
	var wg sync.WaitGroup
	wg.Add(2)
	p.Submit(func(worker string) {
		first = worker
		wg.Done()
	})
	p.Submit(func(worker string) {
		second = worker
		wg.Done()
	})
	wg.Wait()
	p.Close()

	if first == "" || second == "" {
		t.Fatal("expected worker IDs to be set")
	}
	if first != second {
		t.Errorf("expected the same single worker to handle both tasks, got %q and %q", first, second)
	}
	if len(first) != 9 {
		t.Errorf("expected a 9-character worker ID, got %q", first)
	}
}

func TestPool_PanicInTaskDoesNotKillWorker(t *testing.T) {
	p := New(1, 2, nil)

	done := make(chan struct{})
	p.Submit(func(worker string) {
		panic("boom")
	})
	p.Submit(func(worker string) {
		close(done)
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("expected pool to keep processing after a panicking task")
	}
	p.Close()
}
