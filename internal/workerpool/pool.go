// Package workerpool runs dispatch pipelines on a fixed number of worker
// goroutines, isolating the control loop from blocking on job execution.
//
// Grounded on a fixed goroutine count, WaitGroup-tracked shutdown, and panic
// recovery wrapping each unit of work, adapted from "each worker polls Redis
// itself" to "a fixed-size pool of workers executes dispatched pipelines" —
// here the control loop does the polling and Submits work, and the pool
// applies backpressure via a bounded channel rather than workers looping on
// their own dequeue.
package workerpool

import (
	"math/rand"
	"sync"

	"github.com/ghoststack/sidekiq-go/internal/errutil"
	"github.com/ghoststack/sidekiq-go/internal/logger"
)

const idAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Task is one unit of dispatched work. worker is this goroutine's stable
// 9-character ID, used as the field name in the workers hash.
type Task func(worker string)

// Pool is a fixed-size pool of worker goroutines fed by a bounded channel.
// Submit blocks once the channel is full, which is how backpressure reaches
// back to the control loop without it needing to know pool internals.
type Pool struct {
	tasks chan Task
	wg    sync.WaitGroup
	log   logger.Logger
}

// New starts a Pool of size workers, each with a freshly generated 9-char
// ID. queueDepth bounds how many submitted tasks may wait before Submit
// blocks.
func New(size, queueDepth int, log logger.Logger) *Pool {
	if log == nil {
		log = &logger.NoOpLogger{}
	}
	p := &Pool{
		tasks: make(chan Task, queueDepth),
		log:   log.WithComponent(logger.ComponentWorker),
	}
	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go p.run(workerID())
	}
	return p
}

// workerID generates a 9-character alphanumeric ID, assigned once per
// worker goroutine for its lifetime.
func workerID() string {
	b := make([]byte, 9)
	for i := range b {
		b[i] = idAlphabet[rand.Intn(len(idAlphabet))]
	}
	return string(b)
}

// Submit enqueues a task for execution, blocking if every worker is busy
// and the queue is full. This is the control loop's only blocking point
// attributable to the pool.
func (p *Pool) Submit(t Task) {
	p.tasks <- t
}

// Close stops accepting new tasks and waits for in-flight and queued tasks
// to finish. Callers enforce any drain deadline themselves (a
// force-quit timeout) by racing this against a timer.
func (p *Pool) Close() {
	close(p.tasks)
	p.wg.Wait()
}

func (p *Pool) run(id string) {
	defer p.wg.Done()
	for t := range p.tasks {
		p.runOne(id, t)
	}
}

// runOne executes one task, converting any panic into a log line rather
// than letting it kill the worker goroutine, so a panic never means pool
// death. No stat counter is touched here; handler panics are turned into
// job failures earlier, by the dispatcher. recover() must be called
// directly inside this deferred closure to take effect.
func (p *Pool) runOne(id string, t Task) {
	defer func() {
		if r := recover(); r != nil {
			err := errutil.NewPanicError(r)
			p.log.Error("worker task panicked", "worker_id", id, "error", err.Error())
		}
	}()
	t(id)
}
