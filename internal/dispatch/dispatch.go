// Package dispatch assembles the per-job pipeline: before-middleware,
// worker-hash bookkeeping, handler invocation, after-middleware, and stat
// accounting. Grounded on sidekiq-rs's pack_job(),
// translated from its continuation-passing chain into an explicit
// middleware.Result chain.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ghoststack/sidekiq-go/internal/errutil"
	"github.com/ghoststack/sidekiq-go/internal/handler"
	"github.com/ghoststack/sidekiq-go/internal/job"
	"github.com/ghoststack/sidekiq-go/internal/logger"
	"github.com/ghoststack/sidekiq-go/internal/metrics"
	"github.com/ghoststack/sidekiq-go/internal/middleware"
	"github.com/ghoststack/sidekiq-go/internal/rediskeys"
	"github.com/ghoststack/sidekiq-go/internal/resultstore"
	"github.com/redis/go-redis/v9"
)

const workerHashTTL = 5 * time.Second

// Dispatcher builds and runs the six-step pipeline for one job at a time. It
// is shared read-only across every worker goroutine; it holds no per-job
// mutable state itself.
type Dispatcher struct {
	client      *redis.Client
	ns          rediskeys.Namespace
	chain       *middleware.Chain
	handlers    *handler.Registry
	resultStore resultstore.Store
	busyEvents  chan<- BusyEvent
	metrics     *metrics.Collector
	log         logger.Logger
}

// New builds a Dispatcher. busyEvents may be nil if the caller doesn't want
// busy tracking (e.g. in isolated tests); resultStore may be nil to skip
// result persistence entirely; collector may be nil to skip in-process
// metrics.
func New(client *redis.Client, ns rediskeys.Namespace, chain *middleware.Chain, handlers *handler.Registry, resultStore resultstore.Store, busyEvents chan<- BusyEvent, collector *metrics.Collector, log logger.Logger) *Dispatcher {
	if log == nil {
		log = &logger.NoOpLogger{}
	}
	return &Dispatcher{
		client:      client,
		ns:          ns,
		chain:       chain,
		handlers:    handlers,
		resultStore: resultStore,
		busyEvents:  busyEvents,
		metrics:     collector,
		log:         log.WithComponent(logger.ComponentDispatch),
	}
}

// Dispatch runs the full pipeline for one job on the calling (worker pool)
// goroutine. workerID is the stable per-worker ID assigned by the pool.
func (d *Dispatcher) Dispatch(ctx context.Context, agent *job.JobAgent, workerID string) {
	start := time.Now()

	result := d.chain.RunBefore(middleware.Result{Agent: agent})

	if result.Err == nil {
		result = d.invokeHandler(ctx, result, workerID)
	} else {
		d.log.Debug("before middleware failed, skipping handler", "jid", agent.Job().JID, "error", result.Err.Error())
	}

	result = d.chain.RunAfter(result)

	d.recordStats(ctx, result.Err == nil)
	if d.metrics != nil {
		j := agent.Job()
		d.metrics.RecordDispatch(j.Class, j.Queue, result.Err == nil, time.Since(start))
	}
	d.persistResult(ctx, agent, result, start)
}

// invokeHandler wraps the handler call with the workers-hash set/delete
// bookkeeping, and reports busy state transitions around it.
func (d *Dispatcher) invokeHandler(ctx context.Context, in middleware.Result, workerID string) middleware.Result {
	j := in.Agent.Job()

	if _, ok := d.handlers.Get(j.Class); !ok {
		return middleware.Result{Agent: in.Agent, Err: &handler.UnknownJobClassError{Class: j.Class}}
	}

	if err := d.markBusy(ctx, workerID, j); err != nil {
		d.log.Warn("failed to set workers hash entry", "jid", j.JID, "worker_id", workerID, "error", err.Error())
	}
	d.sendBusyEvent(workerID, true)

	err := d.runHandler(ctx, in.Agent, j)

	d.sendBusyEvent(workerID, false)
	if derr := d.clearBusy(ctx, workerID); derr != nil {
		d.log.Warn("failed to clear workers hash entry", "jid", j.JID, "worker_id", workerID, "error", derr.Error())
	}

	return middleware.Result{Agent: in.Agent, Err: err}
}

// runHandler invokes the registered handler, recovering any panic into a
// PanicError so a misbehaving handler never takes down the pool. Recovering
// here, rather than only in workerpool's outer guard, keeps the panic
// inside normal dispatch flow so After stages and the terminal stats INCR
// still run for it.
func (d *Dispatcher) runHandler(ctx context.Context, agent *job.JobAgent, j *job.Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			panicErr := errutil.NewPanicError(r)
			d.log.Error("handler panicked", "jid", j.JID, "class", j.Class, "error", errutil.FormatPanicForLog(panicErr))
			err = panicErr
		}
	}()
	return d.handlers.Execute(ctx, agent)
}

func (d *Dispatcher) markBusy(ctx context.Context, workerID string, j *job.Job) error {
	payload := map[string]interface{}{
		"queue":   j.Queue,
		"payload": j,
		"run_at":  time.Now().Unix(),
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode workers hash payload: %w", err)
	}

	key := d.ns.WorkersKey()
	pipe := d.client.Pipeline()
	pipe.HSet(ctx, key, workerID, string(encoded))
	pipe.Expire(ctx, key, workerHashTTL)
	_, err = pipe.Exec(ctx)
	return err
}

func (d *Dispatcher) clearBusy(ctx context.Context, workerID string) error {
	return d.client.HDel(ctx, d.ns.WorkersKey(), workerID).Err()
}

func (d *Dispatcher) sendBusyEvent(workerID string, busy bool) {
	if d.busyEvents == nil {
		return
	}
	select {
	case d.busyEvents <- BusyEvent{WorkerID: workerID, Busy: busy}:
	default:
		d.log.Warn("busy event dropped, channel full", "worker_id", workerID)
	}
}

// recordStats performs the terminal stage's pipelined INCR of both the
// bare and date-stamped stat counters.
func (d *Dispatcher) recordStats(ctx context.Context, success bool) {
	now := time.Now()
	pipe := d.client.Pipeline()
	if success {
		pipe.Incr(ctx, d.ns.StatProcessedTodayKey(now))
		pipe.Incr(ctx, d.ns.StatProcessedKey())
	} else {
		pipe.Incr(ctx, d.ns.StatFailedTodayKey(now))
		pipe.Incr(ctx, d.ns.StatFailedKey())
	}
	if _, err := pipe.Exec(ctx); err != nil {
		d.log.Error("failed to record stat counters", "error", err.Error())
	}
}

// persistResult is an optional addition: when a ResultStore is configured,
// persist the outcome after stats are written.
// A Put failure is logged only — it never flips success/failure accounting.
func (d *Dispatcher) persistResult(ctx context.Context, agent *job.JobAgent, result middleware.Result, start time.Time) {
	if d.resultStore == nil {
		return
	}

	r := &resultstore.Result{
		JID:         agent.Job().JID,
		Success:     result.Err == nil,
		CompletedAt: time.Now(),
		Duration:    time.Since(start),
	}
	if result.Err != nil {
		r.Error = result.Err.Error()
	}

	if err := d.resultStore.Put(ctx, r); err != nil {
		d.log.Warn("failed to persist dispatch result", "jid", r.JID, "error", err.Error())
	}
}
