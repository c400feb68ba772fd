// Package server assembles and runs the worker server: the Builder
// validates configuration and wires the connection pool, and Server runs
// the select-loop control thread.
//
// Grounded on sidekiq-rs's SidekiqServerBuilder and a
// builder-style config validation pattern, returning typed
// errutil.ConfigError kinds instead of bare fmt.Errorf strings.
package server

import (
	"context"
	"fmt"
	"time"

	"github.com/ghoststack/sidekiq-go/internal/errutil"
	"github.com/ghoststack/sidekiq-go/internal/handler"
	"github.com/ghoststack/sidekiq-go/internal/logger"
	"github.com/ghoststack/sidekiq-go/internal/metrics"
	"github.com/ghoststack/sidekiq-go/internal/middleware"
	"github.com/ghoststack/sidekiq-go/internal/queue"
	"github.com/ghoststack/sidekiq-go/internal/rediskeys"
	"github.com/ghoststack/sidekiq-go/internal/resultstore"
	"github.com/redis/go-redis/v9"
)

// DefaultConcurrency is the worker pool size when Concurrency is never
// called.
const DefaultConcurrency = 10

// DefaultForceQuitTimeout is how long a graceful (SIGUSR1) shutdown waits
// for in-flight work before returning anyway.
const DefaultForceQuitTimeout = 10 * time.Second

// Builder collects configuration and produces a Server. Create one with
// NewBuilder (the zero value has no handler registry, so Handler panics on
// it); call the configuration methods (Concurrency, Queue, Handler, ...)
// then Build.
type Builder struct {
	concurrency      int
	concurrencySet   bool
	queues           []queue.WeightedQueue
	handlers         *handler.Registry
	middlewares      []middleware.Stage
	namespace        string
	forceQuitTimeout time.Duration
	logger           logger.Logger
	resultStore      resultstore.Store
	metrics          *metrics.Collector
}

// NewBuilder creates an empty Builder with an initialized handler registry.
func NewBuilder() *Builder {
	return &Builder{handlers: handler.NewRegistry()}
}

// Concurrency sets the worker pool size. Must be >= 1; 0 is rejected at
// Build time, not here, so callers can build up a Builder before deciding.
func (b *Builder) Concurrency(n int) *Builder {
	b.concurrency = n
	b.concurrencySet = true
	return b
}

// Queue registers one (name, weight) pair. weight must be > 0; rejected at
// Build time, not here. Repeatable.
func (b *Builder) Queue(name string, weight float64) *Builder {
	b.queues = append(b.queues, queue.WeightedQueue{Name: name, Weight: weight})
	return b
}

// Handler registers a handler for a job class, unique by class name.
func (b *Builder) Handler(class string, fn handler.Func) *Builder {
	b.handlers.Register(class, fn)
	return b
}

// Middleware appends a stage to the ordered middleware chain.
func (b *Builder) Middleware(stage middleware.Stage) *Builder {
	b.middlewares = append(b.middlewares, stage)
	return b
}

// Namespace sets the key prefix. Default "".
func (b *Builder) Namespace(ns string) *Builder {
	b.namespace = ns
	return b
}

// ForceQuitTimeout sets how long a graceful shutdown waits for in-flight
// work. Default DefaultForceQuitTimeout.
func (b *Builder) ForceQuitTimeout(d time.Duration) *Builder {
	b.forceQuitTimeout = d
	return b
}

// Logger sets the logger passed to every component. Defaults to a console
// logger (logger.DefaultConfig()) if never called, so a server never
// silently discards logs.
func (b *Builder) Logger(log logger.Logger) *Builder {
	b.logger = log
	return b
}

// ResultStore optionally wires result persistence into the dispatcher's
// terminal stage.
func (b *Builder) ResultStore(store resultstore.Store) *Builder {
	b.resultStore = store
	return b
}

// Metrics optionally supplies a shared metrics.Collector; if never called,
// Build creates a private one (reachable as Server.Metrics).
func (b *Builder) Metrics(collector *metrics.Collector) *Builder {
	b.metrics = collector
	return b
}

// Build validates the configuration, establishes the Redis connection pool
// sized to concurrency, captures startup identity, and returns a running-
// ready Server. It does not start the control loop; call Server.Start for
// that.
func (b *Builder) Build(redisURL string) (*Server, error) {
	concurrency := b.concurrency
	if !b.concurrencySet {
		concurrency = DefaultConcurrency
	} else if concurrency < 1 {
		return nil, errutil.NewConfigError(errutil.ZeroConcurrency, "concurrency must be >= 1")
	}

	if b.handlers.Count() == 0 {
		return nil, errutil.NewConfigError(errutil.NoJobHandler, "no job handlers registered")
	}
	if len(b.queues) == 0 {
		return nil, errutil.NewConfigError(errutil.ZeroQueue, "no queues registered")
	}
	for _, q := range b.queues {
		if q.Weight <= 0 {
			return nil, errutil.NewConfigError(errutil.ZeroWeight, fmt.Sprintf("queue %q has weight %v, must be > 0", q.Name, q.Weight))
		}
	}

	forceQuitTimeout := b.forceQuitTimeout
	if forceQuitTimeout == 0 {
		forceQuitTimeout = DefaultForceQuitTimeout
	}

	log := b.logger
	if log == nil {
		var err error
		log, err = logger.NewLogger(logger.DefaultConfig())
		if err != nil {
			return nil, fmt.Errorf("build default logger: %w", err)
		}
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, errutil.NewConfigError(errutil.RedisPool, fmt.Sprintf("invalid redis url: %v", err))
	}
	opts.PoolSize = concurrency
	client := redis.NewClient(opts)

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, errutil.NewConfigError(errutil.RedisPool, fmt.Sprintf("redis unreachable: %v", err))
	}

	ns := rediskeys.New(b.namespace)

	return newServer(serverConfig{
		client:           client,
		ns:               ns,
		concurrency:      concurrency,
		queues:           b.queues,
		handlers:         b.handlers,
		chain:            middleware.NewChain(b.middlewares...),
		forceQuitTimeout: forceQuitTimeout,
		log:              log,
		resultStore:      b.resultStore,
		metrics:          b.metrics,
	}), nil
}
