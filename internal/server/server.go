package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ghoststack/sidekiq-go/internal/dispatch"
	"github.com/ghoststack/sidekiq-go/internal/handler"
	"github.com/ghoststack/sidekiq-go/internal/job"
	"github.com/ghoststack/sidekiq-go/internal/logger"
	"github.com/ghoststack/sidekiq-go/internal/metrics"
	"github.com/ghoststack/sidekiq-go/internal/middleware"
	"github.com/ghoststack/sidekiq-go/internal/queue"
	"github.com/ghoststack/sidekiq-go/internal/rediskeys"
	"github.com/ghoststack/sidekiq-go/internal/reporter"
	"github.com/ghoststack/sidekiq-go/internal/resultstore"
	"github.com/ghoststack/sidekiq-go/internal/workerpool"
	"github.com/redis/go-redis/v9"
)

type serverConfig struct {
	client           *redis.Client
	ns               rediskeys.Namespace
	concurrency      int
	queues           []queue.WeightedQueue
	handlers         *handler.Registry
	chain            *middleware.Chain
	forceQuitTimeout time.Duration
	log              logger.Logger
	resultStore      resultstore.Store
	metrics          *metrics.Collector
}

// Server runs the control loop: a single goroutine select over OS signals,
// context cancellation, and poll-readiness, dispatching matched jobs onto a
// bounded worker pool. The heartbeat runs on its own reporter goroutine.
type Server struct {
	client           *redis.Client
	ns               rediskeys.Namespace
	forceQuitTimeout time.Duration
	log              logger.Logger

	poller     *queue.Poller
	pool       *workerpool.Pool
	dispatcher *dispatch.Dispatcher
	reporter   *reporter.Reporter
	busy       *dispatch.BusyTracker
	Metrics    *metrics.Collector

	queueNames []string
}

func newServer(cfg serverConfig) *Server {
	busyEvents := make(chan dispatch.BusyEvent, cfg.concurrency*2)
	busy := dispatch.NewBusyTracker()
	go busy.Run(busyEvents)

	pool := workerpool.New(cfg.concurrency, cfg.concurrency*2, cfg.log)

	collector := cfg.metrics
	if collector == nil {
		collector = metrics.NewCollector()
	}
	dispatcher := dispatch.New(cfg.client, cfg.ns, cfg.chain, cfg.handlers, cfg.resultStore, busyEvents, collector, cfg.log)

	queueNames := make([]string, len(cfg.queues))
	for i, q := range cfg.queues {
		queueNames[i] = q.Name
	}

	rep := reporter.New(cfg.client, cfg.ns, cfg.concurrency, queueNames, busy.Count, cfg.log)

	return &Server{
		client:           cfg.client,
		ns:               cfg.ns,
		forceQuitTimeout: cfg.forceQuitTimeout,
		log:              cfg.log.WithComponent(logger.ComponentServer),
		poller:           queue.NewPoller(cfg.client, cfg.ns, cfg.queues),
		pool:             pool,
		dispatcher:       dispatcher,
		reporter:         rep,
		busy:             busy,
		Metrics:          collector,
		queueNames:       queueNames,
	}
}

// Start runs the control loop until it receives SIGINT or SIGUSR1. Signal
// handling is installed here, before any further work runs: the pool
// workers the Builder already started are idle until Submit, so installing
// the handlers first still catches a signal that arrives early.
func (s *Server) Start(ctx context.Context) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGUSR1)
	defer signal.Stop(sigCh)

	reportCtx, stopReport := context.WithCancel(ctx)
	defer stopReport()
	go s.reporter.Run(reportCtx)

	s.log.Info("server starting", "identity", s.ns.Identity(), "queues", s.queueNames)

	for {
		select {
		case sig := <-sigCh:
			switch sig {
			case syscall.SIGUSR1:
				s.log.Info("received SIGUSR1, draining")
				return s.gracefulShutdown()
			case syscall.SIGINT:
				s.log.Info("received SIGINT, abandoning in-flight work")
				return s.abruptShutdown()
			}
		case <-ctx.Done():
			return s.abruptShutdown()
		default:
			j, err := s.poller.Poll(ctx)
			if err != nil {
				s.log.Error("poll failed", "error", err.Error())
				continue
			}
			if j == nil {
				continue
			}
			agent := job.NewAgent(j)
			s.pool.Submit(func(worker string) {
				s.dispatcher.Dispatch(ctx, agent, worker)
			})
		}
	}
}

// gracefulShutdown stops polling and waits up to forceQuitTimeout for the
// worker pool to drain, then returns regardless of outstanding work.
func (s *Server) gracefulShutdown() error {
	done := make(chan struct{})
	go func() {
		s.pool.Close()
		close(done)
	}()

	select {
	case <-done:
		s.log.Info("worker pool drained cleanly")
	case <-time.After(s.forceQuitTimeout):
		s.log.Warn("force_quit_timeout elapsed, exiting with work in flight", "timeout", s.forceQuitTimeout)
	}
	s.log.Info("server stopped")
	return s.client.Close()
}

// abruptShutdown exits immediately without waiting for in-flight work.
func (s *Server) abruptShutdown() error {
	s.log.Info("server stopped")
	return s.client.Close()
}
