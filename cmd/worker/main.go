// Command worker runs the sidekiq-go worker server: it loads configuration
// from the environment, registers the bundled example handlers and
// middleware, and blocks in the control loop until a termination signal
// arrives.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ghoststack/sidekiq-go/examples/handlers"
	examplemw "github.com/ghoststack/sidekiq-go/examples/middleware"
	"github.com/ghoststack/sidekiq-go/examples/retryscheduler"
	"github.com/ghoststack/sidekiq-go/internal/config"
	"github.com/ghoststack/sidekiq-go/internal/logger"
	"github.com/ghoststack/sidekiq-go/internal/rediskeys"
	"github.com/ghoststack/sidekiq-go/internal/resultstore"
	"github.com/ghoststack/sidekiq-go/internal/server"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if err := log.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to close logger: %v\n", err)
		}
	}()
	logger.SetDefault(log)

	workerLog := log.WithComponent(logger.ComponentWorker)
	workerLog.Info("worker starting",
		"concurrency", cfg.Concurrency,
		"namespace", cfg.Namespace,
		"queues", cfg.Queues,
		"redis_url", cfg.RedisURL)

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		workerLog.Error("invalid redis url", "error", err.Error())
		os.Exit(1)
	}
	ns := rediskeys.New(cfg.Namespace)

	builder := server.NewBuilder().
		Concurrency(cfg.Concurrency).
		Namespace(cfg.Namespace).
		ForceQuitTimeout(cfg.ForceQuitTimeout).
		Logger(log).
		Handler("Printer", handlers.Printer(log)).
		Handler("Error", handlers.Error).
		Handler("Panic", handlers.Panic).
		Middleware(examplemw.NewPeek(log)).
		Middleware(examplemw.NewTiming(log))

	for _, q := range cfg.Queues {
		builder = builder.Queue(q.Name, q.Weight)
	}

	if cfg.ResultBackendEnabled {
		resultClient := redis.NewClient(opts)
		store := resultstore.NewRedisStore(resultClient, ns.WithNamespace(""), cfg.ResultBackendTTLSuccess, cfg.ResultBackendTTLFailure)
		builder = builder.ResultStore(store)
		workerLog.Info("result backend enabled",
			"success_ttl", cfg.ResultBackendTTLSuccess,
			"failure_ttl", cfg.ResultBackendTTLFailure)
	}

	// The retry middleware needs the same Redis client/namespace the
	// server builds internally, so it's constructed against a second
	// client pointed at the same URL rather than reaching into the
	// server after Build (the builder keeps its internal client private).
	retryClient := redis.NewClient(opts)
	builder = builder.Middleware(examplemw.NewRetry(retryClient, ns, cfg.RetryMaxAttempts, log))

	srv, err := builder.Build(cfg.RedisURL)
	if err != nil {
		workerLog.Error("failed to build server", "error", err.Error())
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	promoter, err := retryscheduler.New(retryClient, ns, "*/5 * * * * *", log)
	if err != nil {
		workerLog.Error("failed to build retry promoter", "error", err.Error())
		os.Exit(1)
	}
	promoter.Start(ctx)

	if err := srv.Start(ctx); err != nil {
		workerLog.Error("server exited with error", "error", err.Error())
		os.Exit(1)
	}

	workerLog.Info("worker shut down successfully")
}
