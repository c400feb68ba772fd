// Package config loads the environment-variable configuration a cmd/worker
// binary reads at startup: getEnv/getEnvAsInt/getEnvAsDuration/getEnvAsBool
// helpers with sensible defaults. The programmatic configuration surface is
// server.Builder; Config only supplies the values a binary passes into it.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ghoststack/sidekiq-go/internal/logger"
)

// QueueSpec is one (name, weight) pair parsed from WORKER_QUEUES. Weight is
// a float so an operator can express fine-grained ratios (e.g. "default:1.5").
type QueueSpec struct {
	Name   string
	Weight float64
}

// Config holds the environment-derived configuration for a worker binary.
type Config struct {
	// RedisURL is the connection URL for Redis.
	RedisURL string
	// Namespace is the key prefix every Redis key is built under.
	Namespace string
	// Concurrency is the worker pool size.
	Concurrency int
	// Queues are the weighted queues to poll, parsed from WORKER_QUEUES
	// (e.g. "critical:5,default:2,low:1"). Defaults to "default:1".
	Queues []QueueSpec
	// ForceQuitTimeout bounds how long a graceful (SIGUSR1) shutdown waits
	// for in-flight work before exiting anyway.
	ForceQuitTimeout time.Duration
	// RetryMaxAttempts caps the sample retry middleware's re-queue count.
	RetryMaxAttempts int
	// ResultBackendEnabled enables storing job results.
	ResultBackendEnabled bool
	// ResultBackendTTLSuccess is the TTL for successful job results.
	ResultBackendTTLSuccess time.Duration
	// ResultBackendTTLFailure is the TTL for failed job results.
	ResultBackendTTLFailure time.Duration
	// Logging is the logger configuration.
	Logging *logger.Config
}

// LoadConfig loads configuration from environment variables with sensible
// defaults.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		RedisURL:                getEnv("REDIS_URL", "redis://localhost:6379"),
		Namespace:                getEnv("NAMESPACE", ""),
		Concurrency:             getEnvAsInt("WORKER_CONCURRENCY", 10),
		Queues:                  parseQueueSpecs(getEnv("WORKER_QUEUES", "default:1")),
		ForceQuitTimeout:        getEnvAsDuration("FORCE_QUIT_TIMEOUT", 10*time.Second),
		RetryMaxAttempts:        getEnvAsInt("RETRY_MAX_ATTEMPTS", 25),
		ResultBackendEnabled:    getEnvAsBool("RESULT_BACKEND_ENABLED", false),
		ResultBackendTTLSuccess: getEnvAsDuration("RESULT_BACKEND_TTL_SUCCESS", 1*time.Hour),
		ResultBackendTTLFailure: getEnvAsDuration("RESULT_BACKEND_TTL_FAILURE", 24*time.Hour),
		Logging:                 loadLoggingConfig(),
	}

	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL cannot be empty")
	}
	if cfg.Concurrency < 1 {
		return nil, fmt.Errorf("WORKER_CONCURRENCY must be at least 1")
	}
	if len(cfg.Queues) == 0 {
		return nil, fmt.Errorf("WORKER_QUEUES must contain at least one queue")
	}
	if err := cfg.Logging.Validate(); err != nil {
		return nil, fmt.Errorf("invalid logging config: %w", err)
	}

	return cfg, nil
}

// parseQueueSpecs parses a comma-separated "name:weight,name:weight" list.
// A bare name with no ":weight" defaults to weight 1, as does an entry whose
// weight does not parse or is <= 0. Entries with an empty name are skipped;
// an empty result falls back to a single "default:1" queue.
func parseQueueSpecs(s string) []QueueSpec {
	parts := strings.Split(s, ",")
	specs := make([]QueueSpec, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		name, weightStr, hasWeight := strings.Cut(trimmed, ":")
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		weight := 1.0
		if hasWeight {
			if w, err := strconv.ParseFloat(strings.TrimSpace(weightStr), 64); err == nil && w > 0 {
				weight = w
			}
		}
		specs = append(specs, QueueSpec{Name: name, Weight: weight})
	}
	if len(specs) == 0 {
		return []QueueSpec{{Name: "default", Weight: 1}}
	}
	return specs
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// loadLoggingConfig loads logging configuration from environment variables.
func loadLoggingConfig() *logger.Config {
	cfg := logger.DefaultConfig()

	if level := getEnv("LOG_LEVEL", ""); level != "" {
		cfg.Level = logger.LogLevel(level)
	}
	if format := getEnv("LOG_FORMAT", ""); format != "" {
		cfg.Format = logger.LogFormat(format)
	}

	cfg.Console.Enabled = getEnvAsBool("LOG_CONSOLE_ENABLED", true)
	cfg.Console.Color = getEnvAsBool("LOG_COLOR", true)
	cfg.Console.BufferSize = getEnvAsInt("LOG_CONSOLE_BUFFER_SIZE", 65536)
	cfg.Console.FlushInterval = getEnvAsDuration("LOG_CONSOLE_FLUSH_INTERVAL", 100*time.Millisecond)

	cfg.File.Enabled = getEnvAsBool("LOG_FILE_ENABLED", false)
	cfg.File.Path = getEnv("LOG_FILE_PATH", "/var/log/sidekiq-go/server.log")
	cfg.File.MaxSizeMB = getEnvAsInt("LOG_FILE_MAX_SIZE_MB", 100)
	cfg.File.MaxBackups = getEnvAsInt("LOG_FILE_MAX_BACKUPS", 5)
	cfg.File.MaxAgeDays = getEnvAsInt("LOG_FILE_MAX_AGE_DAYS", 30)
	cfg.File.Compress = getEnvAsBool("LOG_FILE_COMPRESS", true)
	cfg.File.BufferSize = getEnvAsInt("LOG_FILE_BUFFER_SIZE", 10000)
	cfg.File.BatchSize = getEnvAsInt("LOG_FILE_BATCH_SIZE", 100)
	cfg.File.BatchInterval = getEnvAsDuration("LOG_FILE_BATCH_INTERVAL", 100*time.Millisecond)

	return cfg
}
