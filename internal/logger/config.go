package logger

import (
	"fmt"
	"time"
)

// LogLevel represents the severity level of a log entry.
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// LogFormat represents the output format for logs.
type LogFormat string

const (
	FormatJSON LogFormat = "json"
	FormatText LogFormat = "text"
)

// LogSource distinguishes internal server logs from job execution logs.
type LogSource string

const (
	LogSourceInternal LogSource = "server_internal" // Internal system logs
	LogSourceJob      LogSource = "server_job"      // Job execution logs
)

// Component identifies which part of the system generated the log.
type Component string

const (
	ComponentServer     Component = "server"
	ComponentWorker     Component = "worker"
	ComponentQueue      Component = "queue"
	ComponentDispatch   Component = "dispatch"
	ComponentMiddleware Component = "middleware"
	ComponentReporter   Component = "reporter"
	ComponentRedis      Component = "redis"
	ComponentLogger     Component = "logger"
	ComponentScheduler  Component = "scheduler"
)

// Config holds the logging configuration for both tiers a worker process
// writes to: the console, on unless Console.Enabled is false, and an
// optional rotating log file.
type Config struct {
	Level  LogLevel  `json:"level"`
	Format LogFormat `json:"format"`

	Console ConsoleConfig `json:"console"`
	File    FileConfig    `json:"file"`
}

// ConsoleConfig configures console/terminal logging.
type ConsoleConfig struct {
	Enabled       bool          `json:"enabled"`        // Always true in practice
	Color         bool          `json:"color"`          // Enable colored output (text mode only)
	BufferSize    int           `json:"buffer_size"`    // Async buffer size (default: 65536 bytes)
	FlushInterval time.Duration `json:"flush_interval"` // Flush interval (default: 100ms)
}

// FileConfig configures rotating file logging, off by default since a
// worker running under a process supervisor typically ships stdout instead.
type FileConfig struct {
	Enabled    bool   `json:"enabled"`
	Path       string `json:"path"`         // Log file path
	MaxSizeMB  int    `json:"max_size_mb"`  // Max size before rotation
	MaxBackups int    `json:"max_backups"`  // Max number of old log files
	MaxAgeDays int    `json:"max_age_days"` // Max age in days
	Compress   bool   `json:"compress"`     // Compress rotated files

	// Performance settings
	BufferSize    int           `json:"buffer_size"`    // Channel buffer size (default: 10000)
	BatchSize     int           `json:"batch_size"`     // Batch write size (default: 100)
	BatchInterval time.Duration `json:"batch_interval"` // Batch flush interval (default: 100ms)
}

// DefaultConfig returns a default logging configuration: JSON console
// output at info level, file logging off.
func DefaultConfig() *Config {
	return &Config{
		Level:  LevelInfo,
		Format: FormatJSON,
		Console: ConsoleConfig{
			Enabled:       true,
			Color:         true,
			BufferSize:    65536, // 64KB
			FlushInterval: 100 * time.Millisecond,
		},
		File: FileConfig{
			Enabled:       false,
			Path:          "/var/log/sidekiq-go/server.log",
			MaxSizeMB:     100,
			MaxBackups:    5,
			MaxAgeDays:    30,
			Compress:      true,
			BufferSize:    10000,
			BatchSize:     100,
			BatchInterval: 100 * time.Millisecond,
		},
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.Level {
	case LevelDebug, LevelInfo, LevelWarn, LevelError:
	default:
		return fmt.Errorf("invalid log level: %s", c.Level)
	}

	switch c.Format {
	case FormatJSON, FormatText:
	default:
		return fmt.Errorf("invalid log format: %s", c.Format)
	}

	if c.File.Enabled {
		if c.File.Path == "" {
			return fmt.Errorf("file logging enabled but path is empty")
		}
		if c.File.MaxSizeMB <= 0 {
			return fmt.Errorf("file max size must be > 0")
		}
	}

	return nil
}
