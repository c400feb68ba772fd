package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
)

// ConsoleLogger is the always-on stdout tier: structured logging on top of
// log/slog, an async buffered writer so a burst of job logs never blocks
// dispatch, and either JSON or colored text output.
type ConsoleLogger struct {
	config  *Config
	handler slog.Handler
	writer  *bufferedWriter
}

// bufferedWriter provides async buffered writing with periodic flushing
type bufferedWriter struct {
	writer        io.Writer
	buffer        chan []byte
	flushInterval time.Duration
	mu            sync.Mutex
	closed        bool
	stopChan      chan struct{}
	doneChan      chan struct{}
}

// newBufferedWriter creates a new buffered writer
func newBufferedWriter(w io.Writer, bufferSize int, flushInterval time.Duration) *bufferedWriter {
	bw := &bufferedWriter{
		writer:        w,
		buffer:        make(chan []byte, bufferSize/256), // Approximate number of log entries
		flushInterval: flushInterval,
		stopChan:      make(chan struct{}),
		doneChan:      make(chan struct{}),
	}

	// Start background flusher
	go bw.flusher()

	return bw
}

// Write implements io.Writer
func (bw *bufferedWriter) Write(p []byte) (n int, err error) {
	bw.mu.Lock()
	if bw.closed {
		bw.mu.Unlock()
		return 0, fmt.Errorf("writer is closed")
	}
	bw.mu.Unlock()

	// Make a copy since the slice might be reused
	buf := make([]byte, len(p))
	copy(buf, p)

	select {
	case bw.buffer <- buf:
		return len(p), nil
	default:
		// Buffer full, write directly (fallback)
		return bw.writer.Write(p)
	}
}

// flusher runs in a goroutine and periodically flushes buffered writes
func (bw *bufferedWriter) flusher() {
	defer close(bw.doneChan)

	ticker := time.NewTicker(bw.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case buf := <-bw.buffer:
			// Ignore write errors in background flusher - nothing we can do
			_, _ = bw.writer.Write(buf)
		case <-ticker.C:
			// Drain buffer on tick
			bw.drain()
		case <-bw.stopChan:
			bw.drain()
			return
		}
	}
}

// drain writes all buffered data
func (bw *bufferedWriter) drain() {
	for {
		select {
		case buf := <-bw.buffer:
			// Ignore write errors during drain - nothing we can do
			_, _ = bw.writer.Write(buf)
		default:
			return
		}
	}
}

// Close stops the flusher goroutine, draining any remaining buffered writes
// first.
func (bw *bufferedWriter) Close() error {
	bw.mu.Lock()
	if bw.closed {
		bw.mu.Unlock()
		return nil
	}
	bw.closed = true
	bw.mu.Unlock()

	close(bw.stopChan)
	<-bw.doneChan

	return nil
}

// NewConsoleLogger creates a new console logger
func NewConsoleLogger(config *Config) (*ConsoleLogger, error) {
	cl := &ConsoleLogger{
		config: config,
	}

	// Create buffered writer
	cl.writer = newBufferedWriter(
		os.Stdout,
		config.Console.BufferSize,
		config.Console.FlushInterval,
	)

	// Create slog handler based on format
	var handler slog.Handler
	opts := &slog.HandlerOptions{
		Level: slogLevel(config.Level),
	}

	if config.Format == FormatJSON {
		handler = slog.NewJSONHandler(cl.writer, opts)
	} else {
		// Text format with optional colors
		if config.Console.Color {
			handler = newColorTextHandler(cl.writer, opts)
		} else {
			handler = slog.NewTextHandler(cl.writer, opts)
		}
	}

	cl.handler = handler

	return cl, nil
}

// log writes a log entry to console
func (cl *ConsoleLogger) log(level LogLevel, msg string, component Component, source LogSource, fields map[string]interface{}) {
	// Create slog record
	var slogLvl slog.Level
	switch level {
	case LevelDebug:
		slogLvl = slog.LevelDebug
	case LevelInfo:
		slogLvl = slog.LevelInfo
	case LevelWarn:
		slogLvl = slog.LevelWarn
	case LevelError:
		slogLvl = slog.LevelError
	}

	record := slog.NewRecord(time.Now(), slogLvl, msg, 0)

	// Add component and source
	if component != "" {
		record.AddAttrs(slog.String("component", string(component)))
	}
	if source != "" {
		record.AddAttrs(slog.String("log_source", string(source)))
	}

	// Add fields
	for k, v := range fields {
		record.AddAttrs(slog.Any(k, v))
	}

	// Handle the record - ignore errors as there's no good way to handle them in logging
	_ = cl.handler.Handle(context.TODO(), record)
}

// Close flushes and closes the console logger
func (cl *ConsoleLogger) Close() error {
	return cl.writer.Close()
}

// slogLevel converts our LogLevel to slog.Level
func slogLevel(level LogLevel) slog.Level {
	switch level {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// colorTextHandler is a custom slog handler with colored output
type colorTextHandler struct {
	w    io.Writer
	opts *slog.HandlerOptions
	mu   sync.Mutex

	// Color functions
	debugColor *color.Color
	infoColor  *color.Color
	warnColor  *color.Color
	errorColor *color.Color
}

// newColorTextHandler creates a new colored text handler
func newColorTextHandler(w io.Writer, opts *slog.HandlerOptions) *colorTextHandler {
	return &colorTextHandler{
		w:          w,
		opts:       opts,
		debugColor: color.New(color.FgCyan),
		infoColor:  color.New(color.FgGreen),
		warnColor:  color.New(color.FgYellow),
		errorColor: color.New(color.FgRed, color.Bold),
	}
}

// Enabled implements slog.Handler
func (h *colorTextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.opts != nil && h.opts.Level != nil {
		minLevel = h.opts.Level.Level()
	}
	return level >= minLevel
}

// Handle implements slog.Handler
func (h *colorTextHandler) Handle(ctx context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	// Build the log line
	buf := make(map[string]interface{})

	// Timestamp
	buf["time"] = r.Time.Format(time.RFC3339)

	// Level with color
	var levelStr string
	switch r.Level {
	case slog.LevelDebug:
		levelStr = h.debugColor.Sprint("DEBUG")
	case slog.LevelInfo:
		levelStr = h.infoColor.Sprint("INFO")
	case slog.LevelWarn:
		levelStr = h.warnColor.Sprint("WARN")
	case slog.LevelError:
		levelStr = h.errorColor.Sprint("ERROR")
	}
	buf["level"] = levelStr

	// Message
	buf["msg"] = r.Message

	// Attributes
	r.Attrs(func(a slog.Attr) bool {
		buf[a.Key] = a.Value.Any()
		return true
	})

	// Format as JSON for simplicity (could be improved with custom formatting)
	data, err := json.Marshal(buf)
	if err != nil {
		return err
	}

	_, err = h.w.Write(append(data, '\n'))
	return err
}

// WithAttrs implements slog.Handler
func (h *colorTextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	// For simplicity, return self (could be improved)
	return h
}

// WithGroup implements slog.Handler
func (h *colorTextHandler) WithGroup(name string) slog.Handler {
	// For simplicity, return self (could be improved)
	return h
}
