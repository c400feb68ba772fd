// Package metrics is an in-process counter set the dispatcher optionally
// reports into, tracking throughput and failures by job class and queue
// without requiring a metrics backend.
package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Collector tracks system-wide metrics in memory.
type Collector struct {
	totalProcessed atomic.Int64
	totalFailed    atomic.Int64

	mu             sync.RWMutex
	byClass        map[string]int64
	byQueue        map[string]int64
	totalDuration  time.Duration
	operationCount int64
	startTime      time.Time
}

// Snapshot is a point-in-time read of the collector's state.
type Snapshot struct {
	TotalProcessed int64            `json:"total_processed"`
	TotalFailed    int64            `json:"total_failed"`
	ByClass        map[string]int64 `json:"by_class"`
	ByQueue        map[string]int64 `json:"by_queue"`
	AvgDuration    time.Duration    `json:"avg_duration"`
	ErrorRate      float64          `json:"error_rate"`
	Uptime         time.Duration    `json:"uptime"`
}

// NewCollector builds an empty Collector.
func NewCollector() *Collector {
	return &Collector{
		byClass:   make(map[string]int64),
		byQueue:   make(map[string]int64),
		startTime: time.Now(),
	}
}

// RecordDispatch records one completed dispatch (success or failure) for
// class/queue, with its wall-clock duration.
func (c *Collector) RecordDispatch(class, queue string, success bool, duration time.Duration) {
	if success {
		c.totalProcessed.Add(1)
	} else {
		c.totalFailed.Add(1)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.byClass[class]++
	c.byQueue[queue]++
	c.totalDuration += duration
	c.operationCount++
}

// Snapshot returns a copy of the collector's current state.
func (c *Collector) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	byClass := make(map[string]int64, len(c.byClass))
	for k, v := range c.byClass {
		byClass[k] = v
	}
	byQueue := make(map[string]int64, len(c.byQueue))
	for k, v := range c.byQueue {
		byQueue[k] = v
	}

	var avgDuration time.Duration
	if c.operationCount > 0 {
		avgDuration = c.totalDuration / time.Duration(c.operationCount)
	}

	processed := c.totalProcessed.Load()
	failed := c.totalFailed.Load()
	var errorRate float64
	if total := processed + failed; total > 0 {
		errorRate = float64(failed) / float64(total) * 100
	}

	return Snapshot{
		TotalProcessed: processed,
		TotalFailed:    failed,
		ByClass:        byClass,
		ByQueue:        byQueue,
		AvgDuration:    avgDuration,
		ErrorRate:      errorRate,
		Uptime:         time.Since(c.startTime),
	}
}

// Reset clears all counters. Useful for tests.
func (c *Collector) Reset() {
	c.totalProcessed.Store(0)
	c.totalFailed.Store(0)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.byClass = make(map[string]int64)
	c.byQueue = make(map[string]int64)
	c.totalDuration = 0
	c.operationCount = 0
	c.startTime = time.Now()
}
