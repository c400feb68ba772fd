// Package reporter writes the liveness heartbeat the Sidekiq dashboard
// reads, grounded on sidekiq-rs's report_alive(): one
// pipelined HSET + EXPIRE + SADD against the process's identity key.
package reporter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ghoststack/sidekiq-go/internal/logger"
	"github.com/ghoststack/sidekiq-go/internal/rediskeys"
	"github.com/redis/go-redis/v9"
)

// Interval is how often report_alive runs.
const Interval = 2 * time.Second

// heartbeatTTL is the EXPIRE applied to the identity hash; a process that
// misses two consecutive heartbeats is considered dead by the dashboard.
const heartbeatTTL = 5 * time.Second

// BusyCounter reports how many in-flight jobs this process currently has,
// so Reporter can fill in the `busy` field without owning worker-pool state
// itself.
type BusyCounter func() int64

type identityInfo struct {
	Hostname    string   `json:"hostname"`
	StartedAt   float64  `json:"started_at"`
	PID         int      `json:"pid"`
	Concurrency int      `json:"concurrency"`
	Queues      []string `json:"queues"`
	Labels      []string `json:"labels"`
	Identity    string   `json:"identity"`
}

// Reporter periodically writes this process's liveness record.
type Reporter struct {
	client      *redis.Client
	ns          rediskeys.Namespace
	concurrency int
	queues      []string
	startedAt   time.Time
	busy        BusyCounter
	log         logger.Logger
}

// New builds a Reporter. busy is polled on every tick to populate the
// `busy` heartbeat field.
func New(client *redis.Client, ns rediskeys.Namespace, concurrency int, queues []string, busy BusyCounter, log logger.Logger) *Reporter {
	if log == nil {
		log = &logger.NoOpLogger{}
	}
	return &Reporter{
		client:      client,
		ns:          ns,
		concurrency: concurrency,
		queues:      queues,
		startedAt:   time.Now(),
		busy:        busy,
		log:         log.WithComponent(logger.ComponentReporter),
	}
}

// Run ticks every Interval until ctx is cancelled, calling ReportAlive each
// time. Failures are logged and never stop the loop.
func (r *Reporter) Run(ctx context.Context) {
	ticker := time.NewTicker(Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.ReportAlive(ctx); err != nil {
				r.log.Error("report_alive failed", "error", err.Error())
			}
		}
	}
}

// ReportAlive performs one heartbeat write.
func (r *Reporter) ReportAlive(ctx context.Context) error {
	now := time.Now()
	info := identityInfo{
		Hostname:    r.ns.Hostname,
		StartedAt:   float64(r.startedAt.UnixNano()) / 1e9,
		PID:         r.ns.PID,
		Concurrency: r.concurrency,
		Queues:      r.queues,
		Labels:      []string{},
		Identity:    r.ns.Identity(),
	}
	infoJSON, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("marshal identity info: %w", err)
	}

	var busy int64
	if r.busy != nil {
		busy = r.busy()
	}

	identityKey := r.ns.WithNamespace(r.ns.Identity())
	beat := float64(now.UnixNano()) / 1e9

	pipe := r.client.Pipeline()
	pipe.HSet(ctx, identityKey, map[string]interface{}{
		"info": string(infoJSON),
		"busy": busy,
		"beat": beat,
	})
	pipe.Expire(ctx, identityKey, heartbeatTTL)
	pipe.SAdd(ctx, r.ns.ProcessesKey(), r.ns.Identity())

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("report_alive: %w", err)
	}
	return nil
}
