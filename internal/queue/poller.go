// Package queue polls the weighted set of Sidekiq queues over a Redis BRPOP,
// grounded on sidekiq-rs's poll(): a fresh weighted
// random pick per call (not a round-robin), so higher-weight queues get
// proportionally more of the BRPOP slots over time.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/ghoststack/sidekiq-go/internal/job"
	"github.com/ghoststack/sidekiq-go/internal/rediskeys"
	"github.com/redis/go-redis/v9"
)

// WeightedQueue is one entry in the server's queue list. Weight is a float
// so operators can express fine-grained ratios (e.g. 1.5) rather than being
// limited to whole-number shares, matching the Rust core's f64 weight.
type WeightedQueue struct {
	Name   string
	Weight float64
}

// BlockTimeout is how long a single BRPOP call waits before returning with
// no job, matching the Rust core's hardcoded 2-second poll.
const BlockTimeout = 2 * time.Second

// Poller dequeues jobs from a weighted set of Redis list queues.
type Poller struct {
	client *redis.Client
	ns     rediskeys.Namespace
	queues []WeightedQueue
	total  float64
}

// NewPoller builds a Poller over queues. Weight must be > 0 per queue; the
// builder validates this before a Poller is ever constructed.
func NewPoller(client *redis.Client, ns rediskeys.Namespace, queues []WeightedQueue) *Poller {
	var total float64
	for _, q := range queues {
		total += q.Weight
	}
	return &Poller{client: client, ns: ns, queues: queues, total: total}
}

// pick selects one queue name, weighted by cumulative sum over the
// configured weights. math/rand/v2 is stdlib here; weighted sampling this
// small doesn't warrant pulling in a dedicated library.
func (p *Poller) pick() string {
	if len(p.queues) == 1 {
		return p.queues[0].Name
	}
	n := rand.Float64() * p.total
	var cumulative float64
	for _, q := range p.queues {
		cumulative += q.Weight
		if n < cumulative {
			return q.Name
		}
	}
	return p.queues[len(p.queues)-1].Name
}

// Poll performs a single weighted BRPOP. It returns (nil, nil) on timeout,
// matching the Rust Option<Job> contract of "no job ready right now".
func (p *Poller) Poll(ctx context.Context) (*job.Job, error) {
	queueName := p.pick()
	key := p.ns.QueueName(queueName)

	result, err := p.client.BRPop(ctx, BlockTimeout, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("brpop %s: %w", key, err)
	}
	if len(result) < 2 {
		return nil, fmt.Errorf("brpop %s: unexpected reply shape", key)
	}

	var j job.Job
	if err := json.Unmarshal([]byte(result[1]), &j); err != nil {
		return nil, fmt.Errorf("decode job from %s: %w", key, err)
	}

	if j.RetryInfo != nil {
		now := time.Now().UTC()
		j.RetryInfo.RetriedAt = &now
	}
	j.Namespace = p.ns.Prefix

	return &j, nil
}
