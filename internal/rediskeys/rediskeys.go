// Package rediskeys builds the namespaced Redis key names the server and
// reporter touch. Grounded on sidekiq-rs's with_namespace,
// with_server_id, queue_name and identity helpers, translated from methods on
// the server struct into methods on a small Namespace value type.
package rediskeys

import (
	"fmt"
	"math/rand/v2"
	"os"
	"time"
)

const serverIDAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Namespace holds the prefix and per-process identity used to build every
// key this core touches. Zero value is a namespace-less default process
// with no server ID — callers that need the full identity string should go
// through New.
type Namespace struct {
	Prefix   string // producer/operator supplied, empty means no prefix
	Hostname string
	PID      int
	ServerID string // 12-char random alphanumeric, generated once per process ("rs" in the source)
}

// New derives a Namespace with a freshly generated 12-char ServerID,
// capturing hostname and pid the way the builder does at startup. Prefix
// may be empty.
func New(prefix string) Namespace {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown"
	}
	return Namespace{
		Prefix:   prefix,
		Hostname: host,
		PID:      os.Getpid(),
		ServerID: randomServerID(),
	}
}

func randomServerID() string {
	b := make([]byte, 12)
	for i := range b {
		b[i] = serverIDAlphabet[rand.IntN(len(serverIDAlphabet))]
	}
	return string(b)
}

// WithNamespace prefixes snippet with the namespace, if any.
func (n Namespace) WithNamespace(snippet string) string {
	if n.Prefix == "" {
		return snippet
	}
	return n.Prefix + ":" + snippet
}

// WithServerID prefixes snippet with this process's server ID.
func (n Namespace) WithServerID(snippet string) string {
	return n.ServerID + ":" + snippet
}

// QueueName builds the Redis list key a queue's jobs are BRPOP'd from.
func (n Namespace) QueueName(queue string) string {
	return n.WithNamespace("queue:" + queue)
}

// Identity is this process's unique identity string: "<hostname>:<pid>:<server_id>",
// used as the hash key for heartbeats and as the member added to the
// processes set.
func (n Namespace) Identity() string {
	return fmt.Sprintf("%s:%d:%s", n.Hostname, n.PID, n.ServerID)
}

// WorkersKey is the hash holding in-flight job info, keyed by this process's
// server ID so the dashboard can attribute busy jobs to the process running
// them.
func (n Namespace) WorkersKey() string {
	return n.WithNamespace(n.WithServerID("workers"))
}

// ProcessesKey is the set of live process identities.
func (n Namespace) ProcessesKey() string {
	return n.WithNamespace("processes")
}

// StatProcessedKey is the running lifetime counter of processed jobs.
func (n Namespace) StatProcessedKey() string {
	return n.WithNamespace("stat:processed")
}

// StatProcessedTodayKey is the UTC date-stamped counter of processed jobs.
func (n Namespace) StatProcessedTodayKey(now time.Time) string {
	return n.WithNamespace("stat:processed:" + now.UTC().Format("2006-01-02"))
}

// StatFailedKey is the running lifetime counter of failed jobs.
func (n Namespace) StatFailedKey() string {
	return n.WithNamespace("stat:failed")
}

// StatFailedTodayKey is the UTC date-stamped counter of failed jobs.
func (n Namespace) StatFailedTodayKey(now time.Time) string {
	return n.WithNamespace("stat:failed:" + now.UTC().Format("2006-01-02"))
}

// RetryKey is the sorted set of jobs awaiting re-delivery, scored by the
// unix timestamp they become due. Not touched by the core itself — this
// exists so the retry middleware and the standalone retry scheduler example
// agree on where retry jobs live without either importing the other.
func (n Namespace) RetryKey() string {
	return n.WithNamespace("retry")
}
