package resultstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on top of the same Redis the core already
// uses: HSET + EXPIRE in one pipeline, with a TTL that differs for success
// vs. failure.
type RedisStore struct {
	client     *redis.Client
	prefix     string
	successTTL time.Duration
	failureTTL time.Duration
}

// NewRedisStore builds a result store. prefix should match the server's
// namespace helper output so results live alongside the rest of the
// namespaced keyspace.
func NewRedisStore(client *redis.Client, prefix string, successTTL, failureTTL time.Duration) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, successTTL: successTTL, failureTTL: failureTTL}
}

func (s *RedisStore) key(jid string) string {
	return fmt.Sprintf("%sresult:%s", s.prefix, jid)
}

// Put stores a dispatch result.
func (s *RedisStore) Put(ctx context.Context, result *Result) error {
	data := map[string]interface{}{
		"success":      strconv.FormatBool(result.Success),
		"completed_at": result.CompletedAt.Format(time.RFC3339),
		"duration_ms":  result.Duration.Milliseconds(),
	}
	if len(result.Payload) > 0 {
		data["payload"] = string(result.Payload)
	}
	if result.Error != "" {
		data["error"] = result.Error
	}

	ttl := s.successTTL
	if !result.Success {
		ttl = s.failureTTL
	}

	key := s.key(result.JID)
	pipe := s.client.Pipeline()
	pipe.HSet(ctx, key, data)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store result: %w", err)
	}
	return nil
}

// Get retrieves a previously stored result, or nil if none exists.
func (s *RedisStore) Get(ctx context.Context, jid string) (*Result, error) {
	data, err := s.client.HGetAll(ctx, s.key(jid)).Result()
	if err != nil {
		return nil, fmt.Errorf("get result: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	result := &Result{JID: jid}
	if v, ok := data["success"]; ok {
		result.Success, _ = strconv.ParseBool(v)
	}
	if v, ok := data["completed_at"]; ok {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			result.CompletedAt = t
		}
	}
	if v, ok := data["duration_ms"]; ok {
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
			result.Duration = time.Duration(ms) * time.Millisecond
		}
	}
	if v, ok := data["payload"]; ok {
		result.Payload = json.RawMessage(v)
	}
	if v, ok := data["error"]; ok {
		result.Error = v
	}

	return result, nil
}

// Close closes the underlying Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
