// Package cache provides caching implementations. Kept from the teacher's
// internal/cache/redis.go's Get/Set/Delete/Close, trimmed of the
// search-query and embedding cache helpers the teacher's internal/search
// package used (this repo has no search surface), and extended with a
// heartbeat ledger (RecordHeartbeat/LastHeartbeat) the workflow driver uses
// as a Go-native stand-in for Temporal's activity-heartbeat mechanism
// (spec.md §4.8, §9).
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache provides caching via Redis.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a new Redis cache.
func NewRedisCache(url string) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("Redis connection failed: %w", err)
	}

	return &RedisCache{client: client}, nil
}

// Get retrieves a value from cache. Returns empty string if key not found.
func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	return val, err
}

// Set stores a value in cache with TTL.
func (c *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

// Delete removes a value from cache.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// RecordHeartbeat writes a liveness timestamp for one workflow run under
// heartbeat:<repo_id>:<commit_sha>, with a TTL so a crashed run's key
// expires on its own rather than needing explicit cleanup (SPEC_FULL.md §2's
// Redis wiring plan, a Go-native stand-in for Temporal's activity heartbeat).
func (c *RedisCache) RecordHeartbeat(ctx context.Context, repoID, commitSHA string, now time.Time, ttl time.Duration) error {
	return c.client.Set(ctx, HeartbeatKey(repoID, commitSHA), now.UTC().Format(time.RFC3339), ttl).Err()
}

// LastHeartbeat returns the most recently recorded liveness timestamp for
// (repoID, commitSHA), or the zero time if none is on record (expired or
// never written).
func (c *RedisCache) LastHeartbeat(ctx context.Context, repoID, commitSHA string) (time.Time, error) {
	val, err := c.client.Get(ctx, HeartbeatKey(repoID, commitSHA)).Result()
	if err == redis.Nil {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, val)
}

// HeartbeatKey is the Redis key a workflow run's liveness signal is stored
// under.
func HeartbeatKey(repoID, commitSHA string) string {
	return fmt.Sprintf("heartbeat:%s:%s", repoID, commitSHA)
}
