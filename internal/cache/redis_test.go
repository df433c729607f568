// Package cache provides caching implementations.
package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCache(t *testing.T) *RedisCache {
	t.Helper()
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379"
	}
	cache, err := NewRedisCache(redisURL)
	if err != nil {
		t.Skip("Redis not available")
	}
	return cache
}

func TestRedisCache(t *testing.T) {
	cache := testCache(t)
	ctx := context.Background()

	// Test set and get
	key := "test:query:abc123"
	value := `{"results": []}`

	err := cache.Set(ctx, key, value, 1*time.Minute)
	require.NoError(t, err)

	got, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, value, got)

	// Test invalidation
	err = cache.Delete(ctx, key)
	require.NoError(t, err)

	got, err = cache.Get(ctx, key)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRedisCacheHeartbeat(t *testing.T) {
	cache := testCache(t)
	ctx := context.Background()

	repoID, commitSHA := "test-repo", "deadbeef"
	_ = cache.Delete(ctx, HeartbeatKey(repoID, commitSHA))

	zero, err := cache.LastHeartbeat(ctx, repoID, commitSHA)
	require.NoError(t, err)
	assert.True(t, zero.IsZero())

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, cache.RecordHeartbeat(ctx, repoID, commitSHA, now, time.Minute))

	got, err := cache.LastHeartbeat(ctx, repoID, commitSHA)
	require.NoError(t, err)
	assert.Equal(t, now, got)

	_ = cache.Delete(ctx, HeartbeatKey(repoID, commitSHA))
}
