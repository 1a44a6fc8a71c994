package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedisIdempotencyStoreWithClient(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	t.Cleanup(func() { _ = client.Close() })

	t.Run("empty prefix falls back to default", func(t *testing.T) {
		store := NewRedisIdempotencyStoreWithClient(client, "")
		assert.Equal(t, defaultKeyPrefix+"tok", store.key("tok"))
	})

	t.Run("custom prefix is kept", func(t *testing.T) {
		store := NewRedisIdempotencyStoreWithClient(client, "receiving:replay:")
		assert.Equal(t, "receiving:replay:tok", store.key("tok"))
	})
}

func TestNewRedisIdempotencyStoreUnreachable(t *testing.T) {
	if testing.Short() {
		t.Skip("dials a closed port, skipped in short mode")
	}

	_, err := NewRedisIdempotencyStore(RedisConfig{Host: "localhost", Port: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to Redis")
}

// Exercises the SETNX round trip against a local Redis. Skipped unless a
// server is reachable on the default port.
func TestRedisIdempotencyStoreRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("requires a running Redis server")
	}

	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		t.Skipf("Redis not reachable: %v", err)
	}

	store := NewRedisIdempotencyStoreWithClient(client, fmt.Sprintf("test:%s:", uuid.NewString()))
	t.Cleanup(func() { _ = store.Close() })

	token := uuid.NewString()

	processed, err := store.IsProcessed(ctx, token)
	require.NoError(t, err)
	assert.False(t, processed)

	first, err := store.MarkProcessed(ctx, token, time.Minute)
	require.NoError(t, err)
	assert.True(t, first)

	second, err := store.MarkProcessed(ctx, token, time.Minute)
	require.NoError(t, err)
	assert.False(t, second, "a consumed token must not be consumable again")

	processed, err = store.IsProcessed(ctx, token)
	require.NoError(t, err)
	assert.True(t, processed)

	require.NoError(t, store.Release(ctx, token))

	reclaimed, err := store.MarkProcessed(ctx, token, time.Minute)
	require.NoError(t, err)
	assert.True(t, reclaimed, "a released token is consumable again")
}
