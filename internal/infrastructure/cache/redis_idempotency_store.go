package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/orderflow/backend/internal/domain/shared"
	"github.com/redis/go-redis/v9"
)

const (
	// defaultKeyPrefix namespaces idempotency tokens so they can share a
	// Redis database with other caches.
	defaultKeyPrefix = "stock:idempotency:"

	connectTimeout = 5 * time.Second
)

// RedisIdempotencyStore keeps consumed tokens in Redis, which makes the
// replay guard hold across multiple backend instances.
type RedisIdempotencyStore struct {
	client    *redis.Client
	keyPrefix string
}

var _ shared.IdempotencyStore = (*RedisIdempotencyStore)(nil)

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisIdempotencyStore connects a new client and verifies the server is
// reachable before returning the store.
func NewRedisIdempotencyStore(cfg RedisConfig) (*RedisIdempotencyStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisIdempotencyStoreWithClient(client, defaultKeyPrefix), nil
}

// NewRedisIdempotencyStoreWithClient wraps an existing client. An empty
// keyPrefix falls back to the default namespace.
func NewRedisIdempotencyStoreWithClient(client *redis.Client, keyPrefix string) *RedisIdempotencyStore {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &RedisIdempotencyStore{client: client, keyPrefix: keyPrefix}
}

func (s *RedisIdempotencyStore) key(token string) string {
	return s.keyPrefix + token
}

// MarkProcessed consumes a token for the given TTL. SETNX makes the
// check-and-set atomic, so exactly one of two concurrent calls with the same
// token observes true.
func (s *RedisIdempotencyStore) MarkProcessed(ctx context.Context, token string, ttl time.Duration) (bool, error) {
	set, err := s.client.SetNX(ctx, s.key(token), "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark token as processed: %w", err)
	}
	return set, nil
}

// IsProcessed reports whether a token has already been consumed.
func (s *RedisIdempotencyStore) IsProcessed(ctx context.Context, token string) (bool, error) {
	exists, err := s.client.Exists(ctx, s.key(token)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check if token is processed: %w", err)
	}
	return exists > 0, nil
}

// Release frees a consumed token so the guarded operation can be retried.
// Releasing a token that was never claimed is a no-op.
func (s *RedisIdempotencyStore) Release(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, s.key(token)).Err(); err != nil {
		return fmt.Errorf("failed to release token: %w", err)
	}
	return nil
}

// Close releases the underlying client connection pool.
func (s *RedisIdempotencyStore) Close() error {
	return s.client.Close()
}
