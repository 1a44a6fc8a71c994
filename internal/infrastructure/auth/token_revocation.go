package auth

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenRevoker invalidates JWT tokens before their natural expiry,
// for logout and forced session termination.
type TokenRevoker interface {
	// RevokeToken marks a single token (by its JTI) as revoked. ttl should
	// be the remaining time until the token would expire on its own.
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error

	// IsTokenRevoked reports whether a token's JTI has been revoked
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)

	// RevokeUserTokens invalidates every token issued to a user before now
	RevokeUserTokens(ctx context.Context, userID string, ttl time.Duration) error

	// IsUserTokenRevoked reports whether a token issued at the given time
	// falls before the user's revocation cutoff
	IsUserTokenRevoked(ctx context.Context, userID string, tokenIssuedAt time.Time) (bool, error)
}

// RedisTokenRevoker implements TokenRevoker on Redis so revocations are
// visible to every server instance.
type RedisTokenRevoker struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisTokenRevoker creates a revoker backed by an existing Redis client
func NewRedisTokenRevoker(client *redis.Client) *RedisTokenRevoker {
	return &RedisTokenRevoker{
		client:    client,
		keyPrefix: "auth:revoked:",
	}
}

func (r *RedisTokenRevoker) jtiKey(jti string) string {
	return r.keyPrefix + "jti:" + jti
}

func (r *RedisTokenRevoker) userKey(userID string) string {
	return r.keyPrefix + "user:" + userID
}

// RevokeToken marks a token's JTI as revoked until its natural expiry
func (r *RedisTokenRevoker) RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.jtiKey(jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// IsTokenRevoked checks whether a token's JTI has been revoked
func (r *RedisTokenRevoker) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	exists, err := r.client.Exists(ctx, r.jtiKey(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token revocation: %w", err)
	}
	return exists > 0, nil
}

// RevokeUserTokens stores the current time as the user's revocation cutoff.
// Tokens issued at or before the cutoff are treated as revoked.
func (r *RedisTokenRevoker) RevokeUserTokens(ctx context.Context, userID string, ttl time.Duration) error {
	cutoff := time.Now().Unix()
	if err := r.client.Set(ctx, r.userKey(userID), cutoff, ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke user tokens: %w", err)
	}
	return nil
}

// IsUserTokenRevoked compares a token's issue time against the user's cutoff
func (r *RedisTokenRevoker) IsUserTokenRevoked(ctx context.Context, userID string, tokenIssuedAt time.Time) (bool, error) {
	raw, err := r.client.Get(ctx, r.userKey(userID)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check user token revocation: %w", err)
	}

	cutoff, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return false, fmt.Errorf("failed to parse revocation cutoff: %w", err)
	}

	return tokenIssuedAt.Unix() <= cutoff, nil
}

var _ TokenRevoker = (*RedisTokenRevoker)(nil)

// InMemoryTokenRevoker provides a process-local implementation for tests
// and single-instance deployments without Redis.
type InMemoryTokenRevoker struct {
	mu          sync.RWMutex
	revokedJTIs map[string]time.Time // JTI -> expiry of the revocation entry
	userCutoffs map[string]time.Time
}

// NewInMemoryTokenRevoker creates an empty in-memory revoker
func NewInMemoryTokenRevoker() *InMemoryTokenRevoker {
	return &InMemoryTokenRevoker{
		revokedJTIs: make(map[string]time.Time),
		userCutoffs: make(map[string]time.Time),
	}
}

// RevokeToken marks a token's JTI as revoked
func (r *InMemoryTokenRevoker) RevokeToken(_ context.Context, jti string, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.revokedJTIs[jti] = time.Now().Add(ttl)
	return nil
}

// IsTokenRevoked checks whether a token's JTI is revoked, pruning expired entries
func (r *InMemoryTokenRevoker) IsTokenRevoked(_ context.Context, jti string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	expiry, exists := r.revokedJTIs[jti]
	if !exists {
		return false, nil
	}
	if time.Now().After(expiry) {
		delete(r.revokedJTIs, jti)
		return false, nil
	}
	return true, nil
}

// RevokeUserTokens invalidates every token issued to the user before now
func (r *InMemoryTokenRevoker) RevokeUserTokens(_ context.Context, userID string, _ time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.userCutoffs[userID] = time.Now()
	return nil
}

// IsUserTokenRevoked compares a token's issue time against the user's cutoff
func (r *InMemoryTokenRevoker) IsUserTokenRevoked(_ context.Context, userID string, tokenIssuedAt time.Time) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cutoff, exists := r.userCutoffs[userID]
	if !exists {
		return false, nil
	}
	// UnixNano keeps sub-second precision for fast test sequences
	return tokenIssuedAt.UnixNano() <= cutoff.UnixNano(), nil
}

var _ TokenRevoker = (*InMemoryTokenRevoker)(nil)
