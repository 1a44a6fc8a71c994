package shared

import (
	"context"
	"time"
)

// IdempotencyStore stores caller-supplied operation tokens so a retried
// ledger mutation is not applied twice. A retried call after an ambiguous
// timeout is the one case the transactional core cannot distinguish on its
// own; callers that need exactly-once semantics supply a token per logical
// operation.
type IdempotencyStore interface {
	// MarkProcessed marks a token as consumed with a TTL.
	// Returns true if the token was newly marked, false if it was already consumed.
	MarkProcessed(ctx context.Context, token string, ttl time.Duration) (bool, error)

	// IsProcessed checks whether a token has already been consumed
	IsProcessed(ctx context.Context, token string) (bool, error)

	// Release frees a consumed token so the operation can be retried.
	// Callers release when the guarded mutation fails after the claim;
	// releasing an unknown token is a no-op.
	Release(ctx context.Context, token string) error

	// Close closes the store and releases resources
	Close() error
}

// DefaultIdempotencyTTL is how long a consumed token is remembered.
// After expiry the same token would be applied again; callers must mint
// fresh tokens per logical operation, not reuse them across days.
const DefaultIdempotencyTTL = 24 * time.Hour
