package cache

import (
	"context"
	"sync"
	"time"

	"github.com/orderflow/backend/internal/domain/shared"
)

// cleanupInterval controls how often expired tokens are purged. Expired
// tokens are also treated as absent on read, so the sweep only bounds
// memory, not correctness.
const cleanupInterval = 5 * time.Minute

// InMemoryIdempotencyStore keeps consumed tokens in a process-local map.
// Replay state is not shared across instances, so it only protects
// single-instance deployments.
type InMemoryIdempotencyStore struct {
	mu        sync.RWMutex
	expiries  map[string]time.Time
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

var _ shared.IdempotencyStore = (*InMemoryIdempotencyStore)(nil)

// NewInMemoryIdempotencyStore creates the store and starts its sweep
// goroutine. Callers must Close the store to stop the sweeper.
func NewInMemoryIdempotencyStore() *InMemoryIdempotencyStore {
	s := &InMemoryIdempotencyStore{
		expiries: make(map[string]time.Time),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go s.sweep()
	return s
}

// MarkProcessed consumes a token for the given TTL. Returns true when this
// call consumed the token, false when a live entry already held it.
func (s *InMemoryIdempotencyStore) MarkProcessed(_ context.Context, token string, ttl time.Duration) (bool, error) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if exp, ok := s.expiries[token]; ok && now.Before(exp) {
		return false, nil
	}
	s.expiries[token] = now.Add(ttl)
	return true, nil
}

// IsProcessed reports whether a live entry holds the token. Expired entries
// read as absent even before the sweeper removes them.
func (s *InMemoryIdempotencyStore) IsProcessed(_ context.Context, token string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	exp, ok := s.expiries[token]
	return ok && time.Now().Before(exp), nil
}

// Release frees a consumed token so the guarded operation can be retried.
// Releasing a token that was never claimed is a no-op.
func (s *InMemoryIdempotencyStore) Release(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.expiries, token)
	return nil
}

// Close stops the sweep goroutine. Safe to call more than once.
func (s *InMemoryIdempotencyStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stop)
		<-s.done
	})
	return nil
}

// Size returns the number of entries, counting expired ones the sweeper has
// not removed yet.
func (s *InMemoryIdempotencyStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.expiries)
}

func (s *InMemoryIdempotencyStore) sweep() {
	defer close(s.done)

	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.removeExpired()
		}
	}
}

func (s *InMemoryIdempotencyStore) removeExpired() {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for token, exp := range s.expiries {
		if now.After(exp) {
			delete(s.expiries, token)
		}
	}
}
