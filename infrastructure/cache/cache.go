// Package cache provides the key-value caching backends used by the
// cache-aside listing repository.
package cache

import (
	"context"
	"time"
)

// Cache abstracts the caching backend.
// This allows different cache implementations (Redis, in-memory, etc.)
type Cache interface {
	// Get returns the unexpired value for key. Every Get counts exactly one
	// hit or miss in the backend's cumulative counters. A transport failure
	// is returned as a BackendUnavailable error, never as a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set overwrites any existing entry and resets its TTL. Never counted
	// as a hit or miss.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes the entry. Deleting an absent key is a no-op.
	Delete(ctx context.Context, key string) error

	// Clear removes all entries whose key starts with prefix. An empty
	// prefix clears everything.
	Clear(ctx context.Context, prefix string) error
}

// Peeker is an optional diagnostic read that reports presence and remaining
// TTL. Backends that can avoid it should not count a Peek toward hit/miss
// counters; status checks are diagnostics, not traffic.
type Peeker interface {
	Peek(ctx context.Context, key string) (value []byte, ttlRemaining time.Duration, found bool, err error)
}

// CounterSource exposes the backend's cumulative hit/miss counters. Counters
// are backend-wide and reset only when the backend restarts, never by the
// application.
type CounterSource interface {
	Counters(ctx context.Context) (hits, misses int64, err error)
}
