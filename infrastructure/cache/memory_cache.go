package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// MemoryCache is an in-memory cache with per-item TTL and hit/miss counters.
// Expiry is lazy: a Get past an item's deadline behaves as a miss, with an
// optional background sweeper reclaiming memory. This implementation is
// thread-safe and suitable for single-instance deployments and tests.
type MemoryCache struct {
	mu    sync.Mutex
	items map[string]*cacheItem

	// Cumulative counters, reset only when the process restarts
	hits   int64
	misses int64

	logger *zap.Logger
}

// cacheItem represents a single cached entry
type cacheItem struct {
	value  []byte
	expiry time.Time
}

// NewMemoryCache creates a new in-memory cache
func NewMemoryCache(logger *zap.Logger) *MemoryCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryCache{
		items:  make(map[string]*cacheItem),
		logger: logger,
	}
}

// Get retrieves a value from the cache, counting one hit or miss
func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, exists := c.items[key]
	if !exists {
		c.misses++
		return nil, false, nil
	}

	if time.Now().After(item.expiry) {
		delete(c.items, key)
		c.misses++
		return nil, false, nil
	}

	c.hits++

	// Return a copy to prevent external modifications
	value := make([]byte, len(item.value))
	copy(value, item.value)

	return value, true, nil
}

// Set stores a value in the cache with the specified TTL
func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	item := &cacheItem{
		value:  make([]byte, len(value)),
		expiry: time.Now().Add(ttl),
	}
	copy(item.value, value)

	c.items[key] = item
	return nil
}

// Delete removes a value from the cache. Absent keys are a no-op.
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)
	return nil
}

// Clear removes all entries whose key starts with prefix
func (c *MemoryCache) Clear(ctx context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := 0
	for key := range c.items {
		if prefix == "" || strings.HasPrefix(key, prefix) {
			delete(c.items, key)
			count++
		}
	}

	c.logger.Info("Cleared cache entries",
		zap.String("prefix", prefix),
		zap.Int("count", count),
	)
	return nil
}

// Peek reports presence, value and remaining TTL without touching the
// hit/miss counters. Used for diagnostic status checks.
func (c *MemoryCache) Peek(ctx context.Context, key string) ([]byte, time.Duration, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, exists := c.items[key]
	if !exists {
		return nil, 0, false, nil
	}

	remaining := time.Until(item.expiry)
	if remaining <= 0 {
		delete(c.items, key)
		return nil, 0, false, nil
	}

	value := make([]byte, len(item.value))
	copy(value, item.value)

	return value, remaining, true, nil
}

// Counters returns the cumulative hit/miss counters
func (c *MemoryCache) Counters(ctx context.Context) (int64, int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses, nil
}

// StartSweeper starts a background goroutine that removes expired items
// until ctx is cancelled. Purely a memory reclaim; correctness relies on
// lazy expiry in Get and Peek.
func (c *MemoryCache) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.sweepExpired()
			}
		}
	}()
}

func (c *MemoryCache) sweepExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	count := 0
	for key, item := range c.items {
		if now.After(item.expiry) {
			delete(c.items, key)
			count++
		}
	}

	if count > 0 {
		c.logger.Debug("Swept expired cache items", zap.Int("count", count))
	}
}
