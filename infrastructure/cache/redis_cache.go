package cache

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	pkgerrors "propcache-backend/pkg/errors"
)

// RedisCache is a Redis-backed cache. Hit/miss counters come from the Redis
// server itself (keyspace_hits / keyspace_misses), so they are shared across
// every client of that server and survive application restarts.
//
// A circuit breaker guards all calls: once Redis starts failing, requests
// are rejected immediately as BackendUnavailable instead of piling up on a
// dead connection.
type RedisCache struct {
	client  *redis.Client
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// RedisConfig holds connection settings for the cache backend
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisCache creates a Redis-backed cache
func NewRedisCache(cfg RedisConfig, logger *zap.Logger) *RedisCache {
	if logger == nil {
		logger = zap.NewNop()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "redis-cache",
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= 0.8
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			// An absent key is a normal miss, not a backend failure
			return err == nil || errors.Is(err, redis.Nil)
		},
	})

	return &RedisCache{
		client:  client,
		breaker: breaker,
		logger:  logger,
	}
}

// Get retrieves a value. The Redis server counts the lookup as one
// keyspace hit or miss.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	result, err := c.breaker.Execute(func() (any, error) {
		return c.client.Get(ctx, key).Bytes()
	})
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, c.unavailable("cache get failed", err)
	}
	return result.([]byte), true, nil
}

// Set stores a value with the given TTL, overwriting any existing entry
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := c.breaker.Execute(func() (any, error) {
		return nil, c.client.Set(ctx, key, value, ttl).Err()
	})
	if err != nil {
		return c.unavailable("cache set failed", err)
	}
	return nil
}

// Delete removes a key. Redis DEL on an absent key is already a no-op.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	_, err := c.breaker.Execute(func() (any, error) {
		return nil, c.client.Del(ctx, key).Err()
	})
	if err != nil {
		return c.unavailable("cache delete failed", err)
	}
	return nil
}

// Clear removes all keys starting with prefix using SCAN, so large keyspaces
// are not blocked the way KEYS would.
func (c *RedisCache) Clear(ctx context.Context, prefix string) error {
	_, err := c.breaker.Execute(func() (any, error) {
		iter := c.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
		var keys []string
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		if err := iter.Err(); err != nil {
			return nil, err
		}
		if len(keys) == 0 {
			return nil, nil
		}
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			return nil, err
		}
		c.logger.Info("Cleared cache entries",
			zap.String("prefix", prefix),
			zap.Int("count", len(keys)),
		)
		return nil, nil
	})
	if err != nil {
		return c.unavailable("cache clear failed", err)
	}
	return nil
}

// Peek reports presence, value and remaining TTL. Redis counts every key
// lookup in its server-wide keyspace stats, so a Peek against this backend
// does perturb the shared counters; there is no lookup command that skips
// them. The in-memory backend peeks without counting.
func (c *RedisCache) Peek(ctx context.Context, key string) ([]byte, time.Duration, bool, error) {
	result, err := c.breaker.Execute(func() (any, error) {
		pipe := c.client.Pipeline()
		getCmd := pipe.Get(ctx, key)
		ttlCmd := pipe.PTTL(ctx, key)
		if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
			return nil, err
		}

		value, err := getCmd.Bytes()
		if errors.Is(err, redis.Nil) {
			return peekResult{}, nil
		} else if err != nil {
			return nil, err
		}

		remaining := ttlCmd.Val()
		if remaining < 0 {
			remaining = 0
		}
		return peekResult{value: value, ttl: remaining, found: true}, nil
	})
	if err != nil {
		return nil, 0, false, c.unavailable("cache peek failed", err)
	}

	peek := result.(peekResult)
	return peek.value, peek.ttl, peek.found, nil
}

type peekResult struct {
	value []byte
	ttl   time.Duration
	found bool
}

// Counters reads the server-wide keyspace_hits / keyspace_misses counters
// from INFO stats. They cover every key on the server, not just this
// application's; a shared Redis makes the ratio an approximation.
func (c *RedisCache) Counters(ctx context.Context) (int64, int64, error) {
	result, err := c.breaker.Execute(func() (any, error) {
		return c.client.Info(ctx, "stats").Result()
	})
	if err != nil {
		return 0, 0, pkgerrors.NewMetricsUnavailableError("cache backend unreachable", err)
	}

	info := result.(string)
	hits, hitsOK := parseInfoCounter(info, "keyspace_hits")
	misses, missesOK := parseInfoCounter(info, "keyspace_misses")
	if !hitsOK || !missesOK {
		return 0, 0, pkgerrors.NewMetricsUnavailableError("cache backend does not expose keyspace counters", nil)
	}
	return hits, misses, nil
}

// Ping verifies connectivity, for startup checks and the health endpoint
func (c *RedisCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return c.unavailable("cache ping failed", err)
	}
	return nil
}

// Close releases the underlying connection pool
func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) unavailable(message string, err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		message = message + " (circuit open)"
	}
	return pkgerrors.NewBackendUnavailableError(message, err)
}

func parseInfoCounter(info, field string) (int64, bool) {
	for _, line := range strings.Split(info, "\r\n") {
		if rest, ok := strings.CutPrefix(line, field+":"); ok {
			value, err := strconv.ParseInt(strings.TrimSpace(rest), 10, 64)
			if err != nil {
				return 0, false
			}
			return value, true
		}
	}
	return 0, false
}
