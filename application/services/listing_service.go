package services

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"propcache-backend/application/ports"
	"propcache-backend/domain/core/entities"
	"propcache-backend/infrastructure/cache"
	"propcache-backend/infrastructure/observability"
	pkgerrors "propcache-backend/pkg/errors"
)

// AllPropertiesKey is the single well-known key holding the full collection
// snapshot. Writes are last-writer-wins; at most one cached value exists per
// key.
const AllPropertiesKey = "all_properties"

// CachedListingService is the single source of truth for "get all
// properties, cached". It layers a cache-aside (lazy loading) read path over
// the backing store:
//
//  1. Check the cache for AllPropertiesKey
//  2. On miss, read the store and write the snapshot back with the
//     configured TTL
//  3. Return the snapshot
//
// Two concurrent misses may both read the store and both write the cache.
// That race is tolerated: both writers compute the same value from the same
// authoritative store, so the lost update costs a redundant read, not
// correctness.
type CachedListingService struct {
	store   ports.PropertyStore
	cache   cache.Cache
	ttl     time.Duration
	metrics *observability.Collector
	logger  *zap.Logger
}

// ListingStatus reports the diagnostic state of the collection cache
type ListingStatus struct {
	IsCached     bool          `json:"is_cached"`
	CachedCount  int           `json:"cached_count"`
	TTLRemaining time.Duration `json:"ttl_remaining"`
}

// NewCachedListingService creates the cache-aside listing service.
// Dependencies are injected explicitly; there is no global cache handle.
func NewCachedListingService(
	store ports.PropertyStore,
	kv cache.Cache,
	ttl time.Duration,
	metrics *observability.Collector,
	logger *zap.Logger,
) *CachedListingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedListingService{
		store:   store,
		cache:   kv,
		ttl:     ttl,
		metrics: metrics,
		logger:  logger,
	}
}

// GetAll returns every property, served from the cache when possible.
// The returned sequence is either a previous snapshot (hit) or the store's
// state at call time (miss), never a hybrid. Cache transport failures
// propagate to the caller; they are not masked as misses.
func (s *CachedListingService) GetAll(ctx context.Context) ([]*entities.Property, error) {
	data, found, err := s.cache.Get(ctx, AllPropertiesKey)
	if err != nil {
		return nil, err
	}

	if found {
		properties, unmarshalErr := unmarshalProperties(data)
		if unmarshalErr == nil {
			s.recordHit(len(properties))
			return properties, nil
		}
		// Corrupt payload: repopulate from the store below
		s.logger.Warn("Discarding undecodable cache entry",
			zap.String("key", AllPropertiesKey),
			zap.Error(unmarshalErr),
		)
	}

	properties, err := s.listFromStore(ctx)
	if err != nil {
		return nil, err
	}

	if data, marshalErr := json.Marshal(properties); marshalErr == nil {
		// A failed cache write only costs the next caller a store read;
		// the snapshot we already hold is authoritative
		if setErr := s.cache.Set(ctx, AllPropertiesKey, data, s.ttl); setErr != nil {
			s.logger.Error("Failed to populate listing cache", zap.Error(setErr))
		}
	}

	s.recordMiss(len(properties))
	return properties, nil
}

// Invalidate removes the collection snapshot so the next GetAll repopulates
// from the store. Idempotent; safe when nothing is cached.
func (s *CachedListingService) Invalidate(ctx context.Context) error {
	if err := s.cache.Delete(ctx, AllPropertiesKey); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.CacheInvalidations.Inc()
	}
	s.logger.Info("Listing cache invalidated", zap.String("key", AllPropertiesKey))
	return nil
}

// Status reports whether the collection is cached and how many properties
// the snapshot holds. Uses Peek where the backend supports it, so the check
// does not count toward hit/miss metrics; the Redis backend documents that
// its server-wide counters see every lookup.
func (s *CachedListingService) Status(ctx context.Context) (*ListingStatus, error) {
	var (
		data      []byte
		remaining time.Duration
		found     bool
		err       error
	)

	if peeker, ok := s.cache.(cache.Peeker); ok {
		data, remaining, found, err = peeker.Peek(ctx, AllPropertiesKey)
	} else {
		data, found, err = s.cache.Get(ctx, AllPropertiesKey)
	}
	if err != nil {
		return nil, err
	}

	status := &ListingStatus{IsCached: found, TTLRemaining: remaining}
	if found {
		if properties, unmarshalErr := unmarshalProperties(data); unmarshalErr == nil {
			status.CachedCount = len(properties)
		}
	}
	return status, nil
}

func (s *CachedListingService) listFromStore(ctx context.Context) ([]*entities.Property, error) {
	properties, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.StoreOperations.WithLabelValues("list_all").Inc()
	}
	return properties, nil
}

func (s *CachedListingService) recordHit(count int) {
	if s.metrics != nil {
		s.metrics.CacheHits.Inc()
	}
	s.logger.Debug("Cache hit", zap.String("key", AllPropertiesKey), zap.Int("count", count))
}

func (s *CachedListingService) recordMiss(count int) {
	if s.metrics != nil {
		s.metrics.CacheMisses.Inc()
	}
	s.logger.Debug("Cache miss, repopulated from store",
		zap.String("key", AllPropertiesKey),
		zap.Int("count", count),
	)
}

func unmarshalProperties(data []byte) ([]*entities.Property, error) {
	var properties []*entities.Property
	if err := json.Unmarshal(data, &properties); err != nil {
		return nil, pkgerrors.NewInternalError("failed to decode cached properties", err)
	}
	if properties == nil {
		properties = []*entities.Property{}
	}
	return properties, nil
}
