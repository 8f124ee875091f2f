package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"propcache-backend/application/ports"
	"propcache-backend/domain/events"
	"propcache-backend/infrastructure/cache"
)

// ViewCachePrefix namespaces cached HTTP responses so mutation-triggered
// invalidation can clear them alongside the collection snapshot.
const ViewCachePrefix = "views:"

// InvalidationHook wires store mutations to cache invalidation. Every
// mutation kind triggers the same unconditional invalidation; there is no
// selective invalidation by field or id. Because the store notifies
// listeners synchronously, the invalidation completes before the mutating
// call returns, so a subsequent GetAll on any goroutine repopulates instead
// of serving a pre-mutation snapshot.
//
// A hook failure (cache unreachable during delete) is logged for
// remediation, never propagated: the mutation has already durably succeeded
// and must not be rolled back.
type InvalidationHook struct {
	listings *CachedListingService
	cache    cache.Cache
	timeout  time.Duration
	logger   *zap.Logger
}

// NewInvalidationHook creates the hook. Register attaches it to a store.
func NewInvalidationHook(listings *CachedListingService, kv cache.Cache, logger *zap.Logger) *InvalidationHook {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvalidationHook{
		listings: listings,
		cache:    kv,
		timeout:  5 * time.Second,
		logger:   logger,
	}
}

// Register subscribes the hook to the store's mutation events
func (h *InvalidationHook) Register(store ports.PropertyStore) {
	store.Subscribe(h.OnMutation)
}

// OnMutation handles a single mutation event
func (h *InvalidationHook) OnMutation(event events.MutationEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	if err := h.listings.Invalidate(ctx); err != nil {
		h.logger.Error("Failed to invalidate listing cache after mutation",
			zap.String("kind", string(event.Kind)),
			zap.Error(err),
		)
	}

	// Cached HTTP responses go stale with the collection snapshot
	if err := h.cache.Clear(ctx, ViewCachePrefix); err != nil {
		h.logger.Error("Failed to clear response cache after mutation",
			zap.String("kind", string(event.Kind)),
			zap.Error(err),
		)
	}

	title := ""
	if event.Property != nil {
		title = event.Property.Title
	}
	h.logger.Info("Cache invalidated by store mutation",
		zap.String("kind", string(event.Kind)),
		zap.String("title", title),
		zap.Int("batch_size", event.BatchSize),
	)
}
