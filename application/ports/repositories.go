// Package ports defines the application-facing contracts implemented by the
// infrastructure layer.
package ports

import (
	"context"

	"propcache-backend/domain/core/entities"
	"propcache-backend/domain/events"
)

// PropertyStore is the authoritative backing store for property listings.
// This is a port in hexagonal architecture - the application doesn't know
// about the implementation.
//
// ListAll returns properties in a stable order (creation order). Each
// mutating operation, on success, synchronously notifies subscribed
// listeners before returning; a failed persistence emits nothing.
type PropertyStore interface {
	// ListAll retrieves every property in creation order
	ListAll(ctx context.Context) ([]*entities.Property, error)

	// FindByID retrieves a property by its ID
	FindByID(ctx context.Context, id string) (*entities.Property, error)

	// Create persists a new property
	Create(ctx context.Context, property *entities.Property) (*entities.Property, error)

	// CreateBatch persists multiple properties, emitting one aggregate
	// mutation event for the whole batch
	CreateBatch(ctx context.Context, properties []*entities.Property) error

	// Update replaces an existing property
	Update(ctx context.Context, property *entities.Property) error

	// Delete removes a property
	Delete(ctx context.Context, id string) error

	// Subscribe registers a mutation listener
	Subscribe(listener events.MutationListener)
}
