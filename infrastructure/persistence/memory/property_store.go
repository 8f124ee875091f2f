// Package memory provides an in-memory property store, used in development
// and tests. It implements the same mutation-notification contract as the
// DynamoDB store.
package memory

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"propcache-backend/domain/core/entities"
	"propcache-backend/domain/events"
	pkgerrors "propcache-backend/pkg/errors"
)

// PropertyStore keeps properties in memory, ordered by insertion.
// Listeners registered via Subscribe are invoked synchronously after each
// successful mutation, before the mutating call returns.
type PropertyStore struct {
	mu         sync.RWMutex
	properties map[string]*entities.Property
	order      []string

	listeners []events.MutationListener
	logger    *zap.Logger
}

// NewPropertyStore creates an empty in-memory store
func NewPropertyStore(logger *zap.Logger) *PropertyStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PropertyStore{
		properties: make(map[string]*entities.Property),
		logger:     logger,
	}
}

// Subscribe registers a mutation listener. Listeners are called in
// registration order.
func (s *PropertyStore) Subscribe(listener events.MutationListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, listener)
}

// ListAll returns every property in insertion order
func (s *PropertyStore) ListAll(ctx context.Context) ([]*entities.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*entities.Property, 0, len(s.order))
	for _, id := range s.order {
		result = append(result, s.properties[id].Clone())
	}
	return result, nil
}

// FindByID returns a single property
func (s *PropertyStore) FindByID(ctx context.Context, id string) (*entities.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	property, exists := s.properties[id]
	if !exists {
		return nil, pkgerrors.NewNotFoundError("property not found: " + id)
	}
	return property.Clone(), nil
}

// Create persists a new property and notifies listeners
func (s *PropertyStore) Create(ctx context.Context, property *entities.Property) (*entities.Property, error) {
	s.mu.Lock()
	if _, exists := s.properties[property.ID]; exists {
		s.mu.Unlock()
		return nil, pkgerrors.NewPersistenceError("property already exists: "+property.ID, nil)
	}
	s.properties[property.ID] = property.Clone()
	s.order = append(s.order, property.ID)
	s.mu.Unlock()

	s.notify(events.MutationEvent{Kind: events.MutationCreated, Property: property.Clone(), BatchSize: 1})
	return property.Clone(), nil
}

// CreateBatch persists several properties and emits exactly one aggregate
// mutation event for the whole batch.
func (s *PropertyStore) CreateBatch(ctx context.Context, properties []*entities.Property) error {
	if len(properties) == 0 {
		return nil
	}

	s.mu.Lock()
	for _, property := range properties {
		if _, exists := s.properties[property.ID]; exists {
			s.mu.Unlock()
			return pkgerrors.NewPersistenceError("property already exists: "+property.ID, nil)
		}
	}
	for _, property := range properties {
		s.properties[property.ID] = property.Clone()
		s.order = append(s.order, property.ID)
	}
	s.mu.Unlock()

	s.notify(events.MutationEvent{Kind: events.MutationCreated, BatchSize: len(properties)})
	return nil
}

// Update replaces an existing property and notifies listeners
func (s *PropertyStore) Update(ctx context.Context, property *entities.Property) error {
	s.mu.Lock()
	if _, exists := s.properties[property.ID]; !exists {
		s.mu.Unlock()
		return pkgerrors.NewNotFoundError("property not found: " + property.ID)
	}
	s.properties[property.ID] = property.Clone()
	s.mu.Unlock()

	s.notify(events.MutationEvent{Kind: events.MutationUpdated, Property: property.Clone(), BatchSize: 1})
	return nil
}

// Delete removes a property and notifies listeners
func (s *PropertyStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	property, exists := s.properties[id]
	if !exists {
		s.mu.Unlock()
		return pkgerrors.NewNotFoundError("property not found: " + id)
	}
	delete(s.properties, id)
	for i, orderedID := range s.order {
		if orderedID == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	s.notify(events.MutationEvent{Kind: events.MutationDeleted, Property: property.Clone(), BatchSize: 1})
	return nil
}

// notify runs outside the store lock so listeners can call back into the
// store, but still before the mutating call returns.
func (s *PropertyStore) notify(event events.MutationEvent) {
	s.mu.RLock()
	listeners := make([]events.MutationListener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.RUnlock()

	for _, listener := range listeners {
		listener(event)
	}
}
