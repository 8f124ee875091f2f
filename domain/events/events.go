// Package events defines store mutation notifications. Listeners are invoked
// synchronously after each successful mutation, before the mutating call
// returns, which is the single ordering guarantee the caching layer relies on.
package events

import "propcache-backend/domain/core/entities"

// MutationKind identifies what happened to the store
type MutationKind string

const (
	MutationCreated MutationKind = "created"
	MutationUpdated MutationKind = "updated"
	MutationDeleted MutationKind = "deleted"
)

// MutationEvent describes a successful store mutation. Bulk operations carry
// a nil Property and a BatchSize greater than one; exactly one aggregate
// event fires per bulk call.
type MutationEvent struct {
	Kind      MutationKind
	Property  *entities.Property
	BatchSize int
}

// MutationListener receives mutation events. Listener failures must never
// fail or roll back the mutation that triggered them.
type MutationListener func(event MutationEvent)
