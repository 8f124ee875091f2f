package entities

import (
	"strings"
	"time"

	"github.com/google/uuid"

	pkgerrors "propcache-backend/pkg/errors"
)

// Property is a single real-estate listing. The backing store owns the
// authoritative record; cached copies are snapshots, never the record itself.
type Property struct {
	ID          string    `json:"id"`
	Title       string    `json:"title" validate:"required,max=200"`
	Description string    `json:"description"`
	Price       float64   `json:"price" validate:"gte=0"`
	Location    string    `json:"location" validate:"required,max=100"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewProperty creates a property with a generated identifier and timestamps.
func NewProperty(title, description string, price float64, location string) (*Property, error) {
	if strings.TrimSpace(title) == "" {
		return nil, pkgerrors.NewValidationError("title cannot be empty")
	}
	if price < 0 {
		return nil, pkgerrors.NewValidationError("price cannot be negative")
	}
	if strings.TrimSpace(location) == "" {
		return nil, pkgerrors.NewValidationError("location cannot be empty")
	}

	now := time.Now().UTC()
	return &Property{
		ID:          uuid.New().String(),
		Title:       title,
		Description: description,
		Price:       price,
		Location:    location,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// ApplyUpdate copies mutable fields from an update request onto the property.
// CreatedAt is immutable once set.
func (p *Property) ApplyUpdate(title, description *string, price *float64, location *string) error {
	if title != nil {
		if strings.TrimSpace(*title) == "" {
			return pkgerrors.NewValidationError("title cannot be empty")
		}
		p.Title = *title
	}
	if description != nil {
		p.Description = *description
	}
	if price != nil {
		if *price < 0 {
			return pkgerrors.NewValidationError("price cannot be negative")
		}
		p.Price = *price
	}
	if location != nil {
		if strings.TrimSpace(*location) == "" {
			return pkgerrors.NewValidationError("location cannot be empty")
		}
		p.Location = *location
	}
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// Clone returns a copy so store internals never leak mutable references.
func (p *Property) Clone() *Property {
	cp := *p
	return &cp
}
