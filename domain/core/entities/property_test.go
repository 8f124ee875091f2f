package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "propcache-backend/pkg/errors"
)

func TestNewProperty(t *testing.T) {
	property, err := NewProperty("Cozy flat", "two bedrooms", 1500, "Accra")
	require.NoError(t, err)

	assert.NotEmpty(t, property.ID)
	assert.Equal(t, "Cozy flat", property.Title)
	assert.Equal(t, float64(1500), property.Price)
	assert.False(t, property.CreatedAt.IsZero())
	assert.Equal(t, property.CreatedAt, property.UpdatedAt)
}

func TestNewProperty_Validation(t *testing.T) {
	tests := []struct {
		name     string
		title    string
		price    float64
		location string
	}{
		{"empty title", "", 100, "Accra"},
		{"blank title", "   ", 100, "Accra"},
		{"negative price", "flat", -1, "Accra"},
		{"empty location", "flat", 100, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProperty(tt.title, "", tt.price, tt.location)
			require.Error(t, err)
			assert.True(t, pkgerrors.IsValidation(err))
		})
	}
}

func TestApplyUpdate(t *testing.T) {
	property, err := NewProperty("flat", "old", 100, "Accra")
	require.NoError(t, err)
	createdAt := property.CreatedAt

	time.Sleep(time.Millisecond)

	title := "house"
	price := 250.0
	require.NoError(t, property.ApplyUpdate(&title, nil, &price, nil))

	assert.Equal(t, "house", property.Title)
	assert.Equal(t, 250.0, property.Price)
	assert.Equal(t, "old", property.Description)
	assert.Equal(t, createdAt, property.CreatedAt, "created_at is immutable")
	assert.True(t, property.UpdatedAt.After(createdAt))
}

func TestApplyUpdate_RejectsInvalidFields(t *testing.T) {
	property, err := NewProperty("flat", "", 100, "Accra")
	require.NoError(t, err)

	empty := ""
	assert.True(t, pkgerrors.IsValidation(property.ApplyUpdate(&empty, nil, nil, nil)))

	negative := -5.0
	assert.True(t, pkgerrors.IsValidation(property.ApplyUpdate(nil, nil, &negative, nil)))
}

func TestClone(t *testing.T) {
	property, err := NewProperty("flat", "", 100, "Accra")
	require.NoError(t, err)

	clone := property.Clone()
	clone.Title = "changed"

	assert.Equal(t, "flat", property.Title)
}
