package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"propcache-backend/application/ports"
	"propcache-backend/application/services"
	"propcache-backend/domain/core/entities"
	"propcache-backend/pkg/common"
	pkgerrors "propcache-backend/pkg/errors"
)

// PropertyHandler handles property-related HTTP requests
type PropertyHandler struct {
	listings *services.CachedListingService
	store    ports.PropertyStore
	metrics  *services.CacheMetricsService
	validate *validator.Validate
	logger   *zap.Logger
}

// NewPropertyHandler creates a new property handler
func NewPropertyHandler(
	listings *services.CachedListingService,
	store ports.PropertyStore,
	metrics *services.CacheMetricsService,
	logger *zap.Logger,
) *PropertyHandler {
	return &PropertyHandler{
		listings: listings,
		store:    store,
		metrics:  metrics,
		validate: validator.New(),
		logger:   logger,
	}
}

// CreatePropertyRequest represents the request body for creating a property
type CreatePropertyRequest struct {
	Title       string  `json:"title" validate:"required,min=1,max=200"`
	Description string  `json:"description" validate:"max=2000"`
	Price       float64 `json:"price" validate:"gte=0"`
	Location    string  `json:"location" validate:"required,min=1,max=100"`
}

// UpdatePropertyRequest represents the request body for updating a property
type UpdatePropertyRequest struct {
	Title       *string  `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string  `json:"description,omitempty" validate:"omitempty,max=2000"`
	Price       *float64 `json:"price,omitempty" validate:"omitempty,gte=0"`
	Location    *string  `json:"location,omitempty" validate:"omitempty,min=1,max=100"`
}

// BulkCreateRequest represents the request body for bulk creation
type BulkCreateRequest struct {
	Items []CreatePropertyRequest `json:"items" validate:"required,min=1,max=100,dive"`
}

// ListResponse is the list-plus-count shape served to clients
type ListResponse struct {
	Items []*entities.Property `json:"items"`
	Count int                  `json:"count"`
}

// List handles GET /properties
func (h *PropertyHandler) List(w http.ResponseWriter, r *http.Request) {
	properties, err := h.listings.GetAll(r.Context())
	if err != nil {
		h.logger.Error("Failed to list properties", zap.Error(err))
		common.RespondError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, ListResponse{Items: properties, Count: len(properties)})
}

// Create handles POST /properties
func (h *PropertyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreatePropertyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondValidationError(w, "invalid request body: "+err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		common.RespondValidationError(w, err.Error())
		return
	}

	property, err := entities.NewProperty(req.Title, req.Description, req.Price, req.Location)
	if err != nil {
		common.RespondError(w, err)
		return
	}

	created, err := h.store.Create(r.Context(), property)
	if err != nil {
		h.logger.Error("Failed to create property", zap.Error(err))
		common.RespondError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusCreated, created)
}

// BulkCreate handles POST /properties/bulk. The store emits one aggregate
// mutation event for the whole batch.
func (h *PropertyHandler) BulkCreate(w http.ResponseWriter, r *http.Request) {
	var req BulkCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondValidationError(w, "invalid request body: "+err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		common.RespondValidationError(w, err.Error())
		return
	}

	properties := make([]*entities.Property, 0, len(req.Items))
	for _, item := range req.Items {
		property, err := entities.NewProperty(item.Title, item.Description, item.Price, item.Location)
		if err != nil {
			common.RespondError(w, err)
			return
		}
		properties = append(properties, property)
	}

	if err := h.store.CreateBatch(r.Context(), properties); err != nil {
		h.logger.Error("Failed to bulk create properties", zap.Error(err))
		common.RespondError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusCreated, map[string]int{"created": len(properties)})
}

// Update handles PUT /properties/{id}
func (h *PropertyHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		common.RespondValidationError(w, "property id is required")
		return
	}

	var req UpdatePropertyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondValidationError(w, "invalid request body: "+err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		common.RespondValidationError(w, err.Error())
		return
	}

	property, err := h.store.FindByID(r.Context(), id)
	if err != nil {
		common.RespondError(w, err)
		return
	}

	if err := property.ApplyUpdate(req.Title, req.Description, req.Price, req.Location); err != nil {
		common.RespondError(w, err)
		return
	}

	if err := h.store.Update(r.Context(), property); err != nil {
		h.logger.Error("Failed to update property", zap.String("id", id), zap.Error(err))
		common.RespondError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, property)
}

// Delete handles DELETE /properties/{id}
func (h *PropertyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		common.RespondValidationError(w, "property id is required")
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		if !pkgerrors.IsNotFound(err) {
			h.logger.Error("Failed to delete property", zap.String("id", id), zap.Error(err))
		}
		common.RespondError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CacheStatus handles GET /properties/cache-status. A diagnostic read, not
// traffic: served through the cache's peek operation where supported.
func (h *PropertyHandler) CacheStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.listings.Status(r.Context())
	if err != nil {
		common.RespondError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"cache_key":             services.AllPropertiesKey,
		"is_cached":             status.IsCached,
		"cached_count":          status.CachedCount,
		"ttl_remaining_seconds": int(status.TTLRemaining.Seconds()),
	})
}

// CacheMetrics handles GET /properties/cache-metrics
func (h *PropertyHandler) CacheMetrics(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.metrics.Snapshot(r.Context())
	if err != nil {
		common.RespondError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, snapshot)
}
