package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"propcache-backend/application/ports"
	"propcache-backend/application/services"
	"propcache-backend/infrastructure/cache"
	"propcache-backend/infrastructure/config"
	"propcache-backend/infrastructure/observability"
	"propcache-backend/interfaces/http/rest/handlers"
	"propcache-backend/interfaces/http/rest/middleware"
)

// Router creates and configures the HTTP router
type Router struct {
	listings     *services.CachedListingService
	store        ports.PropertyStore
	cacheMetrics *services.CacheMetricsService
	kv           cache.Cache
	collector    *observability.Collector
	cfg          *config.Config
	logger       *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(
	listings *services.CachedListingService,
	store ports.PropertyStore,
	cacheMetrics *services.CacheMetricsService,
	kv cache.Cache,
	collector *observability.Collector,
	cfg *config.Config,
	logger *zap.Logger,
) *Router {
	return &Router{
		listings:     listings,
		store:        store,
		cacheMetrics: cacheMetrics,
		kv:           kv,
		collector:    collector,
		cfg:          cfg,
		logger:       logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger, rt.collector))

	if rt.cfg.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID", "X-Cache"},
			MaxAge:         300,
		}))
	}

	// Health check
	router.Get("/health", rt.healthCheck)

	if rt.cfg.EnableMetrics && rt.collector != nil {
		router.Handle("/metrics", rt.collector.Handler())
	}

	propertyHandler := handlers.NewPropertyHandler(rt.listings, rt.store, rt.cacheMetrics, rt.logger)

	router.Route("/properties", func(r chi.Router) {
		// The listing response is cached whole, on top of the queryset cache
		r.With(middleware.ResponseCache(rt.kv, services.ViewCachePrefix, rt.cfg.ViewCacheTTL(), rt.logger)).
			Get("/", propertyHandler.List)

		r.Post("/", propertyHandler.Create)
		r.Post("/bulk", propertyHandler.BulkCreate)
		r.Put("/{id}", propertyHandler.Update)
		r.Delete("/{id}", propertyHandler.Delete)

		// Diagnostics
		r.Get("/cache-status", propertyHandler.CacheStatus)
		r.Get("/cache-metrics", propertyHandler.CacheMetrics)
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}
