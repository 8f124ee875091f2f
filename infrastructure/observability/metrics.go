// Package observability exposes process-local Prometheus metrics. These are
// complementary to the cache backend's own cumulative counters: Prometheus
// counters reset with the process, the backend counters reset with the
// backend.
package observability

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	globalCollector *Collector
	collectorMutex  sync.Mutex
)

// Collector holds all Prometheus metrics for the application
type Collector struct {
	registry *prometheus.Registry

	// Cache metrics
	CacheHits          prometheus.Counter
	CacheMisses        prometheus.Counter
	CacheInvalidations prometheus.Counter

	// Store metrics
	StoreOperations *prometheus.CounterVec

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
}

// NewCollector creates a metrics collector with the given namespace.
// Singleton so repeated construction in tests does not trip duplicate
// registration.
func NewCollector(namespace string) *Collector {
	collectorMutex.Lock()
	defer collectorMutex.Unlock()

	if globalCollector != nil {
		return globalCollector
	}

	registry := prometheus.NewRegistry()

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_hits_total",
		Help:      "Total number of listing cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_misses_total",
		Help:      "Total number of listing cache misses",
	})

	cacheInvalidations := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_invalidations_total",
		Help:      "Total number of cache invalidations triggered by store mutations",
	})

	storeOperations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_operations_total",
			Help:      "Total number of backing store operations",
		},
		[]string{"operation"},
	)

	httpRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	registry.MustRegister(cacheHits, cacheMisses, cacheInvalidations, storeOperations, httpRequests)

	globalCollector = &Collector{
		registry:           registry,
		CacheHits:          cacheHits,
		CacheMisses:        cacheMisses,
		CacheInvalidations: cacheInvalidations,
		StoreOperations:    storeOperations,
		HTTPRequests:       httpRequests,
	}
	return globalCollector
}

// Handler returns the HTTP handler serving the /metrics endpoint
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
