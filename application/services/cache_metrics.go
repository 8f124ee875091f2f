package services

import (
	"context"
	"math"

	"propcache-backend/infrastructure/cache"
	pkgerrors "propcache-backend/pkg/errors"
)

// MetricsSnapshot is a point-in-time view of the cache backend's cumulative
// hit/miss counters. Ratios are percentages rounded to two decimals.
type MetricsSnapshot struct {
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	HitRatio  float64 `json:"hit_ratio"`
	MissRatio float64 `json:"miss_ratio"`
	TotalOps  int64   `json:"total_ops"`
}

// CacheMetricsService derives hit/miss ratios from the backend's own
// counters. The counters are backend-wide: on a shared Redis they include
// traffic from other applications, a documented imprecision.
type CacheMetricsService struct {
	counters cache.CounterSource
}

// NewCacheMetricsService creates a metrics service over a cache backend.
// Passing a backend without counters yields MetricsUnavailable on every
// snapshot rather than a zeroed result.
func NewCacheMetricsService(kv cache.Cache) *CacheMetricsService {
	counters, _ := kv.(cache.CounterSource)
	return &CacheMetricsService{counters: counters}
}

// Snapshot reads the counters and computes ratios. A backend that lacks
// counters or cannot be reached yields MetricsUnavailable, distinguishable
// from a snapshot with legitimately zero traffic.
func (s *CacheMetricsService) Snapshot(ctx context.Context) (*MetricsSnapshot, error) {
	if s.counters == nil {
		return nil, pkgerrors.NewMetricsUnavailableError("cache backend does not expose hit/miss counters", nil)
	}

	hits, misses, err := s.counters.Counters(ctx)
	if err != nil {
		if pkgerrors.IsMetricsUnavailable(err) {
			return nil, err
		}
		return nil, pkgerrors.NewMetricsUnavailableError("failed to read cache counters", err)
	}

	total := hits + misses
	snapshot := &MetricsSnapshot{
		Hits:     hits,
		Misses:   misses,
		TotalOps: total,
	}
	if total > 0 {
		snapshot.HitRatio = round2(float64(hits) / float64(total) * 100)
		snapshot.MissRatio = round2(float64(misses) / float64(total) * 100)
	}
	return snapshot, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
