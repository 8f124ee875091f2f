// cache-metrics prints a point-in-time snapshot of the Redis cache's
// cumulative hit/miss counters, for dashboards and ad-hoc inspection.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"propcache-backend/application/services"
	"propcache-backend/infrastructure/cache"
)

func main() {
	addr := flag.String("addr", "localhost:6379", "redis address")
	password := flag.String("password", "", "redis password")
	db := flag.Int("db", 0, "redis logical database")
	timeout := flag.Duration("timeout", 5*time.Second, "request timeout")
	flag.Parse()

	redisCache := cache.NewRedisCache(cache.RedisConfig{
		Addr:     *addr,
		Password: *password,
		DB:       *db,
	}, nil)
	defer redisCache.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	snapshot, err := services.NewCacheMetricsService(redisCache).Snapshot(ctx)
	if err != nil {
		log.Fatalf("failed to read cache metrics: %v", err)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(snapshot); err != nil {
		log.Fatalf("failed to encode snapshot: %v", err)
	}

	if snapshot.TotalOps == 0 {
		fmt.Fprintln(os.Stderr, "no cache traffic recorded yet")
	}
}
