package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"

	"propcache-backend/application/ports"
	"propcache-backend/application/services"
	"propcache-backend/infrastructure/cache"
	"propcache-backend/infrastructure/config"
	dynamostore "propcache-backend/infrastructure/persistence/dynamodb"
	memorystore "propcache-backend/infrastructure/persistence/memory"
	"propcache-backend/infrastructure/observability"
	"propcache-backend/interfaces/http/rest"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Environment, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	collector := observability.NewCollector("propcache")

	kv, closeCache, err := buildCache(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize cache backend", zap.Error(err))
	}
	defer closeCache()

	store, err := buildStore(ctx, cfg, logger)
	if err != nil {
		// Fatal exits without running defers
		closeCache()
		logger.Fatal("Failed to initialize backing store", zap.Error(err))
	}

	listings := services.NewCachedListingService(store, kv, cfg.CacheTTL(), collector, logger)
	cacheMetrics := services.NewCacheMetricsService(kv)

	// Mutations invalidate both the collection snapshot and cached responses
	hook := services.NewInvalidationHook(listings, kv, logger)
	hook.Register(store)

	router := rest.NewRouter(listings, store, cacheMetrics, kv, collector, cfg, logger)

	srv := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      router.Setup(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Starting server",
			zap.String("address", cfg.ServerAddress),
			zap.String("environment", cfg.Environment),
			zap.String("cache_backend", cfg.CacheBackend),
			zap.String("store_backend", cfg.StoreBackend),
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}

	if err := logger.Sync(); err != nil {
		log.Printf("Failed to sync logger: %v", err)
	}

	log.Println("Server stopped")
}

func buildCache(ctx context.Context, cfg *config.Config, logger *zap.Logger) (cache.Cache, func(), error) {
	switch cfg.CacheBackend {
	case config.CacheBackendRedis:
		redisCache := cache.NewRedisCache(cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, logger)

		pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
		defer pingCancel()
		if err := redisCache.Ping(pingCtx); err != nil {
			return nil, nil, err
		}

		return redisCache, func() { redisCache.Close() }, nil

	default:
		memoryCache := cache.NewMemoryCache(logger)
		memoryCache.StartSweeper(ctx, cfg.SweepInterval())
		return memoryCache, func() {}, nil
	}
}

func buildStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ports.PropertyStore, error) {
	switch cfg.StoreBackend {
	case config.StoreBackendDynamoDB:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			return nil, err
		}
		client := dynamodb.NewFromConfig(awsCfg)
		return dynamostore.NewPropertyStore(client, cfg.DynamoDBTable, logger), nil

	default:
		return memorystore.NewPropertyStore(logger), nil
	}
}
