package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Backend selectors
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"

	StoreBackendMemory   = "memory"
	StoreBackendDynamoDB = "dynamodb"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string `yaml:"server_address"`
	Environment   string `yaml:"environment"`

	// Logging
	LogLevel string `yaml:"log_level"`

	// Cache backend selection and connection
	CacheBackend  string `yaml:"cache_backend"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	// Store backend selection and connection
	StoreBackend  string `yaml:"store_backend"`
	AWSRegion     string `yaml:"aws_region"`
	DynamoDBTable string `yaml:"dynamodb_table"`

	// Cache expiry, in seconds. The collection snapshot lives for an hour;
	// cached HTTP responses for fifteen minutes.
	CacheTTLSeconds     int `yaml:"cache_ttl_seconds"`
	ViewCacheTTLSeconds int `yaml:"view_cache_ttl_seconds"`
	SweepIntervalSecs   int `yaml:"sweep_interval_seconds"`

	// Feature flags
	EnableMetrics bool `yaml:"enable_metrics"`
	EnableCORS    bool `yaml:"enable_cors"`
}

// LoadConfig loads configuration from an optional YAML file (CONFIG_FILE)
// with environment variables taking precedence.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerAddress:       ":8080",
		Environment:         "development",
		LogLevel:            "info",
		CacheBackend:        CacheBackendMemory,
		RedisAddr:           "localhost:6379",
		RedisDB:             0,
		StoreBackend:        StoreBackendMemory,
		AWSRegion:           "us-west-2",
		DynamoDBTable:       "properties",
		CacheTTLSeconds:     3600,
		ViewCacheTTLSeconds: 900,
		SweepIntervalSecs:   60,
		EnableMetrics:       true,
		EnableCORS:          true,
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.ServerAddress = getEnv("SERVER_ADDRESS", cfg.ServerAddress)
	cfg.Environment = getEnv("ENVIRONMENT", cfg.Environment)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.CacheBackend = getEnv("CACHE_BACKEND", cfg.CacheBackend)
	cfg.RedisAddr = getEnv("REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisDB = getEnvInt("REDIS_DB", cfg.RedisDB)
	cfg.StoreBackend = getEnv("STORE_BACKEND", cfg.StoreBackend)
	cfg.AWSRegion = getEnv("AWS_REGION", cfg.AWSRegion)
	cfg.DynamoDBTable = getEnv("DYNAMODB_TABLE", cfg.DynamoDBTable)
	cfg.CacheTTLSeconds = getEnvInt("CACHE_TTL_SECONDS", cfg.CacheTTLSeconds)
	cfg.ViewCacheTTLSeconds = getEnvInt("VIEW_CACHE_TTL_SECONDS", cfg.ViewCacheTTLSeconds)
	cfg.SweepIntervalSecs = getEnvInt("SWEEP_INTERVAL_SECONDS", cfg.SweepIntervalSecs)
	cfg.EnableMetrics = getEnvBool("ENABLE_METRICS", cfg.EnableMetrics)
	cfg.EnableCORS = getEnvBool("ENABLE_CORS", cfg.EnableCORS)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	switch c.CacheBackend {
	case CacheBackendMemory, CacheBackendRedis:
	default:
		return fmt.Errorf("unknown cache backend: %s", c.CacheBackend)
	}

	switch c.StoreBackend {
	case StoreBackendMemory, StoreBackendDynamoDB:
	default:
		return fmt.Errorf("unknown store backend: %s", c.StoreBackend)
	}

	if c.CacheBackend == CacheBackendRedis && c.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR is required for the redis cache backend")
	}
	if c.StoreBackend == StoreBackendDynamoDB && c.DynamoDBTable == "" {
		return fmt.Errorf("DYNAMODB_TABLE is required for the dynamodb store backend")
	}
	if c.CacheTTLSeconds <= 0 {
		return fmt.Errorf("cache TTL must be positive, got %d", c.CacheTTLSeconds)
	}
	if c.ViewCacheTTLSeconds <= 0 {
		return fmt.Errorf("view cache TTL must be positive, got %d", c.ViewCacheTTLSeconds)
	}
	return nil
}

// CacheTTL returns the collection snapshot TTL as a duration
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// ViewCacheTTL returns the response cache TTL as a duration
func (c *Config) ViewCacheTTL() time.Duration {
	return time.Duration(c.ViewCacheTTLSeconds) * time.Second
}

// SweepInterval returns the memory cache sweeper interval as a duration
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSecs) * time.Second
}

// IsProduction returns true in production environments
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Helper functions for environment variables

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
