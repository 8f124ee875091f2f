package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ServerAddress)
	assert.Equal(t, CacheBackendMemory, cfg.CacheBackend)
	assert.Equal(t, StoreBackendMemory, cfg.StoreBackend)
	assert.Equal(t, time.Hour, cfg.CacheTTL())
	assert.Equal(t, 15*time.Minute, cfg.ViewCacheTTL())
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("CACHE_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", "redis.internal:6380")
	t.Setenv("CACHE_TTL_SECONDS", "120")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, CacheBackendRedis, cfg.CacheBackend)
	assert.Equal(t, "redis.internal:6380", cfg.RedisAddr)
	assert.Equal(t, 2*time.Minute, cfg.CacheTTL())
}

func TestLoadConfig_YAMLFileWithEnvPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"server_address: \":9090\"\ncache_ttl_seconds: 60\n",
	), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("CACHE_TTL_SECONDS", "90")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.ServerAddress)
	assert.Equal(t, 90, cfg.CacheTTLSeconds, "environment overrides the file")
}

func TestLoadConfig_RejectsUnknownBackends(t *testing.T) {
	t.Setenv("CACHE_BACKEND", "memcached")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestValidate_RejectsNonPositiveTTL(t *testing.T) {
	cfg := &Config{
		CacheBackend:        CacheBackendMemory,
		StoreBackend:        StoreBackendMemory,
		CacheTTLSeconds:     0,
		ViewCacheTTLSeconds: 900,
	}
	assert.Error(t, cfg.Validate())
}
