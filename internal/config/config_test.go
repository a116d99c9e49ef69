package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvRequiresDatabaseURLAndSecret(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/mapit?sslmode=disable")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("APP_ENV", "")
	t.Setenv("APP_PORT", "")
	t.Setenv("CORS_ORIGINS", "")
	t.Setenv("REQUEST_TIMEOUT", "")
	t.Setenv("BCRYPT_COST", "")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.False(t, cfg.IsProduction())
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://db/mapit?sslmode=require")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("APP_ENV", "production")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("REQUEST_TIMEOUT", "750ms")
	t.Setenv("BCRYPT_COST", "12")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, 750*time.Millisecond, cfg.RequestTimeout)
	assert.Equal(t, 12, cfg.BcryptCost)
}

func TestFromEnvRejectsBadBcryptCost(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://db/mapit")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("BCRYPT_COST", "2")

	_, err := FromEnv()
	require.Error(t, err)
}

func TestLoadRateLimitConfigClampsTTL(t *testing.T) {
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "10s")
	t.Setenv("RATE_LIMIT_TTL", "1s")
	t.Setenv("RATE_LIMIT_BURST", "3")

	cfg := LoadRateLimitConfig()
	assert.Equal(t, 3, cfg.Capacity)
	assert.Equal(t, 50*time.Second, cfg.TTL)
}

func TestParseMethods(t *testing.T) {
	m := parseMethods(" get, head ,,")
	assert.Equal(t, map[string]bool{"GET": true, "HEAD": true}, m)
}

func TestRedisOptions(t *testing.T) {
	t.Setenv("REDIS_DISABLED", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("REDIS_HOST", "cache.internal")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("REDIS_TLS", "on")

	opts, ok, err := RedisOptions()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "cache.internal:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.NotNil(t, opts.TLSConfig)

	t.Setenv("REDIS_URL", "redis://:pw@example.com:7000/3")
	opts, ok, err = RedisOptions()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "example.com:7000", opts.Addr)
	assert.Equal(t, "pw", opts.Password)
	assert.Equal(t, 3, opts.DB)

	t.Setenv("REDIS_URL", "http://nope")
	_, _, err = RedisOptions()
	assert.Error(t, err)

	t.Setenv("REDIS_DISABLED", "true")
	_, ok, err = RedisOptions()
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestLoadRateLimitConfigFallsBackToIPRoute(t *testing.T) {
	t.Setenv("RATE_LIMIT_KEY_STRATEGY", "user")
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	cfg := LoadRateLimitConfig()
	assert.Equal(t, KeyByIPRoute, cfg.KeyStrategy)
	assert.Equal(t, 1, cfg.Capacity)
}

func TestCacheable(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get")
	cfg := LoadCacheConfig()
	assert.True(t, cfg.Cacheable("GET"))
	assert.False(t, cfg.Cacheable("POST"))
}
