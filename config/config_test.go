package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/commission-engine/factory"
	"github.com/warp/commission-engine/rates"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, "commissions.db", cfg.DBPath)
	assert.Equal(t, 5*time.Minute, cfg.RateCacheTTL)
	assert.Empty(t, cfg.RedisAddr, "cache disabled by default")
	assert.Equal(t, factory.DatePolicyReject, cfg.DateFallback())
	assert.Equal(t, rates.PolicyZero, cfg.RateFallback())
	assert.Equal(t, 8, cfg.BatchWorkers)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("APP_ADDR", ":9090")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("RATE_CACHE_TTL", "30s")
	t.Setenv("DATE_POLICY", "today")
	t.Setenv("RATE_POLICY", "reject")
	t.Setenv("BATCH_WORKERS", "2")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, ":9090", cfg.AppAddr)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 30*time.Second, cfg.RateCacheTTL)
	assert.Equal(t, factory.DatePolicyToday, cfg.DateFallback())
	assert.Equal(t, rates.PolicyReject, cfg.RateFallback())
	assert.Equal(t, 2, cfg.BatchWorkers)
}

func TestLoad_RejectsBadPolicies(t *testing.T) {
	t.Setenv("DATE_POLICY", "tomorrow")
	_, err := Load()
	assert.ErrorContains(t, err, "DATE_POLICY")

	t.Setenv("DATE_POLICY", "reject")
	t.Setenv("RATE_POLICY", "guess")
	_, err = Load()
	assert.ErrorContains(t, err, "RATE_POLICY")
}

func TestLoad_RejectsZeroWorkers(t *testing.T) {
	t.Setenv("BATCH_WORKERS", "0")
	_, err := Load()
	assert.Error(t, err)
}
