package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverMySQL, cfg.Store.Driver)
	assert.Equal(t, 7*24*time.Hour, cfg.CacheTTL)
	assert.Equal(t, 3*time.Second, cfg.Catalog.Timeout)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.False(t, cfg.SerializeUserWrites)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("CART_CACHE_TTL", "1h")
	t.Setenv("PRODUCT_TIMEOUT", "500ms")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("SERIALIZE_USER_WRITES", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverPostgres, cfg.Store.Driver)
	assert.Equal(t, time.Hour, cfg.CacheTTL)
	assert.Equal(t, 500*time.Millisecond, cfg.Catalog.Timeout)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.True(t, cfg.SerializeUserWrites)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("CART_CACHE_TTL", "0s")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown STORE_DRIVER "sqlite"`)
	assert.Contains(t, err.Error(), "CART_CACHE_TTL must be positive")
}
