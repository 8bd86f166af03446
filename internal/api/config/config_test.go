package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestViper(dir string) *viper.Viper {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	return v
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := load(newTestViper(t.TempDir()))
	require.NoError(t, err)

	assert.Equal(t, "918329446654", cfg.Business.Phone)
	assert.Equal(t, time.Second, cfg.Business.DeliveryDelay())
	assert.Equal(t, StoreDriverMongo, cfg.Store.Driver)
	assert.Equal(t, 6002, cfg.Server.Port)
	assert.False(t, cfg.Redis.Enabled())
	assert.Equal(t, 100, cfg.RateLimit.MaxRequests)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	content := []byte("business:\n  phone: \"111\"\nstore:\n  driver: mysql\nredis:\n  addr: \"localhost:6379\"\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), content, 0o644))

	t.Setenv("BUSINESS_PHONE", "222")

	cfg, err := load(newTestViper(dir))
	require.NoError(t, err)

	assert.Equal(t, "222", cfg.Business.Phone)
	assert.Equal(t, StoreDriverMySQL, cfg.Store.Driver)
	assert.True(t, cfg.Redis.Enabled())
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", "cassandra")

	_, err := load(newTestViper(t.TempDir()))
	assert.Error(t, err)
}
