package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, 50051, cfg.GRPCPort)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "mysql", cfg.DatabaseDriver)
	assert.Equal(t, "custom-buttons", cfg.ServiceName)
	assert.Equal(t, 30*time.Second, cfg.MetadataCacheTTL)
	assert.Equal(t, "SYSTEM/PROCESS", cfg.AutomateClassPath)
	assert.Empty(t, cfg.RedisAddr)
}

func TestLoadFromYAML(t *testing.T) {
	v := viper.New()
	v.SetConfigType("yaml")
	yaml := `
http_port: 9090
database_driver: sqlite
database_url: file:buttons.db
base_url: https://cfme.example.com/
redis_addr: localhost:6379
metadata_cache_ttl: 2m
`
	require.NoError(t, v.ReadConfig(strings.NewReader(yaml)))

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.Equal(t, "file:buttons.db", cfg.DatabaseURL)
	assert.Equal(t, "https://cfme.example.com", cfg.BaseURL)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 2*time.Minute, cfg.MetadataCacheTTL)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("CBAPI_LOG_LEVEL", "debug")

	v := viper.New()
	v.SetEnvPrefix("CBAPI")
	v.AutomaticEnv()

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	v := viper.New()
	v.Set("database_driver", "oracle")

	_, err := Load(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oracle")
}
