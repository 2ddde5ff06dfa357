package config

import (
	"testing"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigDefaults(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, env.Parse(cfg))

	assert.Equal(t, "5001", cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "sqlite", cfg.History.Backend)
	assert.Equal(t, 2*time.Second, cfg.History.Timeout)
	assert.True(t, cfg.History.DegradeOnUnavailable)
	assert.Equal(t, 100, cfg.BatchProcessing.MaxBatchSize)
	assert.NoError(t, cfg.Validate())
}

func TestConfigFromEnvironment(t *testing.T) {
	t.Setenv("HISTORY_BACKEND", "redis")
	t.Setenv("HISTORY_TIMEOUT", "500ms")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://www.onbid.co.kr,chrome-extension://abc")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "redis", cfg.History.Backend)
	assert.Equal(t, 500*time.Millisecond, cfg.History.Timeout)
	assert.Equal(t, []string{"https://www.onbid.co.kr", "chrome-extension://abc"}, cfg.Server.AllowedOrigins)
}

func TestConfigValidate(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, env.Parse(cfg))

	cfg.History.Backend = "snowflake"
	assert.Error(t, cfg.Validate())

	cfg.History.Backend = "sqlite"
	cfg.History.Timeout = 0
	assert.Error(t, cfg.Validate())
}

func TestTablePath(t *testing.T) {
	cfg := &Config{}
	cfg.Tables.Dir = "configs/tables"

	assert.Equal(t, "configs/tables/in_keywords.csv", cfg.TablePath("in_keywords.csv"))
	assert.Equal(t, "/etc/tables/x.csv", cfg.TablePath("/etc/tables/x.csv"))
}
