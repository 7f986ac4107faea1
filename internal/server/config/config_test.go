package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "impo-server.db", cfg.DBPath)
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 30*24*time.Hour, cfg.RefreshTokenTTL)
	assert.Equal(t, time.Hour, cfg.CleanupInterval)
	assert.Equal(t, 20, cfg.RateLimit)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("IMPO_HTTP_ADDR", "127.0.0.1:9090")
	t.Setenv("IMPO_DB_PATH", "/tmp/impo.db")
	t.Setenv("IMPO_JWT_SECRET", "a-very-long-test-secret")
	t.Setenv("IMPO_ACCESS_TOKEN_TTL", "5m")
	t.Setenv("IMPO_REFRESH_TOKEN_TTL", "48h")
	t.Setenv("IMPO_RATE_LIMIT", "3")
	t.Setenv("IMPO_LOG_FORMAT", "json")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9090", cfg.HTTPAddr)
	assert.Equal(t, "/tmp/impo.db", cfg.DBPath)
	assert.Equal(t, "a-very-long-test-secret", cfg.JWTSecret)
	assert.Equal(t, 5*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 48*time.Hour, cfg.RefreshTokenTTL)
	assert.Equal(t, 3, cfg.RateLimit)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("IMPO_RATE_LIMIT", "many")
	t.Setenv("IMPO_ACCESS_TOKEN_TTL", "soon")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 20, cfg.RateLimit)
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			HTTPAddr:        ":8080",
			DBPath:          "impo.db",
			JWTSecret:       "0123456789abcdef",
			AccessTokenTTL:  time.Minute,
			RefreshTokenTTL: time.Hour,
			CleanupInterval: time.Hour,
			RateLimit:       10,
			RateLimitWindow: time.Minute,
		}
	}

	tests := []struct {
		mutate  func(c *Config)
		name    string
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "empty addr", mutate: func(c *Config) { c.HTTPAddr = "" }, wantErr: "http address"},
		{name: "empty db", mutate: func(c *Config) { c.DBPath = "" }, wantErr: "database path"},
		{name: "short secret", mutate: func(c *Config) { c.JWTSecret = "short" }, wantErr: "jwt secret"},
		{name: "refresh not longer", mutate: func(c *Config) { c.RefreshTokenTTL = time.Minute }, wantErr: "refresh token ttl"},
		{name: "zero rate", mutate: func(c *Config) { c.RateLimit = 0 }, wantErr: "rate limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
