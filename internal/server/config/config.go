// Package config загружает настройки сервера из окружения и .env
package config

import (
	"errors"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	minSecretLength = 16
	defaultSecret   = "change-me-in-production-please"
)

// Config настройки сервера
type Config struct {
	HTTPAddr        string
	DBPath          string
	JWTSecret       string
	LogLevel        string
	LogFormat       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	CleanupInterval time.Duration
	ShutdownTimeout time.Duration
	RateLimitWindow time.Duration
	RateLimit       int
}

// Load читает .env (если есть) и переменные окружения IMPO_*
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		HTTPAddr:        getEnv("IMPO_HTTP_ADDR", ":8080"),
		DBPath:          getEnv("IMPO_DB_PATH", "impo-server.db"),
		JWTSecret:       getEnv("IMPO_JWT_SECRET", defaultSecret),
		LogLevel:        getEnv("IMPO_LOG_LEVEL", "INFO"),
		LogFormat:       getEnv("IMPO_LOG_FORMAT", "TEXT"),
		AccessTokenTTL:  getEnvDuration("IMPO_ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL: getEnvDuration("IMPO_REFRESH_TOKEN_TTL", 30*24*time.Hour),
		CleanupInterval: getEnvDuration("IMPO_TOKEN_CLEANUP_INTERVAL", time.Hour),
		ShutdownTimeout: getEnvDuration("IMPO_SHUTDOWN_TIMEOUT", 10*time.Second),
		RateLimitWindow: getEnvDuration("IMPO_RATE_LIMIT_WINDOW", time.Minute),
		RateLimit:       getEnvInt("IMPO_RATE_LIMIT", 20),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.JWTSecret == defaultSecret {
		slog.Warn("IMPO_JWT_SECRET is not set, using the built-in development secret")
	}

	return cfg, nil
}

// Validate проверяет обязательные значения
func (c *Config) Validate() error {
	var errs []error

	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("http address is required"))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("database path is required"))
	}
	if len(c.JWTSecret) < minSecretLength {
		errs = append(errs, errors.New("jwt secret must be at least 16 characters"))
	}
	if c.AccessTokenTTL <= 0 {
		errs = append(errs, errors.New("access token ttl must be positive"))
	}
	if c.RefreshTokenTTL <= c.AccessTokenTTL {
		errs = append(errs, errors.New("refresh token ttl must exceed access token ttl"))
	}
	if c.CleanupInterval <= 0 {
		errs = append(errs, errors.New("token cleanup interval must be positive"))
	}
	if c.RateLimit < 1 || c.RateLimitWindow <= 0 {
		errs = append(errs, errors.New("rate limit and window must be positive"))
	}

	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
		slog.Warn("ignoring invalid integer in environment", "key", key, "value", value)
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		slog.Warn("ignoring invalid duration in environment", "key", key, "value", value)
	}
	return fallback
}
