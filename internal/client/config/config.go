// Package config загружает настройки клиента.
// Приоритет (от низшего к высшему): значения по умолчанию, YAML файл,
// .env и переменные окружения IMPO_*, флаги командной строки.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config настройки клиента
type Config struct {
	ServerURL     string        `yaml:"server_url"`
	DBPath        string        `yaml:"db_path"`
	LogLevel      string        `yaml:"log_level"`
	LogFormat     string        `yaml:"log_format"`
	MetricsAddr   string        `yaml:"metrics_addr"`
	SyncInterval  time.Duration `yaml:"sync_interval"`
	ProbeInterval time.Duration `yaml:"probe_interval"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		ServerURL:     "http://localhost:8080",
		DBPath:        "impo-client.db",
		LogLevel:      "INFO",
		LogFormat:     "TEXT",
		SyncInterval:  15 * time.Second,
		ProbeInterval: 10 * time.Second,
	}
}

// Load builds the configuration from defaults, the optional YAML file at
// path and the environment. A missing file is an error only when path was
// given explicitly.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	// .env не обязателен
	_ = godotenv.Load()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return nil
}

func (c *Config) applyEnv() {
	c.ServerURL = getEnv("IMPO_SERVER_URL", c.ServerURL)
	c.DBPath = getEnv("IMPO_CLIENT_DB_PATH", c.DBPath)
	c.LogLevel = getEnv("IMPO_LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("IMPO_LOG_FORMAT", c.LogFormat)
	c.MetricsAddr = getEnv("IMPO_METRICS_ADDR", c.MetricsAddr)
	c.SyncInterval = getEnvDuration("IMPO_SYNC_INTERVAL", c.SyncInterval)
	c.ProbeInterval = getEnvDuration("IMPO_PROBE_INTERVAL", c.ProbeInterval)
}

// Validate checks the final configuration
func (c *Config) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid server url %q", c.ServerURL)
	}
	if c.DBPath == "" {
		return errors.New("db path must not be empty")
	}
	if c.SyncInterval < time.Second {
		return fmt.Errorf("sync interval %s is too short (min 1s)", c.SyncInterval)
	}
	if c.ProbeInterval < time.Second {
		return fmt.Errorf("probe interval %s is too short (min 1s)", c.ProbeInterval)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
