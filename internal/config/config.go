// Package config loads and validates all runtime configuration for the
// gateway.
//
// Configuration is read from environment variables (preferred for
// containers) or from a config.yaml file in the working directory.
// Environment variables take precedence over the YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Config is the top-level configuration container.
type Config struct {
	// ListenAddr is the address the HTTP server binds to, e.g. ":8080".
	ListenAddr string

	// LogLevel controls the minimum log level. One of: debug, info,
	// warn, error. Default: info.
	LogLevel string

	// UpstreamBaseURL is the upstream provider's base URL, e.g.
	// "https://generativelanguage.googleapis.com/v1beta".
	UpstreamBaseURL string

	// StoreDriver selects the persistence backend: "postgres" or
	// "memory". Default: postgres.
	StoreDriver string
	// DatabaseDSN is the Postgres connection string. Required when
	// StoreDriver is "postgres".
	DatabaseDSN string

	// ClickHouseDSN, when non-empty, sinks completed-request logs to
	// ClickHouse in addition to the structured-log mirror.
	ClickHouseDSN string

	// MaxAttempts caps the per-request credential attempt budget before
	// min(MaxAttempts, enabled credentials) is applied. Default: 3.
	MaxAttempts int
	// AttemptTimeout bounds a single upstream call. Default: 120s.
	AttemptTimeout time.Duration
	// RequestTimeout bounds a request across every attempt. Default: 10m.
	RequestTimeout time.Duration
	// LeaseWaitTimeout bounds how long the credential pool blocks when
	// every credential is under cooldown. Default: 2s.
	LeaseWaitTimeout time.Duration

	// VarEngineSeed overrides the per-request PRNG seed. Zero means
	// "derive from a hash of the request id"; set only in tests for
	// determinism.
	VarEngineSeed int64

	// Models is the static model identifier list served by GET
	// /v1/models.
	Models []string

	// MetricsEnabled toggles the Prometheus /metrics endpoint.
	MetricsEnabled bool

	// CORSOrigins is the list of allowed CORS origins. ["*"] allows any
	// origin (default).
	CORSOrigins []string
}

// Load reads configuration from environment variables and (optionally)
// from config.yaml in the current working directory.
func Load() (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	_ = v.ReadInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("LISTEN_ADDR", ":8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STORE_DRIVER", "postgres")
	v.SetDefault("MAX_ATTEMPTS", 3)
	v.SetDefault("ATTEMPT_TIMEOUT", "120s")
	v.SetDefault("REQUEST_TIMEOUT", "10m")
	v.SetDefault("LEASE_WAIT_TIMEOUT", "2s")
	v.SetDefault("VARENGINE_SEED", 0)
	v.SetDefault("METRICS_ENABLED", true)
	v.SetDefault("CORS_ORIGINS", []string{"*"})
	v.SetDefault("MODEL_IDS", []string{"gemini-1.5-pro", "gemini-1.5-flash"})

	cfg := &Config{
		ListenAddr:      v.GetString("LISTEN_ADDR"),
		LogLevel:        strings.ToLower(v.GetString("LOG_LEVEL")),
		UpstreamBaseURL: v.GetString("UPSTREAM_BASE_URL"),
		StoreDriver:     strings.ToLower(v.GetString("STORE_DRIVER")),
		DatabaseDSN:     v.GetString("DATABASE_DSN"),
		ClickHouseDSN:   v.GetString("CLICKHOUSE_DSN"),

		MaxAttempts:      v.GetInt("MAX_ATTEMPTS"),
		AttemptTimeout:   v.GetDuration("ATTEMPT_TIMEOUT"),
		RequestTimeout:   v.GetDuration("REQUEST_TIMEOUT"),
		LeaseWaitTimeout: v.GetDuration("LEASE_WAIT_TIMEOUT"),
		VarEngineSeed:    v.GetInt64("VARENGINE_SEED"),

		Models:         v.GetStringSlice("MODEL_IDS"),
		MetricsEnabled: v.GetBool("METRICS_ENABLED"),
		CORSOrigins:    v.GetStringSlice("CORS_ORIGINS"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.UpstreamBaseURL == "" {
		return fmt.Errorf("config: UPSTREAM_BASE_URL is required")
	}

	switch c.StoreDriver {
	case "postgres":
		if c.DatabaseDSN == "" {
			return fmt.Errorf("config: DATABASE_DSN is required when STORE_DRIVER=postgres")
		}
	case "memory":
	default:
		return fmt.Errorf("config: invalid STORE_DRIVER %q; must be one of: postgres, memory", c.StoreDriver)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: invalid LOG_LEVEL %q; must be one of: debug, info, warn, error", c.LogLevel)
	}

	if c.MaxAttempts < 1 {
		return fmt.Errorf("config: MAX_ATTEMPTS must be ≥ 1, got %d", c.MaxAttempts)
	}
	if c.AttemptTimeout <= 0 {
		return fmt.Errorf("config: ATTEMPT_TIMEOUT must be a positive duration")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("config: REQUEST_TIMEOUT must be a positive duration")
	}
	if c.LeaseWaitTimeout <= 0 {
		return fmt.Errorf("config: LEASE_WAIT_TIMEOUT must be a positive duration")
	}

	return nil
}

// loadDotEnv populates process env vars from a .env file when present.
func loadDotEnv(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("config: %s is a directory, expected a file", path)
	}
	if err := gotenv.Load(path); err != nil {
		return fmt.Errorf("config: failed to load %s: %w", path, err)
	}
	return nil
}
