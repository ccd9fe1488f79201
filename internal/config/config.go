package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables read by ApplyEnv.
const (
	EnvConfig   = "SELFASSESS_CONFIG"
	EnvDB       = "SELFASSESS_DB"
	EnvDBDriver = "SELFASSESS_DB_DRIVER"
	EnvLogLevel = "SELFASSESS_LOG_LEVEL"
	EnvHTTPAddr = "SELFASSESS_HTTP_ADDR"
)

// Config holds all runtime configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
	HTTP     HTTPConfig     `yaml:"http"`

	// Strings is an optional YAML string catalog layered over English.
	Strings string `yaml:"strings"`
}

// DatabaseConfig selects the storage backend.
type DatabaseConfig struct {
	// Driver is "sqlite" or "postgres". Default: "sqlite".
	Driver string `yaml:"driver"`

	// DSN is a file path for SQLite or a connection URL for Postgres.
	// Empty means the default SQLite path under the user's data directory.
	DSN string `yaml:"dsn"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level       string `yaml:"level"` // debug, info, warn, error
	Development bool   `yaml:"development"`
}

// HTTPConfig configures the serve command.
type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Database: DatabaseConfig{
			Driver: "sqlite",
		},
		Log: LogConfig{
			Level: "info",
		},
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
	}
}

// Load reads a YAML file over the defaults and then applies environment
// overrides. An empty path falls back to $SELFASSESS_CONFIG; when neither
// is set only defaults and environment are used.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from SELFASSESS_* environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvDB); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv(EnvDBDriver); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv(EnvHTTPAddr); v != "" {
		c.HTTP.Addr = v
	}
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	switch strings.ToLower(c.Database.Driver) {
	case "", "sqlite", "postgres", "pgx":
	default:
		return fmt.Errorf("config: unknown database driver %q", c.Database.Driver)
	}
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log level %q", c.Log.Level)
	}
	if strings.ToLower(c.Database.Driver) == "postgres" && c.Database.DSN == "" {
		return fmt.Errorf("config: postgres requires a dsn")
	}
	return nil
}
