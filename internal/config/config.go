// Package config loads server settings from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds every server setting. Field tags name the environment
// variables.
type Config struct {
	Port       int    `envconfig:"PORT" default:"8080"`
	DBPath     string `envconfig:"DB_PATH" default:"./data/travelbuddy.db"`
	StaticPath string `envconfig:"STATIC_PATH" default:"../frontend/static"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`

	JWTSecret string        `envconfig:"JWT_SECRET" required:"true"`
	JWTExpiry time.Duration `envconfig:"JWT_EXPIRY" default:"24h"`

	FX FXConfig `envconfig:"FX"`

	// RedisURL selects the Redis FX cache. Empty means in-process.
	RedisURL string `envconfig:"REDIS_URL"`
}

// FXConfig configures the rate provider and its caching.
type FXConfig struct {
	// ProviderURL disables background refresh when empty.
	ProviderURL     string        `envconfig:"PROVIDER_URL"`
	APIKey          string        `envconfig:"API_KEY"`
	Bases           []string      `envconfig:"BASES" default:"INR,USD,EUR"`
	RefreshInterval time.Duration `envconfig:"REFRESH_INTERVAL" default:"1h"`
	CacheTTL        time.Duration `envconfig:"CACHE_TTL" default:"15m"`
	HTTPTimeout     time.Duration `envconfig:"HTTP_TIMEOUT" default:"10s"`
}

// Load reads the first env file that exists, falling back to ./.env, and
// then processes the environment. Missing files are not an error.
func Load(envFiles ...string) (*Config, error) {
	loaded := false
	for _, path := range envFiles {
		if err := godotenv.Load(path); err != nil {
			slog.Debug("Environment file not loaded", "path", path, "error", err)
			continue
		}
		slog.Info("Loaded environment file", "path", path)
		loaded = true
		break
	}
	if !loaded {
		if err := godotenv.Load(); err != nil {
			slog.Debug("No .env file found, using process environment")
		}
	}

	return FromEnv()
}

// FromEnv processes the current environment without touching env files.
func FromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	if c.JWTExpiry <= 0 {
		return fmt.Errorf("JWT_EXPIRY must be positive, got %s", c.JWTExpiry)
	}
	if c.FX.RefreshInterval <= 0 {
		return fmt.Errorf("FX_REFRESH_INTERVAL must be positive, got %s", c.FX.RefreshInterval)
	}

	bases := make([]string, 0, len(c.FX.Bases))
	for _, b := range c.FX.Bases {
		b = strings.ToUpper(strings.TrimSpace(b))
		if b != "" {
			bases = append(bases, b)
		}
	}
	c.FX.Bases = bases

	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	return nil
}

// LogValue hides secrets when the config is logged.
func (c *Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("port", c.Port),
		slog.String("db_path", c.DBPath),
		slog.String("log_level", c.LogLevel),
		slog.String("log_format", c.LogFormat),
		slog.Duration("jwt_expiry", c.JWTExpiry),
		slog.String("fx_provider_url", c.FX.ProviderURL),
		slog.String("fx_api_key", mask(c.FX.APIKey)),
		slog.Any("fx_bases", c.FX.Bases),
		slog.Duration("fx_refresh_interval", c.FX.RefreshInterval),
		slog.Duration("fx_cache_ttl", c.FX.CacheTTL),
		slog.String("redis_url", mask(c.RedisURL)),
	)
}

func mask(v string) string {
	if v == "" {
		return ""
	}
	if len(v) <= 6 {
		return "****"
	}
	return v[:2] + "****" + v[len(v)-2:]
}
