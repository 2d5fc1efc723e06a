// Package config loads runtime configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/warp/commission-engine/factory"
	"github.com/warp/commission-engine/rates"
)

// Config holds runtime configuration for the server.
type Config struct {
	AppEnv          string        `envconfig:"APP_ENV" default:"development"`
	AppAddr         string        `envconfig:"APP_ADDR" default:":8080"`
	ReadTimeout     time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	IdleTimeout     time.Duration `envconfig:"APP_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"APP_SHUTDOWN_TIMEOUT" default:"30s"`

	DBPath string `envconfig:"DB_PATH" default:"commissions.db"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"console"`

	// RedisAddr enables the rate cache when set.
	RedisAddr    string        `envconfig:"REDIS_ADDR"`
	RateCacheTTL time.Duration `envconfig:"RATE_CACHE_TTL" default:"5m"`
	RateSeedFile string        `envconfig:"RATE_SEED_FILE"`

	DatePolicy string `envconfig:"DATE_POLICY" default:"reject"`
	RatePolicy string `envconfig:"RATE_POLICY" default:"zero"`

	BatchWorkers int `envconfig:"BATCH_WORKERS" default:"8"`
	RateLimitRPM int `envconfig:"RATE_LIMIT_RPM" default:"600"`

	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"http://localhost:5173,http://localhost:8080"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values envconfig cannot express.
func (c *Config) Validate() error {
	if _, err := factory.ParseDatePolicy(c.DatePolicy); err != nil {
		return fmt.Errorf("DATE_POLICY: %w", err)
	}
	if _, err := rates.ParsePolicy(c.RatePolicy); err != nil {
		return fmt.Errorf("RATE_POLICY: %w", err)
	}
	if c.BatchWorkers < 1 {
		return fmt.Errorf("BATCH_WORKERS must be at least 1, got %d", c.BatchWorkers)
	}
	if c.RateLimitRPM < 0 {
		return fmt.Errorf("RATE_LIMIT_RPM must not be negative, got %d", c.RateLimitRPM)
	}
	return nil
}

// DateFallback returns the parsed DATE_POLICY.
func (c *Config) DateFallback() factory.DatePolicy {
	p, _ := factory.ParseDatePolicy(c.DatePolicy)
	return p
}

// RateFallback returns the parsed RATE_POLICY.
func (c *Config) RateFallback() rates.Policy {
	p, _ := rates.ParsePolicy(c.RatePolicy)
	return p
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
