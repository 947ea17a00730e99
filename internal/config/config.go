package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the service
type Config struct {
	// HTTP server
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	// Storage
	StorageType string `env:"STORAGE_TYPE" envDefault:"sqlite"` // "sqlite" or "memory"
	DataDir     string `env:"DATA_DIR" envDefault:"./data"`

	// Settlement
	StartingBalance int64   `env:"STARTING_BALANCE" envDefault:"100"`
	RTPTolerance    float64 `env:"RTP_TOLERANCE" envDefault:"0.05"`

	// Audit / retention
	RetentionPeriod time.Duration `env:"RETENTION_PERIOD" envDefault:"720h"` // 30 days
	SweepSchedule   string        `env:"SWEEP_SCHEDULE" envDefault:"0 3 * * *"`

	// Elasticsearch archive mirror (optional)
	ESEnabled     bool   `env:"ES_ENABLED" envDefault:"false"`
	ESURL         string `env:"ES_URL" envDefault:"http://localhost:9200"`
	ESUsername    string `env:"ES_USERNAME"`
	ESPassword    string `env:"ES_PASSWORD"`
	ESIndexPrefix string `env:"ES_INDEX_PREFIX" envDefault:"eldorado"`

	// Environment
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
}

// Load reads the configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		// Only return error if file exists but couldn't be loaded
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("error parsing environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	// Create data directory if it doesn't exist
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, nil
}

// validate checks if all required configuration is present
func (c *Config) validate() error {
	if c.StorageType != "sqlite" && c.StorageType != "memory" {
		return fmt.Errorf("STORAGE_TYPE must be sqlite or memory, got %q", c.StorageType)
	}
	if c.RTPTolerance <= 0 || c.RTPTolerance >= 1 {
		return fmt.Errorf("RTP_TOLERANCE must be between 0 and 1, got %f", c.RTPTolerance)
	}
	if c.RetentionPeriod <= 0 {
		return fmt.Errorf("RETENTION_PERIOD must be positive, got %s", c.RetentionPeriod)
	}
	return nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
