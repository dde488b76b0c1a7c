// Package config loads the provider's runtime settings from the environment.
package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Prefix namespaces every environment variable, e.g. CLOUD9SSM_LOG_LEVEL.
const Prefix = "CLOUD9SSM"

// Log output formats.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// Config configures the provider process.
type Config struct {
	// Logging
	LogLevel  string `envconfig:"LOG_LEVEL"`  // default: info
	LogFormat string `envconfig:"LOG_FORMAT"` // default: json

	// Region is used when a request does not name one.
	Region string `envconfig:"REGION"`

	// Bounds for the IAM eventual consistency waits.
	IAMWaitAttempts int           `envconfig:"IAM_WAIT_ATTEMPTS"` // default: 60
	IAMWaitInterval time.Duration `envconfig:"IAM_WAIT_INTERVAL"` // default: 1s

	// Directory for per-resource log files; empty disables them.
	LogDirectory string `envconfig:"LOG_DIRECTORY"`
}

// Load reads the configuration from the environment and applies defaults.
func Load() (*Config, error) {
	var c Config
	if err := envconfig.Process(Prefix, &c); err != nil {
		return nil, fmt.Errorf("failed to read configuration: %w", err)
	}
	c.applyDefaults()
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = FormatJSON
	}
	if c.IAMWaitAttempts == 0 {
		c.IAMWaitAttempts = 60
	}
	if c.IAMWaitInterval == 0 {
		c.IAMWaitInterval = time.Second
	}
}

func (c *Config) validate() error {
	if _, err := c.Level(); err != nil {
		return err
	}
	switch c.LogFormat {
	case FormatJSON, FormatText:
	default:
		return fmt.Errorf("log_format must be %q or %q, got %q", FormatJSON, FormatText, c.LogFormat)
	}
	if c.IAMWaitAttempts < 0 {
		return fmt.Errorf("iam_wait_attempts must be positive")
	}
	if c.IAMWaitInterval < 0 {
		return fmt.Errorf("iam_wait_interval must be positive")
	}
	return nil
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return level, nil
}
