// Package config handles loading, validation and defaulting of the metricsd
// daemon configuration from YAML files and environment variables.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/anstrom/metricsd/internal/errors"
	"github.com/anstrom/metricsd/internal/logging"
)

// Config represents the complete daemon configuration.
type Config struct {
	// Daemon configuration
	Daemon DaemonConfig `yaml:"daemon" json:"daemon"`

	// API server configuration
	API APIConfig `yaml:"api" json:"api"`

	// Metrics manager configuration
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`

	// Logging configuration
	Logging logging.Config `yaml:"logging" json:"logging"`
}

// DaemonConfig holds daemon-specific settings.
type DaemonConfig struct {
	// PID file location, empty disables PID file handling
	PIDFile string `yaml:"pid_file" json:"pid_file"`

	// Graceful shutdown timeout
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout" validate:"min=0"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	// Listen address
	Host string `yaml:"host" json:"host" validate:"required"`

	// Listen port
	Port int `yaml:"port" json:"port" validate:"min=1,max=65535"`

	// HTTP timeouts
	ReadTimeout  time.Duration `yaml:"read_timeout" json:"read_timeout" validate:"min=0"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout" validate:"min=0"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" json:"idle_timeout" validate:"min=0"`

	// Maximum request header size in bytes
	MaxHeaderBytes int `yaml:"max_header_bytes" json:"max_header_bytes" validate:"min=0"`

	// CORS settings
	EnableCORS  bool     `yaml:"enable_cors" json:"enable_cors"`
	CORSOrigins []string `yaml:"cors_origins" json:"cors_origins"`

	// Rate limiting
	RateLimitEnabled  bool          `yaml:"rate_limit_enabled" json:"rate_limit_enabled"`
	RateLimitRequests int           `yaml:"rate_limit_requests" json:"rate_limit_requests" validate:"min=0"`
	RateLimitWindow   time.Duration `yaml:"rate_limit_window" json:"rate_limit_window" validate:"min=0"`

	// API key authentication. Keys are stored as bcrypt hashes; clients
	// present the plaintext key in the X-API-Key header.
	AuthEnabled  bool     `yaml:"auth_enabled" json:"auth_enabled"`
	APIKeyHashes []string `yaml:"api_key_hashes" json:"api_key_hashes"`
}

// MetricsConfig holds metrics manager settings.
type MetricsConfig struct {
	// Enable the periodic runtime sampler
	RuntimeSampling bool `yaml:"runtime_sampling" json:"runtime_sampling"`

	// Runtime sampler interval
	SampleInterval time.Duration `yaml:"sample_interval" json:"sample_interval" validate:"min=0"`

	// Interval between snapshots pushed to websocket watchers. Feeds a
	// ticker, so it must be strictly positive.
	WatchInterval time.Duration `yaml:"watch_interval" json:"watch_interval" validate:"gt=0"`
}

// Default returns the default daemon configuration.
func Default() *Config {
	return &Config{
		Daemon: DaemonConfig{
			ShutdownTimeout: 30 * time.Second,
		},
		API: APIConfig{
			Host:              "127.0.0.1",
			Port:              8085,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       60 * time.Second,
			MaxHeaderBytes:    1 << 20, // 1 MB
			EnableCORS:        true,
			CORSOrigins:       []string{"*"},
			RateLimitEnabled:  true,
			RateLimitRequests: 100,
			RateLimitWindow:   time.Minute,
			AuthEnabled:       false,
			APIKeyHashes:      []string{},
		},
		Metrics: MetricsConfig{
			RuntimeSampling: true,
			SampleInterval:  15 * time.Second,
			WatchInterval:   5 * time.Second,
		},
		Logging: logging.DefaultConfig(),
	}
}

// Load reads configuration from the given YAML file, layered over defaults
// and then over environment variables. An empty path loads defaults and
// environment only.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path) // #nosec G304 -- path comes from the operator
		if err != nil {
			return nil, errors.WrapConfigError(errors.CodeConfiguration,
				"failed to read config file", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.WrapConfigError(errors.CodeConfiguration,
				"failed to parse config file", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides overlays METRICSD_* environment variables onto the
// configuration.
func (c *Config) applyEnvOverrides() {
	if host := os.Getenv("METRICSD_API_HOST"); host != "" {
		c.API.Host = host
	}
	if port := os.Getenv("METRICSD_API_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.API.Port = p
		}
	}
	if level := os.Getenv("METRICSD_LOG_LEVEL"); level != "" {
		c.Logging.Level = logging.LogLevel(level)
	}
	if format := os.Getenv("METRICSD_LOG_FORMAT"); format != "" {
		c.Logging.Format = logging.LogFormat(format)
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok && len(fieldErrs) > 0 {
			first := fieldErrs[0]
			return errors.NewConfigFieldError(errors.CodeConfiguration,
				"invalid configuration value", first.Namespace(), first.Value())
		}
		return errors.WrapConfigError(errors.CodeConfiguration,
			"configuration validation failed", err)
	}

	if c.API.AuthEnabled && len(c.API.APIKeyHashes) == 0 {
		return errors.NewConfigFieldError(errors.CodeConfiguration,
			"auth enabled but no API key hashes configured", "api.api_key_hashes", nil)
	}

	// The sampler feeds the interval straight into a ticker; a zero interval
	// would panic the sampler goroutine at startup.
	if c.Metrics.RuntimeSampling && c.Metrics.SampleInterval <= 0 {
		return errors.NewConfigFieldError(errors.CodeConfiguration,
			"runtime sampling enabled but sample interval is not positive",
			"metrics.sample_interval", c.Metrics.SampleInterval)
	}
	return nil
}
