// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Static errors for configuration validation.
var (
	// ErrHeyGenAPIKeyRequired is returned when HEYGEN_API_KEY is not set.
	ErrHeyGenAPIKeyRequired = errors.New("config: HEYGEN_API_KEY is required")
	// ErrReplicateTokenRequired is returned when REPLICATE_API_TOKEN is not set.
	ErrReplicateTokenRequired = errors.New("config: REPLICATE_API_TOKEN is required")
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port int `env:"PORT, default=8080" json:"port"`

	// Orchestration settings
	MaxSubmitRetries  int           `env:"MAX_SUBMIT_RETRIES, default=2" json:"max_submit_retries"`
	SubmitBackoffBase time.Duration `env:"SUBMIT_BACKOFF_BASE, default=1s" json:"submit_backoff_base"`
	PollInterval      time.Duration `env:"POLL_INTERVAL, default=5s" json:"poll_interval"`
	ProviderTimeout   time.Duration `env:"PROVIDER_TIMEOUT, default=30s" json:"provider_timeout"`

	// HeyGen settings
	HeyGenAPIKey  string `env:"HEYGEN_API_KEY, required" json:"-"` // Masked in JSON
	HeyGenBaseURL string `env:"HEYGEN_BASE_URL" json:"heygen_base_url,omitempty"`

	// Replicate settings
	ReplicateAPIToken     string `env:"REPLICATE_API_TOKEN, required" json:"-"` // Masked in JSON
	ReplicateBaseURL      string `env:"REPLICATE_BASE_URL" json:"replicate_base_url,omitempty"`
	ReplicateImageVersion string `env:"REPLICATE_IMAGE_VERSION, default=black-forest-labs/flux-schnell" json:"replicate_image_version"`
	ReplicateVideoVersion string `env:"REPLICATE_VIDEO_VERSION, default=kwaivgi/kling-v1.6-standard" json:"replicate_video_version"`

	// OpenAI settings (synchronous idea generation)
	OpenAIAPIKey string `env:"OPENAI_API_KEY" json:"-"` // Masked in JSON
	OpenAIModel  string `env:"OPENAI_MODEL" json:"openai_model,omitempty"`

	// Persistence settings; empty DatabaseURL selects the in-memory store.
	DatabaseURL string `env:"DATABASE_URL" json:"-"` // Masked in JSON

	// Archiving settings
	ArchiveDir     string `env:"ARCHIVE_DIR" json:"archive_dir,omitempty"`
	ArchiveBaseURL string `env:"ARCHIVE_BASE_URL" json:"archive_base_url,omitempty"`

	// Optional S3 settings
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// PostgresEnabled returns true if a database URL is configured.
func (c *Config) PostgresEnabled() bool {
	return c.DatabaseURL != ""
}

// IdeaEnabled returns true if the synchronous idea kind can be served.
func (c *Config) IdeaEnabled() bool {
	return c.OpenAIAPIKey != ""
}

// Load reads configuration from environment variables using go-envconfig.
// It returns an error if required variables are not set.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := envconfig.Process(context.Background(), cfg); err != nil {
		// Map envconfig errors to our domain errors for required fields
		if strings.Contains(err.Error(), "HEYGEN_API_KEY") {
			return nil, ErrHeyGenAPIKeyRequired
		}
		if strings.Contains(err.Error(), "REPLICATE_API_TOKEN") {
			return nil, ErrReplicateTokenRequired
		}
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration is present.
func (c *Config) Validate() error {
	if c.HeyGenAPIKey == "" {
		return ErrHeyGenAPIKeyRequired
	}
	if c.ReplicateAPIToken == "" {
		return ErrReplicateTokenRequired
	}
	return nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, MaxSubmitRetries: %d, SubmitBackoffBase: %s, PollInterval: %s, ProviderTimeout: %s, Postgres: %t, S3Bucket: %s, ArchiveDir: %s, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.MaxSubmitRetries,
		c.SubmitBackoffBase,
		c.PollInterval,
		c.ProviderTimeout,
		c.PostgresEnabled(),
		c.S3Bucket,
		c.ArchiveDir,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
