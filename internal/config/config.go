// Package config holds process-level configuration for the termlens CLI.
//
// Environment variables:
//   - SETTINGS_FILE: path of the JSON settings document (default: termlens.settings.json)
//   - PACKAGE_FILE:  default game package path (optional)
//   - TARGET_LANG:   default target language (default: en)
//   - RESCAN_CRON:   optional cron expression for periodic catch-up rescans
//   - LOG_LEVEL:     debug|info|warn|error (default: info)
//   - APPLY_CONCURRENCY: parallel workers when applying to many files (default: 4)
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/robfig/cron/v3"
	"golang.org/x/text/language"

	"github.com/termlens/termlens/pkg/log"
)

type Config struct {
	SettingsFile     string
	PackageFile      string
	TargetLang       string
	RescanCron       string
	LogLevel         string
	ApplyConcurrency int
}

// Option is a function type for configuring Config
type Option func(*Config)

func WithTargetLang(lang string) Option {
	return func(c *Config) {
		if lang != "" {
			c.TargetLang = lang
		}
	}
}

func WithPackageFile(path string) Option {
	return func(c *Config) {
		if path != "" {
			c.PackageFile = path
		}
	}
}

// NewFromEnv creates a new Config instance with values from environment
// variables and options.
func NewFromEnv(opts ...Option) (*Config, error) {
	config := &Config{
		SettingsFile:     getEnvString("SETTINGS_FILE", "termlens.settings.json"),
		PackageFile:      getEnvString("PACKAGE_FILE", ""),
		TargetLang:       getEnvString("TARGET_LANG", "en"),
		RescanCron:       getEnvString("RESCAN_CRON", ""),
		LogLevel:         getEnvString("LOG_LEVEL", "info"),
		ApplyConcurrency: getEnvInt("APPLY_CONCURRENCY", 4),
	}

	for _, opt := range opts {
		opt(config)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	log.InitLogger(log.ParseLevel(config.LogLevel))
	return config, nil
}

func (c *Config) validate() error {
	if _, err := language.Parse(c.TargetLang); err != nil {
		return fmt.Errorf("invalid TARGET_LANG %q: %w", c.TargetLang, err)
	}
	if c.RescanCron != "" {
		if _, err := cron.ParseStandard(c.RescanCron); err != nil {
			return fmt.Errorf("invalid RESCAN_CRON: %w", err)
		}
	}
	if c.ApplyConcurrency < 1 {
		return fmt.Errorf("APPLY_CONCURRENCY must be at least 1")
	}
	return nil
}

// getEnvString gets a string value from environment variables with default
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer value from environment variables with default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
