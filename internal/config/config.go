// Package config provides configuration structures and loading for the fuel
// station sync service.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the sync service.
type Config struct {
	// PostgreSQL connection string
	PostgresDSN string
	// Base URL of the upstream fuel price API
	FeedBaseURL string
	// Log level (debug, info, warn, error)
	LogLevel string
	// Log format (json, console)
	LogFormat string
	// HTTP server address
	HTTPAddr string
	// Hour of day (0-23) to run the daily cycle
	RunHour int
	// Number of parallel record parse workers (0 = auto)
	ParseWorkers int
	// How long reference data stays cached across runs
	RefdataTTL time.Duration
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		PostgresDSN:  "",
		FeedBaseURL:  "",
		LogLevel:     "info",
		LogFormat:    "json",
		HTTPAddr:     ":8080",
		RunHour:      7,
		ParseWorkers: 0,
		RefdataTTL:   12 * time.Hour,
	}
}

// LoadFromEnv loads configuration from environment variables, optionally
// sourced from a .env file.
func (c *Config) LoadFromEnv() {
	_ = godotenv.Load(".env")

	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		c.PostgresDSN = v
	}
	if v := os.Getenv("FEED_BASE_URL"); v != "" {
		c.FeedBaseURL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.LogFormat = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		c.HTTPAddr = v
	}
	if v := os.Getenv("RUN_HOUR"); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i >= 0 && i <= 23 {
			c.RunHour = i
		}
	}
	if v := os.Getenv("PARSE_WORKERS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i >= 0 {
			c.ParseWorkers = i
		}
	}
	if v := os.Getenv("REFDATA_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.RefdataTTL = d
		}
	}
}
