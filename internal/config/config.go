// Package config loads reach settings from the environment and builds
// the process logger.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Config holds settings read from REACH_* environment variables. CLI flags
// override them.
type Config struct {
	LogLevel     slog.Level `env:"REACH_LOG_LEVEL" envDefault:"info"`
	LogFormat    string     `env:"REACH_LOG_FORMAT" envDefault:"text"`
	MaxPasses    int        `env:"REACH_MAX_PASSES" envDefault:"1000"`
	IndirectMode string     `env:"REACH_INDIRECT_MODE" envDefault:"strict"`
	HelperDir    string     `env:"REACH_HELPER_DIR"`
	Database     string     `env:"REACH_DB" envDefault:"reach.db"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate checks values the environment parser cannot.
func (c Config) Validate() error {
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("REACH_LOG_FORMAT: unknown format %q (want text or json)", c.LogFormat)
	}
	if c.MaxPasses <= 0 {
		return fmt.Errorf("REACH_MAX_PASSES: must be positive, got %d", c.MaxPasses)
	}
	return nil
}

// Logger builds a logger writing to w. verbose forces debug level.
func (c Config) Logger(w io.Writer, verbose bool) *slog.Logger {
	level := c.LogLevel
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.EqualFold(c.LogFormat, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}
