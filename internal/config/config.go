// Package config loads tracecap's environment-driven settings. The
// writer has a deliberately small configuration surface: one output
// path override plus diagnostics and compression tuning.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v8"
)

// Config holds the environment-driven settings of the trace writer.
type Config struct {
	// File overrides the derived output path for auto-opened sessions.
	File string `env:"TRACECAP_FILE"`

	// LogLevel sets the diagnostic verbosity (debug, info, warn, error).
	LogLevel string `env:"TRACECAP_LOG_LEVEL" envDefault:"info"`

	// Compression sets the gzip level, 1 (fastest) to 9 (best); -1
	// selects the library default.
	Compression int `env:"TRACECAP_COMPRESSION" envDefault:"-1"`
}

// Load reads the configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}
