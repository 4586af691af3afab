// Package config loads runtime configuration from an optional YAML file
// with environment-variable overrides.
package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the full runtime configuration. Defaults suit a single-user
// registry workstation.
type Config struct {
	// DBPath is the SQLite database file. ":memory:" is accepted for
	// throwaway sessions.
	DBPath string `yaml:"db_path" env:"DOCKET_DB" env-default:"docket.db"`

	// DefaultCourtCode and DefaultTypePrefix seed case numbering when the
	// caller does not specify them.
	DefaultCourtCode  string `yaml:"default_court_code" env:"DOCKET_COURT_CODE" env-default:"LUS"`
	DefaultTypePrefix string `yaml:"default_type_prefix" env:"DOCKET_TYPE_PREFIX" env-default:"HC-GEN"`

	// SequenceRetries bounds retry attempts on a contended counter.
	SequenceRetries int `yaml:"sequence_retries" env:"DOCKET_SEQ_RETRIES" env-default:"5"`
	// SequencePadWidth is the zero-pad width of the counter portion.
	SequencePadWidth int `yaml:"sequence_pad_width" env:"DOCKET_SEQ_PAD" env-default:"5"`

	// Notifications toggles best-effort notification emission.
	Notifications bool `yaml:"notifications" env:"DOCKET_NOTIFICATIONS" env-default:"true"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" env:"DOCKET_LOG_LEVEL" env-default:"info"`
}

// Load reads path (if non-empty) and applies environment overrides. An
// empty path loads from the environment alone.
func Load(path string) (Config, error) {
	var cfg Config
	if path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		return cfg, nil
	}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("read config from env: %w", err)
	}
	return cfg, nil
}

// SlogLevel maps LogLevel onto slog's levels. Unknown values fall back to
// info.
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds the process logger per the configuration.
func (c Config) NewLogger(verbose bool) *slog.Logger {
	level := c.SlogLevel()
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
