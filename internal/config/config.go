// Package config resolves engine configuration.
//
// Precedence, lowest first: built-in defaults, an optional CUE file
// validated against the embedded schema, SHOPSTATE_* environment
// variables, then command-line flags (applied by the CLI).
package config

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/caarlos0/env/v11"
)

//go:embed schema.cue
var schemaCUE string

// Config holds engine settings.
type Config struct {
	Database       string        `env:"SHOPSTATE_DB"`
	Catalog        string        `env:"SHOPSTATE_CATALOG"`
	PersistSession bool          `env:"SHOPSTATE_PERSIST_SESSION"`
	RecentLimit    int           `env:"SHOPSTATE_RECENT_LIMIT"`
	FlushInterval  time.Duration `env:"SHOPSTATE_FLUSH_INTERVAL"`
	LogLevel       string        `env:"SHOPSTATE_LOG_LEVEL"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Database:      "shopstate.db",
		RecentLimit:   10,
		FlushInterval: 30 * time.Second,
		LogLevel:      "info",
	}
}

// Load resolves defaults, the CUE file at path (skipped when path is
// empty) and the environment, then validates the result.
func Load(path string) (Config, error) {
	return LoadFrom(Default(), path)
}

// LoadFrom is Load starting from base instead of Default.
func LoadFrom(base Config, path string) (Config, error) {
	cfg := base
	if path != "" {
		if err := cfg.ApplyFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// fileConfig mirrors #Config. Pointer fields distinguish absent from zero.
type fileConfig struct {
	Database       *string `json:"database"`
	Catalog        *string `json:"catalog"`
	PersistSession *bool   `json:"persist_session"`
	RecentLimit    *int    `json:"recent_limit"`
	FlushInterval  *string `json:"flush_interval"`
	LogLevel       *string `json:"log_level"`
}

// ApplyFile overlays the fields set in the CUE file at path.
func (c *Config) ApplyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	return c.applyCUE(data, path)
}

func (c *Config) applyCUE(data []byte, filename string) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return fmt.Errorf("parse config %s: %w", filename, err)
	}

	unified := def.Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid config %s: %w", filename, err)
	}

	var fc fileConfig
	if err := unified.Decode(&fc); err != nil {
		return fmt.Errorf("decode config %s: %w", filename, err)
	}

	if fc.Database != nil {
		c.Database = *fc.Database
	}
	if fc.Catalog != nil {
		c.Catalog = *fc.Catalog
	}
	if fc.PersistSession != nil {
		c.PersistSession = *fc.PersistSession
	}
	if fc.RecentLimit != nil {
		c.RecentLimit = *fc.RecentLimit
	}
	if fc.FlushInterval != nil {
		d, err := time.ParseDuration(*fc.FlushInterval)
		if err != nil {
			return fmt.Errorf("invalid config %s: flush_interval: %w", filename, err)
		}
		c.FlushInterval = d
	}
	if fc.LogLevel != nil {
		c.LogLevel = *fc.LogLevel
	}
	return nil
}

// ApplyEnv overlays SHOPSTATE_* environment variables. Unset variables
// keep the current value.
func (c *Config) ApplyEnv() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate checks field ranges.
func (c Config) Validate() error {
	if c.Database == "" {
		return fmt.Errorf("config: database must not be empty")
	}
	if c.RecentLimit < 1 || c.RecentLimit > 100 {
		return fmt.Errorf("config: recent_limit %d out of range 1..100", c.RecentLimit)
	}
	if c.FlushInterval < 0 {
		return fmt.Errorf("config: flush_interval %s must not be negative", c.FlushInterval)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// ParseLevel maps a log level name to a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", name)
}

// Level returns the configured slog level, defaulting to info.
func (c Config) Level() slog.Level {
	l, _ := ParseLevel(c.LogLevel)
	return l
}
