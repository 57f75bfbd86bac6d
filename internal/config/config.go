// Package config defines the scorecard engine configuration and its loader.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Load layers a YAML file and SCORECARD_ environment variables on top.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"context"
	"fmt"
	"runtime"
	"slices"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// MetricsAddr exposes Prometheus metrics when set, e.g. ":9090".
	MetricsAddr string `koanf:"metrics_addr"`

	// StoreDriver selects the persistence collaborator: memory or sqlite.
	StoreDriver string `koanf:"store_driver"`

	// SQLiteDSN is the database opened by the sqlite driver.
	SQLiteDSN string `koanf:"sqlite_dsn"`

	// DispatchWorkers sets the number of save dispatcher workers.
	DispatchWorkers int `koanf:"dispatch_workers"`

	// DispatchQueueSize bounds the pending save submissions.
	DispatchQueueSize int `koanf:"dispatch_queue_size"`

	// SaveTimeoutMS bounds one store call.
	SaveTimeoutMS int `koanf:"save_timeout_ms"`

	// CatalogFetchTimeoutMS bounds one subskill catalog request.
	CatalogFetchTimeoutMS int `koanf:"catalog_fetch_timeout_ms"`

	// RatingMin and RatingMax are the scale used when a subskill declares none.
	RatingMin int `koanf:"rating_min"`
	RatingMax int `koanf:"rating_max"`

	// UndoDepth caps the per-session undo history.
	UndoDepth int `koanf:"undo_depth"`
}

// New creates a Config with defaults. Context is accepted first to follow
// the project-wide convention and is currently unused.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:              "info",
		LogFormat:             "text",
		StoreDriver:           "memory",
		SQLiteDSN:             "file:scorecard.db",
		DispatchWorkers:       runtime.NumCPU(),
		DispatchQueueSize:     1024,
		SaveTimeoutMS:         10_000,
		CatalogFetchTimeoutMS: 10_000,
		RatingMin:             1,
		RatingMax:             5,
		UndoDepth:             100,
	}
}

// SaveTimeout returns SaveTimeoutMS as a duration.
func (c *Config) SaveTimeout() time.Duration {
	return time.Duration(c.SaveTimeoutMS) * time.Millisecond
}

// CatalogFetchTimeout returns CatalogFetchTimeoutMS as a duration.
func (c *Config) CatalogFetchTimeout() time.Duration {
	return time.Duration(c.CatalogFetchTimeoutMS) * time.Millisecond
}

// Validate checks the configuration for values the engine cannot run with.
func (c *Config) Validate() error {
	switch {
	case !slices.Contains([]string{"debug", "info", "warn", "error"}, c.LogLevel):
		return fmt.Errorf("%w: log_level %q", ErrInvalidConfig, c.LogLevel)
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("%w: log_format %q", ErrInvalidConfig, c.LogFormat)
	case c.StoreDriver != "memory" && c.StoreDriver != "sqlite":
		return fmt.Errorf("%w: store_driver %q", ErrInvalidConfig, c.StoreDriver)
	case c.StoreDriver == "sqlite" && c.SQLiteDSN == "":
		return fmt.Errorf("%w: sqlite_dsn must not be empty", ErrInvalidConfig)
	case c.DispatchWorkers < 1:
		return fmt.Errorf("%w: dispatch_workers must be positive", ErrInvalidConfig)
	case c.DispatchQueueSize < 1:
		return fmt.Errorf("%w: dispatch_queue_size must be positive", ErrInvalidConfig)
	case c.SaveTimeoutMS < 1 || c.CatalogFetchTimeoutMS < 1:
		return fmt.Errorf("%w: timeouts must be positive", ErrInvalidConfig)
	case c.RatingMin >= c.RatingMax:
		return fmt.Errorf("%w: rating_min %d must be below rating_max %d", ErrInvalidConfig, c.RatingMin, c.RatingMax)
	case c.UndoDepth < 0:
		return fmt.Errorf("%w: undo_depth must not be negative", ErrInvalidConfig)
	}
	return nil
}
