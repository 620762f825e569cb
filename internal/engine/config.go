package engine

import (
	"fmt"
	"log/slog"
)

const (
	// DefaultMaxIterations caps analysis rounds per run.
	DefaultMaxIterations = 3

	// DefaultFileWorkers is the number of files analyzed concurrently.
	// Parsing and judging are independent per file; result order is
	// irrelevant because the candidate store re-sorts on drain.
	DefaultFileWorkers = 4
)

// Config configures a Runner.
type Config struct {
	// MaxIterations caps analysis rounds. When a judge requests more
	// rounds than this, the run posts whatever candidates exist and
	// records iteration-cap-reached.
	MaxIterations int

	// FileWorkers bounds concurrent per-file analysis.
	FileWorkers int

	// DryRun skips posting; the run completes with the would-be
	// candidates in the report and nothing sent to the API.
	DryRun bool

	// Logger is the run logger. Nil falls back to slog.Default.
	Logger *slog.Logger
}

// DefaultConfig returns the Runner defaults.
func DefaultConfig() Config {
	return Config{
		MaxIterations: DefaultMaxIterations,
		FileWorkers:   DefaultFileWorkers,
	}
}

// validate normalizes and checks the configuration.
func (c *Config) validate() error {
	if c.MaxIterations <= 0 {
		c.MaxIterations = DefaultMaxIterations
	}
	if c.FileWorkers <= 0 {
		c.FileWorkers = DefaultFileWorkers
	}
	if c.MaxIterations > 100 {
		return fmt.Errorf("max iterations %d is unreasonably large",
			c.MaxIterations)
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return nil
}
