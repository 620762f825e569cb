package build

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/btcsuite/btclog"
	btclogv2 "github.com/btcsuite/btclog/v2"
)

// LogConfig configures the process loggers.
type LogConfig struct {
	// Level is the log level name: trace, debug, info, warn, error, or
	// critical.
	Level string

	// LogDir enables file logging into the given directory when
	// non-empty.
	LogDir string

	// Rotator configures file rotation. Nil uses defaults.
	Rotator *LogRotatorConfig
}

// SetupLoggers builds the process logger: a console handler on stderr, plus
// a rotating file handler when a log directory is configured, fanned out
// through a single HandlerSet so one level governs both streams. The
// returned cleanup flushes and closes the file writer and is safe to call
// when no file logging was set up.
func SetupLoggers(cfg LogConfig) (*slog.Logger, func(), error) {
	level, ok := btclog.LevelFromString(cfg.Level)
	if !ok {
		return nil, nil, fmt.Errorf("unknown log level %q", cfg.Level)
	}

	handlers := []btclogv2.Handler{
		btclogv2.NewDefaultHandler(os.Stderr),
	}
	cleanup := func() {}

	if cfg.LogDir != "" {
		rotatorCfg := cfg.Rotator
		if rotatorCfg == nil {
			rotatorCfg = DefaultLogRotatorConfig()
		}
		rotatorCfg.LogDir = cfg.LogDir

		writer := NewRotatingLogWriter()
		if err := writer.InitLogRotator(rotatorCfg); err != nil {
			return nil, nil, err
		}

		handlers = append(
			handlers, btclogv2.NewDefaultHandler(writer),
		)
		cleanup = func() {
			_ = writer.Close()
		}
	}

	set := NewHandlerSet(level, handlers...)

	return slog.New(set), cleanup, nil
}
