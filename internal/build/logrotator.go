package build

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jrick/logrotate/rotator"
)

const (
	// DefaultMaxLogFiles is the default number of rotated log files kept
	// on disk.
	DefaultMaxLogFiles = 10

	// DefaultMaxLogFileSize is the default size in MB a log file may
	// reach before rotation.
	DefaultMaxLogFileSize = 20

	// DefaultLogFilename is the log file name used when none is given.
	DefaultLogFilename = "prreview.log"
)

// LogRotatorConfig configures the rotating log file writer.
type LogRotatorConfig struct {
	// LogDir is the directory log files are written to.
	LogDir string

	// MaxLogFiles is the number of rotated files kept. Zero keeps a
	// single file that grows without bound.
	MaxLogFiles int

	// MaxLogFileSize is the rotation threshold in megabytes.
	MaxLogFileSize int

	// Filename overrides DefaultLogFilename when non-empty.
	Filename string
}

// DefaultLogRotatorConfig returns a LogRotatorConfig with sane defaults.
func DefaultLogRotatorConfig() *LogRotatorConfig {
	return &LogRotatorConfig{
		MaxLogFiles:    DefaultMaxLogFiles,
		MaxLogFileSize: DefaultMaxLogFileSize,
		Filename:       DefaultLogFilename,
	}
}

// RotatingLogWriter is an io.Writer that feeds a jrick/logrotate rotator
// through a pipe, gzip-compressing rotated files.
type RotatingLogWriter struct {
	pipe *io.PipeWriter

	rotator *rotator.Rotator
}

// NewRotatingLogWriter creates a rotating log writer. InitLogRotator must
// be called before the first Write.
func NewRotatingLogWriter() *RotatingLogWriter {
	return &RotatingLogWriter{}
}

// InitLogRotator creates the log directory if needed and starts the rotator
// goroutine.
func (r *RotatingLogWriter) InitLogRotator(cfg *LogRotatorConfig) error {
	filename := cfg.Filename
	if filename == "" {
		filename = DefaultLogFilename
	}

	logFile := filepath.Join(cfg.LogDir, filename)
	logDir := filepath.Dir(logFile)

	if err := os.MkdirAll(logDir, 0o700); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	// The rotator takes its threshold in KB; the config is in MB.
	var err error
	r.rotator, err = rotator.New(
		logFile,
		int64(cfg.MaxLogFileSize*1024),
		false,
		cfg.MaxLogFiles,
	)
	if err != nil {
		return fmt.Errorf("failed to create file rotator: %w", err)
	}

	r.rotator.SetCompressor(gzip.NewWriter(nil), ".gz")

	// The rotator is the log destination, so its own failures can only
	// go to stderr.
	pr, pw := io.Pipe()
	go func() {
		err := r.rotator.Run(pr)
		if err != nil {
			_, _ = fmt.Fprintf(
				os.Stderr,
				"failed to run file rotator: %v\n", err,
			)
		}
	}()

	r.pipe = pw

	return nil
}

// Write writes the byte slice to the rotator pipe. Writes before
// InitLogRotator are silently discarded.
func (r *RotatingLogWriter) Write(b []byte) (int, error) {
	if r.pipe != nil {
		return r.pipe.Write(b)
	}

	return len(b), nil
}

// Close closes the pipe writer, signaling the rotator goroutine to flush
// and exit.
func (r *RotatingLogWriter) Close() error {
	if r.pipe != nil {
		return r.pipe.Close()
	}

	return nil
}
