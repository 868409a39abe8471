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
	// DefaultMaxLogFiles is the maximum number of rotated log files kept
	// on disk.
	DefaultMaxLogFiles = 10

	// DefaultMaxLogFileSize is the maximum log file size in MB before
	// rotation occurs.
	DefaultMaxLogFileSize = 20

	// DefaultLogFilename is the daemon's log file name.
	DefaultLogFilename = "hubsyncd.log"
)

// RotatingLogWriter is an io.Writer feeding a jrick/logrotate rotator
// through a pipe. Rotated files are gzip compressed.
type RotatingLogWriter struct {
	pipe    *io.PipeWriter
	rotator *rotator.Rotator
}

// NewRotatingLogWriter creates an uninitialized rotating log writer. Init
// must be called before writing.
func NewRotatingLogWriter() *RotatingLogWriter {
	return &RotatingLogWriter{}
}

// Init creates the log directory, configures rotation and starts the
// rotator goroutine.
func (r *RotatingLogWriter) Init(cfg LogConfig) error {
	filename := cfg.Filename
	if filename == "" {
		filename = DefaultLogFilename
	}
	maxFiles := cfg.MaxFiles
	if maxFiles <= 0 {
		maxFiles = DefaultMaxLogFiles
	}
	maxSize := cfg.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultMaxLogFileSize
	}

	logFile := filepath.Join(cfg.Dir, filename)
	if err := os.MkdirAll(filepath.Dir(logFile), 0o700); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	// The rotator takes its threshold in KB.
	var err error
	r.rotator, err = rotator.New(
		logFile, int64(maxSize*1024), false, maxFiles,
	)
	if err != nil {
		return fmt.Errorf("failed to create file rotator: %w", err)
	}

	r.rotator.SetCompressor(gzip.NewWriter(nil), ".gz")

	// The rotator is itself the log destination, so its own failures can
	// only go to stderr.
	pr, pw := io.Pipe()
	go func() {
		if err := r.rotator.Run(pr); err != nil {
			fmt.Fprintf(os.Stderr,
				"failed to run file rotator: %v\n", err)
		}
	}()

	r.pipe = pw

	return nil
}

// Write feeds the rotator pipe. Writes before Init are discarded.
func (r *RotatingLogWriter) Write(b []byte) (int, error) {
	if r.pipe != nil {
		return r.pipe.Write(b)
	}

	return len(b), nil
}

// Close flushes and stops the rotator goroutine.
func (r *RotatingLogWriter) Close() error {
	if r.pipe != nil {
		return r.pipe.Close()
	}

	return nil
}
