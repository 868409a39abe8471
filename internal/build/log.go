// Package build holds process-level infrastructure shared by the hub
// binaries: dual-stream logging with file rotation.
package build

import (
	"context"
	"log/slog"
	"os"

	"github.com/btcsuite/btclog"
	btclogv2 "github.com/btcsuite/btclog/v2"
)

// LogConfig holds configuration for process logging.
type LogConfig struct {
	// Dir is the directory log files are written to. Empty disables file
	// logging, leaving console output only.
	Dir string

	// Filename overrides DefaultLogFilename when set.
	Filename string

	// MaxFiles is the number of rotated files kept. Zero uses
	// DefaultMaxLogFiles.
	MaxFiles int

	// MaxFileSize is the rotation threshold in megabytes. Zero uses
	// DefaultMaxLogFileSize.
	MaxFileSize int

	// Debug lowers the level to debug.
	Debug bool
}

// SetupLogging builds the process logger: console output, plus a rotating
// log file when a directory is configured. The returned closer flushes the
// file stream.
func SetupLogging(cfg LogConfig) (*slog.Logger, func() error, error) {
	level := btclog.LevelInfo
	if cfg.Debug {
		level = btclog.LevelDebug
	}

	console := btclogv2.NewDefaultHandler(os.Stdout)
	console.SetLevel(level)

	handlers := []slog.Handler{console}
	closer := func() error { return nil }

	if cfg.Dir != "" {
		writer := NewRotatingLogWriter()
		err := writer.Init(cfg)
		if err != nil {
			return nil, nil, err
		}

		file := btclogv2.NewDefaultHandler(
			writer, btclogv2.WithNoTimestamp(),
		)
		file.SetLevel(level)

		handlers = append(handlers, file)
		closer = writer.Close
	}

	return slog.New(&multiHandler{set: handlers}), closer, nil
}

// multiHandler fans one log record out to several slog handlers, so a
// record reaches both the console and the rotating file.
type multiHandler struct {
	set []slog.Handler
}

// Enabled reports whether any underlying handler accepts the level.
//
// NOTE: This is part of the slog.Handler interface.
func (m *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.set {
		if h.Enabled(ctx, level) {
			return true
		}
	}

	return false
}

// Handle dispatches the record to every underlying handler.
//
// NOTE: This is part of the slog.Handler interface.
func (m *multiHandler) Handle(ctx context.Context, record slog.Record) error {
	var firstErr error
	for _, h := range m.set {
		if !h.Enabled(ctx, record.Level) {
			continue
		}
		if err := h.Handle(ctx, record); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

// WithAttrs returns a handler set with the attributes applied to every
// member.
//
// NOTE: This is part of the slog.Handler interface.
func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := &multiHandler{set: make([]slog.Handler, len(m.set))}
	for i, h := range m.set {
		next.set[i] = h.WithAttrs(attrs)
	}

	return next
}

// WithGroup returns a handler set with the group applied to every member.
//
// NOTE: This is part of the slog.Handler interface.
func (m *multiHandler) WithGroup(name string) slog.Handler {
	next := &multiHandler{set: make([]slog.Handler, len(m.set))}
	for i, h := range m.set {
		next.set[i] = h.WithGroup(name)
	}

	return next
}

// Ensure multiHandler implements slog.Handler at compile time.
var _ slog.Handler = (*multiHandler)(nil)
