// Package logging wraps slog with the field names used across sigscan.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Logger wraps slog.Logger with scan-specific helpers.
type Logger struct {
	*slog.Logger
}

// New creates a Logger with the given handler.
// If handler is nil, uses a text handler to stderr at info level.
func New(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSON creates a Logger writing JSON records to w.
func NewJSON(w io.Writer, level slog.Level) *Logger {
	return New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// NewText creates a Logger writing human-readable records to w.
func NewText(w io.Writer, level slog.Level) *Logger {
	return New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Noop creates a Logger that discards all output.
func Noop() *Logger {
	return New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.Level(1000), // unreachable
	}))
}

// ParseLevel parses "debug", "info", "warn" or "error".
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	err := l.UnmarshalText([]byte(strings.TrimSpace(s)))
	return l, err
}

// WithScanner tags records with the scanner name.
func (l *Logger) WithScanner(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("scanner", name),
	}
}

// WithSignature tags records with a signature string.
func (l *Logger) WithSignature(sig string) *Logger {
	return &Logger{
		Logger: l.Logger.With("sig", sig),
	}
}

// WithSource tags records with the haystack source.
func (l *Logger) WithSource(src string) *Logger {
	return &Logger{
		Logger: l.Logger.With("source", src),
	}
}

// LogLoad logs a haystack acquisition. Tag the logger WithSource first.
func (l *Logger) LogLoad(ctx context.Context, kind string, size int, took time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "load failed", "error", err)
		return
	}
	l.InfoContext(ctx, "haystack loaded",
		"kind", kind,
		"bytes", size,
		"duration", took,
	)
}

// LogRun logs the averaged timing of one scanner over a haystack.
func (l *Logger) LogRun(ctx context.Context, offset int, avg time.Duration, size int) {
	var throughput float64
	if avg > 0 {
		throughput = float64(size) / float64(avg.Nanoseconds())
	}
	l.InfoContext(ctx, "scan completed",
		"offset", offset,
		"avg", avg,
		"bytes_per_ns", throughput,
	)
}

// LogMismatch logs two scanners disagreeing on a result.
func (l *Logger) LogMismatch(ctx context.Context, reference, scanner string, want, got int) {
	l.ErrorContext(ctx, "scanner results differ",
		"reference", reference,
		"reference_offset", want,
		"scanner", scanner,
		"offset", got,
	)
}
