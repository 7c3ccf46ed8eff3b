// Package logging builds the process-wide structured logger for the ragcore
// binary and threads it through request and ingest contexts with
// [WithLogger] / [FromContext].
//
// Environment variables:
//
//	LOG_LEVEL  = debug | info | warn | error  (default: info)
//	LOG_FORMAT = json | text                  (default: json)
//
// JSON is the default so serve and ingest logs can be shipped to a collector
// as-is; text is for watching an ingest run from a terminal.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// serviceName tags every record so ragcore lines are filterable when several
// processes share one log stream.
const serviceName = "ragcore"

// loggerKey is an unexported type for context keys in this package.
type loggerKey struct{}

// New constructs the root [*slog.Logger] from environment variables,
// writing to stderr.
func New() *slog.Logger {
	return newLogger(os.Stderr)
}

// newLogger builds the root logger against an arbitrary writer so tests can
// capture output.
func newLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(os.Getenv("LOG_LEVEL"))}

	var handler slog.Handler
	if strings.EqualFold(os.Getenv("LOG_FORMAT"), "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return slog.New(handler).With(slog.String("service", serviceName))
}

// WithLogger returns a copy of ctx carrying logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the [*slog.Logger] stored in ctx.
// If no logger is present it returns [slog.Default] so callers never
// need to nil-check.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.Default()
}

// parseLevel converts a string to a [slog.Level], defaulting to Info.
func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
