package logger

import (
	"context"
	"log/slog"
)

// contextKey is a private type for context keys defined in this package,
// preventing collisions with keys from other packages.
type contextKey int

const loggerKey contextKey = iota

// WithLogger returns a new context carrying the given logger. Middleware
// attaches a request-scoped logger (trace ID included) so lower layers log
// with the request's attributes without threading the logger explicitly.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the logger stored in the context, or the process
// default logger if none is set.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok && logger != nil {
		return logger
	}
	return slog.Default()
}

// FromContextOrDefault returns the logger stored in the context, or the
// provided fallback if none is set. Components use this so their
// component-scoped logger still applies outside of request handling.
func FromContextOrDefault(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok && logger != nil {
		return logger
	}
	if fallback != nil {
		return fallback
	}
	return slog.Default()
}
