package log

import (
	"context"
	"log/slog"
)

type contextKey struct{}

// IntoContext stores a logger in ctx.
func IntoContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, logger)
}

// FromContext extracts a logger from the context, falling back to the default one.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(contextKey{}).(*Logger); ok {
		return logger
	}
	return &Logger{
		Logger:    slog.Default(),
		component: "unknown",
	}
}

// ForUser returns a context whose logger carries the sender identity.
func ForUser(ctx context.Context, base *Logger, userID, chatID int64) context.Context {
	fields := NewFields().WithUser(userID, chatID)
	return IntoContext(ctx, base.With(fields.ToSlice()...))
}
