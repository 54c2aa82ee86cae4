package logger

import (
	"context"
	"log/slog"
)

type contextKey string

const (
	loggerKey    contextKey = "meshp2p.logger"
	messageIDKey contextKey = "meshp2p.message_id"
	serviceKey   contextKey = "meshp2p.service"
)

// WithLogger adds a logger to the context.
func WithLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext extracts the logger from context, or slog.Default().
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

// WithMessageID tags the context with a routed message id.
func WithMessageID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, messageIDKey, id)
}

// MessageIDFromContext extracts the message id from context.
func MessageIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(messageIDKey).(string); ok {
		return id
	}
	return ""
}

// WithService tags the context with a service id.
func WithService(ctx context.Context, id uint32) context.Context {
	return context.WithValue(ctx, serviceKey, id)
}

// ServiceFromContext extracts the service id from context.
func ServiceFromContext(ctx context.Context) (uint32, bool) {
	id, ok := ctx.Value(serviceKey).(uint32)
	return id, ok
}

// L returns the context logger enriched with the message and service ids
// found in ctx.
func L(ctx context.Context) *slog.Logger {
	l := FromContext(ctx)

	if id := MessageIDFromContext(ctx); id != "" {
		l = l.With("message_id", id)
	}
	if svc, ok := ServiceFromContext(ctx); ok {
		l = l.With("service", svc)
	}

	return l
}
