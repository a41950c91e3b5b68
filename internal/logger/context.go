package logger

import (
	"context"
	"log/slog"
)

type contextKey int

const (
	requestIDKey contextKey = iota
	turnIDKey
)

// WithRequestID returns a new context with the given request ID stored.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID extracts the request ID from the context.
// Returns an empty string if no request ID is set.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithTurnID tags the context with the conversation turn being orchestrated.
func WithTurnID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, turnIDKey, id)
}

// TurnID extracts the turn ID from the context, or "".
func TurnID(ctx context.Context) string {
	id, _ := ctx.Value(turnIDKey).(string)
	return id
}

// Attrs returns the correlation attributes carried by ctx, ready to pass to slog.
func Attrs(ctx context.Context) []any {
	var attrs []any
	if id := RequestID(ctx); id != "" {
		attrs = append(attrs, slog.String("request_id", id))
	}
	if id := TurnID(ctx); id != "" {
		attrs = append(attrs, slog.String("turn_id", id))
	}
	return attrs
}
