// Package logtrace provides logging and tracing utilities for the application.
// It integrates with zerolog for structured logging and carries request IDs
// through contexts so every attempt of a request logs under the same ID.
package logtrace

import (
	"context"
)

type contextKey string

const requestIDKey contextKey = "requestId"

// WithRequestID returns a context carrying the given request ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the request ID from the context.
// Returns an empty string if the context is nil or if no request ID is found.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	r, ok := ctx.Value(requestIDKey).(string)
	if !ok {
		return ""
	}
	return r
}
