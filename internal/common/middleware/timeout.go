package middleware

import (
	"context"
	"net/http"
	"time"
)

// SetTimeout creates middleware that bounds request handling with a deadline
// on the request context. Handlers observe the deadline through the context;
// the service runs in-process behind a synchronous transport, so the
// middleware never writes a response of its own.
func SetTimeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
