// Package tracing carries request identifiers and OpenTelemetry spans
// through contexts and logs.
package tracing

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ContextKey is the type for context keys
type ContextKey string

const (
	// RequestIDKey is the context key for the request ID
	RequestIDKey ContextKey = "request_id"
)

// RequestIDHeader carries the request ID between client and server.
const RequestIDHeader = "X-Request-ID"

// maxRequestIDLen bounds caller-supplied IDs echoed into logs and headers.
const maxRequestIDLen = 128

// NewRequestID generates a new request ID
func NewRequestID() string {
	return uuid.New().String()
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context
func GetRequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// FromRequest returns the caller's request ID when it is usable, otherwise
// a new one.
func FromRequest(r *http.Request) string {
	id := r.Header.Get(RequestIDHeader)
	if validRequestID(id) {
		return id
	}
	return NewRequestID()
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if c < '!' || c > '~' {
			return false
		}
	}
	return true
}

// Logger returns base annotated with the context's request and trace IDs.
func Logger(ctx context.Context, base zerolog.Logger) zerolog.Logger {
	if id := GetRequestID(ctx); id != "" {
		base = base.With().Str("request_id", id).Logger()
	}
	if id := TraceID(ctx); id != "" {
		base = base.With().Str("trace_id", id).Logger()
	}
	return base
}
