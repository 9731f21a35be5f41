package observability

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"
)

// RequestIDConfig holds configuration for request ID middleware
type RequestIDConfig struct {
	// Logger for structured logging (optional, uses slog.Default if nil)
	Logger *slog.Logger

	// Header name for request ID
	// Default: X-Request-ID
	Header string

	// Generator function to create request IDs
	// Default: random UUID
	Generator func() string

	// Skipper defines a function to skip middleware
	Skipper func(r *http.Request) bool
}

// DefaultRequestIDConfig returns a default request ID configuration
func DefaultRequestIDConfig() *RequestIDConfig {
	return &RequestIDConfig{
		Header:    "X-Request-ID",
		Generator: uuid.NewString,
	}
}

// RequestID returns a middleware that adds request ID to context and
// response headers. An ID already present on the request is kept, so
// edge proxies can correlate their logs with ours.
func RequestID(config *RequestIDConfig) func(next http.Handler) http.Handler {
	// Use provided config or default
	if config == nil {
		config = DefaultRequestIDConfig()
	}

	// Set defaults
	if config.Header == "" {
		config.Header = "X-Request-ID"
	}

	if config.Generator == nil {
		config.Generator = uuid.NewString
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Skip middleware if skipper function returns true
			if config.Skipper != nil && config.Skipper(r) {
				next.ServeHTTP(w, r)
				return
			}

			// Check if request ID already exists in header
			requestID := r.Header.Get(config.Header)

			// Generate new request ID
			if requestID == "" {
				requestID = config.Generator()
			}

			// Add request ID to response header
			w.Header().Set(config.Header, requestID)

			// Add request ID to context
			ctx := context.WithValue(r.Context(), RequestIDKey, requestID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetRequestID retrieves the request ID from context
func GetRequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}

	return ""
}

// GetRequestIDFromRequest retrieves the request ID from HTTP request context
func GetRequestIDFromRequest(r *http.Request) string {
	return GetRequestID(r.Context())
}

// WithRequestID returns a context with the given request ID
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}
