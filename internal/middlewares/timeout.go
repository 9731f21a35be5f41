package middlewares

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"
)

// TimeoutConfig holds configuration for timeout middleware
type TimeoutConfig struct {
	// Logger for structured logging (optional, uses slog.Default if nil)
	Logger *slog.Logger

	// Timeout duration for requests
	// Default: 15 seconds
	Timeout time.Duration

	// Skipper defines a function to skip middleware
	Skipper func(r *http.Request) bool

	// OnTimeout is called when a request ran past the deadline
	OnTimeout func(r *http.Request, duration time.Duration)

	// SkipTimeoutForPaths defines paths that should not have timeout applied
	SkipTimeoutForPaths []string
}

// DefaultTimeoutConfig returns a default timeout configuration
func DefaultTimeoutConfig() *TimeoutConfig {
	return &TimeoutConfig{
		Timeout:             15 * time.Second,
		SkipTimeoutForPaths: []string{"/healthz", "/readyz", "/metrics"},
	}
}

// Timeout returns a middleware that attaches a deadline to the request
// context. The handler keeps the response writer: page handlers degrade
// to a shell render when the context expires, which beats racing them
// for the connection to write a 408.
func Timeout(config *TimeoutConfig) func(next http.Handler) http.Handler {
	if config == nil {
		config = DefaultTimeoutConfig()
	}

	// Set defaults
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}

	// Use provided logger or default
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Skip middleware if skipper function returns true
			if config.Skipper != nil && config.Skipper(r) {
				next.ServeHTTP(w, r)
				return
			}

			// Skip timeout for specific paths
			for _, path := range config.SkipTimeoutForPaths {
				if r.URL.Path == path {
					next.ServeHTTP(w, r)
					return
				}
			}

			ctx, cancel := context.WithTimeout(r.Context(), config.Timeout)
			defer cancel()

			start := time.Now()
			next.ServeHTTP(w, r.WithContext(ctx))

			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				duration := time.Since(start)
				logger.Warn("request ran past deadline",
					"method", r.Method,
					"path", r.URL.Path,
					"host", r.Host,
					"duration", duration.String(),
					"timeout", config.Timeout.String(),
				)
				if config.OnTimeout != nil {
					config.OnTimeout(r, duration)
				}
			}
		})
	}
}

// RenderTimeout creates a timeout configuration for page rendering
func RenderTimeout(timeout time.Duration) *TimeoutConfig {
	config := DefaultTimeoutConfig()
	config.Timeout = timeout
	return config
}
