package middlewares

import (
	"log/slog"
	"net/http"
	"time"

	"blogview/internal/observability"
)

// responseWriter wraps http.ResponseWriter to capture the status code
// and response size for logging.
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
}

// WriteHeader captures the status code for logging
func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Write captures the response size for logging
func (rw *responseWriter) Write(data []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(data)
	rw.bytesWritten += int64(n)
	return n, err
}

// Flush passes through so streamed HTML responses keep working
func (rw *responseWriter) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// LoggerConfig holds configuration options for the HTTP request logger middleware
type LoggerConfig struct {
	Logger             *slog.Logger // Structured logger instance (stdlib)
	SkipPaths          []string     // Paths to skip logging (e.g., health checks)
	IncludeUserAgent   bool         // Whether to include User-Agent header
	IncludeReferer     bool         // Whether to include Referer header
	IncludeQueryParams bool         // Whether to include query parameters
}

// DefaultLoggerConfig creates a production-ready logger configuration.
// User-Agent and Referer stay on: crawler identification and traffic
// sources are how a content platform is debugged.
func DefaultLoggerConfig() *LoggerConfig {
	return &LoggerConfig{
		Logger:             slog.Default(),
		SkipPaths:          []string{"/healthz", "/readyz", "/metrics", "/favicon.ico"},
		IncludeUserAgent:   true,
		IncludeReferer:     true,
		IncludeQueryParams: true,
	}
}

// Logger creates an HTTP logging middleware that captures request/response details
// Uses stdlib slog for structured logging - no external dependencies
func Logger(config *LoggerConfig) func(http.Handler) http.Handler {
	// Use default configuration if none provided
	if config == nil {
		config = DefaultLoggerConfig()
	}

	// Set defaults
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Skip logging for specified paths (health checks, metrics, etc.)
			if shouldSkipPath(r.URL.Path, config.SkipPaths) {
				next.ServeHTTP(w, r)
				return
			}

			startTime := time.Now()

			// Create custom response writer to capture response details
			wrappedWriter := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK, // Default status
			}

			// Process the request through the next handler
			next.ServeHTTP(wrappedWriter, r)

			// Calculate request processing time
			requestDuration := time.Since(startTime)

			// Build structured log fields
			logFields := buildLogFields(r, wrappedWriter, requestDuration, config)

			// Log with appropriate level based on response status
			logRequest(config.Logger, wrappedWriter.statusCode, logFields)
		})
	}
}

// shouldSkipPath checks if the given path should be skipped from logging
func shouldSkipPath(path string, skipPaths []string) bool {
	for _, skipPath := range skipPaths {
		if path == skipPath {
			return true
		}
	}
	return false
}

// buildLogFields creates structured log fields from request and response data.
// The Host header is always included: on a multi-tenant platform it is the
// first thing to check when a request went to the wrong site.
func buildLogFields(r *http.Request, rw *responseWriter, duration time.Duration, config *LoggerConfig) []any {
	fields := []any{
		"method", r.Method,
		"path", r.URL.Path,
		"status", rw.statusCode,
		"latency_ms", duration.Milliseconds(),
		"latency", duration.String(),
		"client_ip", r.RemoteAddr,
		"host", r.Host,
		"response_size", rw.bytesWritten,
	}

	if id := observability.GetRequestID(r.Context()); id != "" {
		fields = append(fields, "request_id", id)
	}

	// Add query parameters if enabled
	if config.IncludeQueryParams && len(r.URL.RawQuery) > 0 {
		fields = append(fields, "query", r.URL.RawQuery)
	}

	// Add User-Agent if enabled
	if config.IncludeUserAgent {
		if userAgent := r.Header.Get("User-Agent"); userAgent != "" {
			fields = append(fields, "user_agent", userAgent)
		}
	}

	// Add Referer if enabled
	if config.IncludeReferer {
		if referer := r.Header.Get("Referer"); referer != "" {
			fields = append(fields, "referer", referer)
		}
	}

	return fields
}

// logRequest logs the request with appropriate level based on status code
func logRequest(logger *slog.Logger, statusCode int, fields []any) {
	switch {
	case statusCode >= 500:
		logger.Error("server error", fields...)
	case statusCode >= 400:
		logger.Warn("client error", fields...)
	default:
		logger.Info("request handled", fields...)
	}
}
