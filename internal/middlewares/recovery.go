package middlewares

import (
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"
)

// RecoveryConfig holds configuration for recovery middleware
type RecoveryConfig struct {
	// Logger for structured logging (optional, uses slog.Default if nil)
	Logger *slog.Logger

	// Skipper defines a function to skip middleware
	Skipper func(r *http.Request) bool

	// DisableStackTrace disables stack trace in panic recovery
	// Default: false
	DisableStackTrace bool

	// Recovery function that handles the panic
	RecoveryHandler func(w http.ResponseWriter, r *http.Request, err interface{}, stack []byte)

	// Development mode serves the panic and stack in the response
	// Default: false (should be true only in development)
	Development bool
}

// DefaultRecoveryConfig returns a default recovery configuration
func DefaultRecoveryConfig() *RecoveryConfig {
	return &RecoveryConfig{
		RecoveryHandler: defaultRecoveryHandler,
	}
}

// DevelopmentRecoveryConfig returns a development-friendly recovery configuration
func DevelopmentRecoveryConfig() *RecoveryConfig {
	return &RecoveryConfig{
		RecoveryHandler: developmentRecoveryHandler,
		Development:     true,
	}
}

// defaultRecoveryHandler serves a minimal error page. The platform
// serves HTML to browsers and crawlers, so the error body is HTML too.
func defaultRecoveryHandler(w http.ResponseWriter, r *http.Request, err interface{}, stack []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusInternalServerError)
	io.WriteString(w, `<!doctype html>
<html lang="en">
<head><meta charset="utf-8"><title>Something went wrong</title></head>
<body><h1>Something went wrong</h1><p>This page could not be served. Please try again later.</p></body>
</html>
`)
}

// developmentRecoveryHandler serves the panic value and stack trace
func developmentRecoveryHandler(w http.ResponseWriter, r *http.Request, err interface{}, stack []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusInternalServerError)
	fmt.Fprintf(w, `<!doctype html>
<html lang="en">
<head><meta charset="utf-8"><title>Panic</title></head>
<body><h1>Panic: %s</h1><p>%s %s at %s</p><pre>%s</pre></body>
</html>
`,
		html.EscapeString(fmt.Sprintf("%v", err)),
		html.EscapeString(r.Method),
		html.EscapeString(r.URL.Path),
		time.Now().Format(time.RFC3339),
		html.EscapeString(string(stack)),
	)
}

// Recovery returns a recovery middleware that recovers from panics
func Recovery(config *RecoveryConfig) func(next http.Handler) http.Handler {
	if config == nil {
		config = DefaultRecoveryConfig()
	}

	// Set defaults
	if config.RecoveryHandler == nil {
		if config.Development {
			config.RecoveryHandler = developmentRecoveryHandler
		} else {
			config.RecoveryHandler = defaultRecoveryHandler
		}
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

			defer func() {
				if err := recover(); err != nil {
					var stack []byte
					if !config.DisableStackTrace {
						stack = debug.Stack()
					}

					// Log the panic with structured logging
					logAttrs := []any{
						"method", r.Method,
						"path", r.URL.Path,
						"host", r.Host,
						"client_ip", clientIP(r),
						"user_agent", r.UserAgent(),
						"error", fmt.Sprintf("%v", err),
					}

					if requestID := r.Header.Get("X-Request-ID"); requestID != "" {
						logAttrs = append(logAttrs, "request_id", requestID)
					}

					if !config.DisableStackTrace {
						logAttrs = append(logAttrs, "stack", string(stack))
					}

					logger.Error("panic recovered", logAttrs...)

					// Call recovery handler
					config.RecoveryHandler(w, r, err, stack)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
