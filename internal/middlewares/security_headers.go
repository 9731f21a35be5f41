package middlewares

import (
	"log/slog"
	"net/http"
	"strconv"
)

// SecurityConfig holds configuration for security headers middleware.
// The platform serves pages on domains owned by tenants, so the
// defaults avoid anything that constrains a domain beyond the request
// being answered. HSTS never includes subdomains or preload here: both
// outlive the tenant's use of the platform.
type SecurityConfig struct {
	// Logger for structured logging (optional, uses slog.Default if nil)
	Logger *slog.Logger

	// ContentTypeNosniff prevents browsers from MIME-sniffing
	// Default: "nosniff"
	ContentTypeNosniff string

	// XFrameOptions prevents clickjacking attacks
	// Values: "DENY", "SAMEORIGIN"
	// Default: "SAMEORIGIN"
	XFrameOptions string

	// HSTSMaxAge sets HTTP Strict Transport Security max age
	// Default: 31536000 (1 year)
	HSTSMaxAge int

	// ContentSecurityPolicy sets CSP header. Empty by default: posts
	// embed media and scripts from arbitrary origins, and the page
	// shell carries an inline hydration script.
	ContentSecurityPolicy string

	// ReferrerPolicy controls referrer information
	// Default: "strict-origin-when-cross-origin"
	ReferrerPolicy string

	// PermissionsPolicy controls browser features
	// Default: "camera=(), geolocation=(), microphone=(), payment=()"
	PermissionsPolicy string

	// Skipper defines a function to skip middleware
	Skipper func(r *http.Request) bool
}

// DefaultSecurityConfig returns a default security configuration
func DefaultSecurityConfig() *SecurityConfig {
	return &SecurityConfig{
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "SAMEORIGIN",
		HSTSMaxAge:         31536000, // 1 year
		ReferrerPolicy:     "strict-origin-when-cross-origin",
		PermissionsPolicy:  "camera=(), geolocation=(), microphone=(), payment=()",
	}
}

// ProductionSecurityConfig returns a production security configuration
func ProductionSecurityConfig() *SecurityConfig {
	config := DefaultSecurityConfig()
	config.HSTSMaxAge = 63072000 // 2 years
	return config
}

// Security returns a middleware that sets security headers
func Security(config *SecurityConfig) func(next http.Handler) http.Handler {
	if config == nil {
		config = DefaultSecurityConfig()
	}

	// Use provided logger or default
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	logger.Debug("security headers middleware initialized",
		"hsts_max_age", config.HSTSMaxAge,
		"x_frame_options", config.XFrameOptions,
	)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Skip middleware if skipper function returns true
			if config.Skipper != nil && config.Skipper(r) {
				next.ServeHTTP(w, r)
				return
			}

			// X-Content-Type-Options
			if config.ContentTypeNosniff != "" {
				w.Header().Set("X-Content-Type-Options", config.ContentTypeNosniff)
			}

			// X-Frame-Options
			if config.XFrameOptions != "" {
				w.Header().Set("X-Frame-Options", config.XFrameOptions)
			}

			// Strict-Transport-Security (only for HTTPS)
			if r.TLS != nil && config.HSTSMaxAge > 0 {
				w.Header().Set("Strict-Transport-Security", "max-age="+strconv.Itoa(config.HSTSMaxAge))
			}

			// Content-Security-Policy
			if config.ContentSecurityPolicy != "" {
				w.Header().Set("Content-Security-Policy", config.ContentSecurityPolicy)
			}

			// Referrer-Policy
			if config.ReferrerPolicy != "" {
				w.Header().Set("Referrer-Policy", config.ReferrerPolicy)
			}

			// Permissions-Policy
			if config.PermissionsPolicy != "" {
				w.Header().Set("Permissions-Policy", config.PermissionsPolicy)
			}

			next.ServeHTTP(w, r)
		})
	}
}
