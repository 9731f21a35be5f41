package middlewares

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
)

// ListingPageConfig configures listing pagination. Page size is a
// server-side setting; visitors only pick the page number.
type ListingPageConfig struct {
	// MaxPage caps how deep a visitor can page, bounding the offsets
	// that reach the database. Default: 1000.
	MaxPage int

	Logger *slog.Logger
}

// DefaultListingPageConfig returns the defaults.
func DefaultListingPageConfig() *ListingPageConfig {
	return &ListingPageConfig{MaxPage: 1000}
}

type listingPageKey struct{}

// ListingPage parses the ?page query parameter into the request
// context. Missing, malformed, or out-of-range values fall back to
// page 1; values beyond MaxPage clamp to it. Listing URLs never 400
// over pagination, crawlers feed them all sorts of junk.
func ListingPage(config *ListingPageConfig) func(next http.Handler) http.Handler {
	if config == nil {
		config = DefaultListingPageConfig()
	}
	if config.MaxPage <= 0 {
		config.MaxPage = 1000
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			page := 1
			if raw := r.URL.Query().Get("page"); raw != "" {
				if n, err := strconv.Atoi(raw); err == nil && n > 0 {
					page = n
				} else {
					logger.Debug("ignoring invalid page parameter", "value", raw)
				}
			}
			if page > config.MaxPage {
				page = config.MaxPage
			}

			ctx := context.WithValue(r.Context(), listingPageKey{}, page)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// PageFromContext returns the parsed 1-based listing page, or 1 when
// the middleware did not run.
func PageFromContext(ctx context.Context) int {
	if page, ok := ctx.Value(listingPageKey{}).(int); ok {
		return page
	}
	return 1
}
