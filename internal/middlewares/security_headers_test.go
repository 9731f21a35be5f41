package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSecurityHeaders(t *testing.T) {
	h := Security(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/blog", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "SAMEORIGIN", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "strict-origin-when-cross-origin", rec.Header().Get("Referrer-Policy"))
	assert.NotEmpty(t, rec.Header().Get("Permissions-Policy"))
	// No CSP by default: posts embed media from arbitrary origins.
	assert.Empty(t, rec.Header().Get("Content-Security-Policy"))
}

func TestSecurityHSTSOnlyOverTLS(t *testing.T) {
	h := Security(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	plain := httptest.NewRecorder()
	h.ServeHTTP(plain, httptest.NewRequest(http.MethodGet, "http://acme.com/", nil))
	assert.Empty(t, plain.Header().Get("Strict-Transport-Security"))

	// httptest fills in a TLS state for https targets.
	req := httptest.NewRequest(http.MethodGet, "https://acme.com/", nil)
	secure := httptest.NewRecorder()
	h.ServeHTTP(secure, req)
	got := secure.Header().Get("Strict-Transport-Security")
	assert.Equal(t, "max-age=31536000", got)
	// Tenants can leave the platform; their domains must not stay
	// pinned beyond the certificate's own lifetime.
	assert.NotContains(t, got, "includeSubDomains")
	assert.NotContains(t, got, "preload")
}
