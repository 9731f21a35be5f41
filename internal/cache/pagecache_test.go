package cache

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pageCacheFixture(t *testing.T, handler http.HandlerFunc) http.Handler {
	t.Helper()
	mc := NewMemoryCache(DefaultConfig())
	t.Cleanup(func() { mc.Close() })

	mw := PageCache(&PageCacheConfig{
		Cache: mc,
		TTL:   time.Minute,
		KeyParts: func(r *http.Request) []string {
			return []string{r.Host, r.Header.Get("X-BV-Visitor-Host"), r.URL.Path, r.URL.RawQuery}
		},
	})
	return mw(handler)
}

func TestPageCacheHitServesStoredResponse(t *testing.T) {
	calls := 0
	h := pageCacheFixture(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html>page</html>"))
	})

	first := httptest.NewRecorder()
	h.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "http://acme.com/about", nil))
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))

	second := httptest.NewRecorder()
	h.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "http://acme.com/about", nil))
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, "text/html; charset=utf-8", second.Header().Get("Content-Type"))
	assert.Equal(t, first.Body.String(), second.Body.String())

	assert.Equal(t, 1, calls)
}

func TestPageCacheKeyIncludesVisitorHost(t *testing.T) {
	calls := 0
	h := pageCacheFixture(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte("page for " + r.Header.Get("X-BV-Visitor-Host")))
	})

	reqA := httptest.NewRequest(http.MethodGet, "http://proxy.local/blog", nil)
	reqA.Header.Set("X-BV-Visitor-Host", "alpha.com")
	h.ServeHTTP(httptest.NewRecorder(), reqA)

	// Same proxy host and path, different visitor. A shared entry here
	// would leak one tenant's page to another.
	reqB := httptest.NewRequest(http.MethodGet, "http://proxy.local/blog", nil)
	reqB.Header.Set("X-BV-Visitor-Host", "beta.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, reqB)

	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Equal(t, "page for beta.com", rec.Body.String())
	assert.Equal(t, 2, calls)
}

func TestPageCacheSkipsNonGET(t *testing.T) {
	calls := 0
	h := pageCacheFixture(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte("ok"))
	})

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "http://acme.com/form", nil))
		assert.Empty(t, rec.Header().Get("X-Cache"))
	}
	assert.Equal(t, 2, calls)
}

func TestPageCacheDoesNotStoreErrors(t *testing.T) {
	calls := 0
	h := pageCacheFixture(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("found now"))
	})

	first := httptest.NewRecorder()
	h.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "http://acme.com/late", nil))
	require.Equal(t, http.StatusNotFound, first.Code)

	second := httptest.NewRecorder()
	h.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "http://acme.com/late", nil))
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "found now", second.Body.String())
	assert.Equal(t, 2, calls)
}

func TestPageCacheDoesNotStoreRedirects(t *testing.T) {
	calls := 0
	h := pageCacheFixture(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Redirect(w, r, "/canonical", http.StatusPermanentRedirect)
	})

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "http://acme.com/old", nil))
		assert.Equal(t, http.StatusPermanentRedirect, rec.Code)
	}
	assert.Equal(t, 2, calls)
}

func TestPageCacheDisabledWithoutTTL(t *testing.T) {
	calls := 0
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte("live"))
	})

	mc := NewMemoryCache(nil)
	t.Cleanup(func() { mc.Close() })

	for _, mw := range []func(http.Handler) http.Handler{
		PageCache(&PageCacheConfig{Cache: mc}),
		PageCache(nil),
	} {
		calls = 0
		wrapped := mw(handler)
		for i := 0; i < 2; i++ {
			rec := httptest.NewRecorder()
			wrapped.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "http://acme.com/", nil))
			assert.Empty(t, rec.Header().Get("X-Cache"))
		}
		assert.Equal(t, 2, calls)
	}
}
