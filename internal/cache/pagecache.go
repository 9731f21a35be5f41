package cache

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// PageCacheConfig configures the rendered-page cache middleware.
type PageCacheConfig struct {
	Cache  Cache
	Logger *slog.Logger

	// TTL for cached pages. Zero or negative disables the middleware.
	TTL time.Duration

	// KeyParts extracts the request attributes that identify a page.
	// The site wiring supplies one that includes both host claims and
	// the proxy secret, so pages can never be served across tenants or
	// trust boundaries. When nil, Host+path+query is used.
	KeyParts func(r *http.Request) []string
}

type cachedPage struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// PageCache returns a middleware that serves repeat GETs of successful
// pages from the cache. Redirects and error responses pass through
// uncached so policy decisions stay live.
func PageCache(config *PageCacheConfig) func(next http.Handler) http.Handler {
	if config == nil || config.Cache == nil || config.TTL <= 0 {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	keyParts := config.KeyParts
	if keyParts == nil {
		keyParts = func(r *http.Request) []string {
			return []string{r.Host, r.URL.Path, r.URL.RawQuery}
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				next.ServeHTTP(w, r)
				return
			}

			key := pageKey(keyParts(r))

			if data, err := config.Cache.Get(r.Context(), key); err == nil {
				var page cachedPage
				if jerr := json.Unmarshal(data, &page); jerr == nil {
					w.Header().Set("Content-Type", page.ContentType)
					w.Header().Set("X-Cache", "HIT")
					w.WriteHeader(page.Status)
					w.Write(page.Body)
					return
				}
				logger.Warn("dropping undecodable cached page", "key", key)
				_ = config.Cache.Delete(r.Context(), key)
			}

			rec := &pageRecorder{ResponseWriter: w, status: http.StatusOK, body: &bytes.Buffer{}}
			rec.Header().Set("X-Cache", "MISS")
			next.ServeHTTP(rec, r)

			if rec.status != http.StatusOK {
				return
			}
			data, err := json.Marshal(cachedPage{
				Status:      rec.status,
				ContentType: rec.Header().Get("Content-Type"),
				Body:        rec.body.Bytes(),
			})
			if err != nil {
				return
			}
			if err := config.Cache.Set(r.Context(), key, data, config.TTL); err != nil {
				logger.Warn("page cache store failed", "key", key, "error", err)
			}
		})
	}
}

type pageRecorder struct {
	http.ResponseWriter
	status int
	body   *bytes.Buffer
}

func (rec *pageRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *pageRecorder) Write(b []byte) (int, error) {
	rec.body.Write(b)
	return rec.ResponseWriter.Write(b)
}

func pageKey(parts []string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return "page:" + hex.EncodeToString(h.Sum(nil))
}
