package middlewares

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"blogview/internal/cache"
)

// RateLimitConfig holds configuration for rate limiting middleware using token bucket algorithm
type RateLimitConfig struct {
	// Cache system for storing rate limit state
	// If nil, uses in-memory store (not recommended for distributed systems)
	Cache cache.Cache

	// Logger for structured logging (optional, uses slog.Default if nil)
	Logger *slog.Logger

	// Capacity is the maximum number of tokens in the bucket
	// Default: 60
	Capacity int

	// RefillRate is the number of tokens added per second
	// Default: 10.0
	RefillRate float64

	// KeyGenerator generates the key for rate limiting
	// Default: uses client IP
	KeyGenerator func(r *http.Request) string

	// Store defines the storage mechanism for rate limiting
	// Default: in-memory store
	Store TokenBucketStore

	// Skipper defines a function to skip middleware
	Skipper func(r *http.Request) bool

	// OnLimitReached is called when rate limit is exceeded
	OnLimitReached func(r *http.Request, key string)
}

// TokenBucket represents a token bucket state
type TokenBucket struct {
	Tokens     float64   // Current number of tokens
	LastRefill time.Time // Last time tokens were refilled
	Capacity   int       // Maximum tokens
	RefillRate float64   // Tokens added per second
}

// TokenBucketStore defines the interface for token bucket storage
type TokenBucketStore interface {
	// Allow checks if a request is allowed and updates the bucket
	Allow(ctx context.Context, key string, capacity int, refillRate float64) (allowed bool, remaining int, retryAfter time.Duration, err error)
	// Reset resets the bucket for a key
	Reset(ctx context.Context, key string) error
}

// MemoryTokenBucketStore implements an in-memory token bucket store
type MemoryTokenBucketStore struct {
	mu      sync.Mutex
	buckets map[string]*TokenBucket
}

// NewMemoryTokenBucketStore creates a new in-memory token bucket store
func NewMemoryTokenBucketStore() *MemoryTokenBucketStore {
	store := &MemoryTokenBucketStore{
		buckets: make(map[string]*TokenBucket),
	}

	// Start cleanup goroutine to remove old buckets
	go store.cleanup()

	return store
}

// Allow checks if a request is allowed using token bucket algorithm
func (m *MemoryTokenBucketStore) Allow(ctx context.Context, key string, capacity int, refillRate float64) (bool, int, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	bucket, exists := m.buckets[key]

	// Initialize new bucket if it doesn't exist
	if !exists {
		bucket = &TokenBucket{
			Tokens:     float64(capacity),
			LastRefill: now,
			Capacity:   capacity,
			RefillRate: refillRate,
		}
		m.buckets[key] = bucket
	}

	refill(bucket, now, capacity, refillRate)

	// Check if we have at least 1 token
	if bucket.Tokens >= 1.0 {
		bucket.Tokens -= 1.0
		remaining := int(bucket.Tokens)
		return true, remaining, 0, nil
	}

	return false, 0, retryAfterFor(bucket, refillRate), nil
}

// Reset resets the bucket for a key
func (m *MemoryTokenBucketStore) Reset(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.buckets, key)
	return nil
}

// cleanup removes buckets that haven't been accessed in a while
func (m *MemoryTokenBucketStore) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()
		m.mu.Lock()
		for key, bucket := range m.buckets {
			// Remove buckets not accessed in the last 10 minutes
			if now.Sub(bucket.LastRefill) > 10*time.Minute {
				delete(m.buckets, key)
			}
		}
		m.mu.Unlock()
	}
}

// refill adds tokens for the elapsed time. Fractional tokens are kept
// so slow refill rates still make progress between checks.
func refill(bucket *TokenBucket, now time.Time, capacity int, refillRate float64) {
	elapsed := now.Sub(bucket.LastRefill).Seconds()
	bucket.Tokens += elapsed * refillRate
	if bucket.Tokens > float64(capacity) {
		bucket.Tokens = float64(capacity)
	}
	bucket.LastRefill = now
}

// retryAfterFor reports how long until the bucket holds a full token.
func retryAfterFor(bucket *TokenBucket, refillRate float64) time.Duration {
	tokensNeeded := 1.0 - bucket.Tokens
	return time.Duration(tokensNeeded / refillRate * float64(time.Second))
}

// CacheTokenBucketStore implements a cache-backed token bucket store,
// sharing limits across replicas when backed by Redis.
type CacheTokenBucketStore struct {
	cache     cache.Cache
	keyPrefix string
}

// NewCacheTokenBucketStore creates a new cache token bucket store
func NewCacheTokenBucketStore(c cache.Cache, keyPrefix string) *CacheTokenBucketStore {
	if keyPrefix == "" {
		keyPrefix = "ratelimit:"
	}
	return &CacheTokenBucketStore{
		cache:     c,
		keyPrefix: keyPrefix,
	}
}

// Allow checks if a request is allowed using token bucket algorithm with cache
func (c *CacheTokenBucketStore) Allow(ctx context.Context, key string, capacity int, refillRate float64) (bool, int, time.Duration, error) {
	fullKey := c.keyPrefix + key
	now := time.Now()

	var bucket *TokenBucket
	data, err := c.cache.Get(ctx, fullKey)
	switch {
	case err == nil:
		bucket = &TokenBucket{}
		if err := json.Unmarshal(data, bucket); err != nil {
			return false, 0, 0, fmt.Errorf("failed to unmarshal bucket: %w", err)
		}
	case errors.Is(err, cache.ErrMiss):
		bucket = &TokenBucket{
			Tokens:     float64(capacity),
			LastRefill: now,
			Capacity:   capacity,
			RefillRate: refillRate,
		}
	default:
		return false, 0, 0, err
	}

	refill(bucket, now, capacity, refillRate)

	allowed := bucket.Tokens >= 1.0
	if allowed {
		bucket.Tokens -= 1.0
	}

	remaining := int(bucket.Tokens)

	var retryAfter time.Duration
	if !allowed {
		retryAfter = retryAfterFor(bucket, refillRate)
	}

	// TTL: keep key alive for twice the time it takes to fully refill the bucket
	ttl := time.Duration(float64(capacity) / refillRate * 2 * float64(time.Second))
	if ttl < time.Minute {
		ttl = time.Minute // Minimum 1 minute
	}

	bucketData, err := json.Marshal(bucket)
	if err != nil {
		return false, 0, 0, fmt.Errorf("failed to marshal bucket: %w", err)
	}

	if err := c.cache.Set(ctx, fullKey, bucketData, ttl); err != nil {
		return false, 0, 0, fmt.Errorf("failed to save bucket: %w", err)
	}

	return allowed, remaining, retryAfter, nil
}

// Reset resets the bucket for a key
func (c *CacheTokenBucketStore) Reset(ctx context.Context, key string) error {
	fullKey := c.keyPrefix + key
	return c.cache.Delete(ctx, fullKey)
}

// DefaultRateLimitConfig returns a default token bucket rate limit
// configuration. The defaults are sized for aggressive crawlers, not
// human readers: a browser loading a page never comes close.
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		Capacity:     60,
		RefillRate:   10.0,
		KeyGenerator: defaultKeyGenerator,
		Store:        NewMemoryTokenBucketStore(),
	}
}

// defaultKeyGenerator generates a key based on client IP
func defaultKeyGenerator(r *http.Request) string {
	return clientIP(r)
}

// clientIP extracts the originating client address. The platform sits
// behind edge proxies, so forwarding headers win over RemoteAddr.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if first, _, ok := strings.Cut(forwarded, ","); ok {
			return strings.TrimSpace(first)
		}
		return strings.TrimSpace(forwarded)
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return strings.TrimSpace(realIP)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateLimit returns a token bucket rate limiting middleware. Store
// failures let the request through: a cache outage must not take the
// published sites down with it.
func RateLimit(config *RateLimitConfig) func(next http.Handler) http.Handler {
	if config == nil {
		config = DefaultRateLimitConfig()
	}

	// Set defaults
	if config.Store == nil {
		if config.Cache != nil {
			// Use cache-backed store if cache is provided
			config.Store = NewCacheTokenBucketStore(config.Cache, "ratelimit:")
		} else {
			// Fallback to in-memory store
			config.Store = NewMemoryTokenBucketStore()
		}
	}
	if config.KeyGenerator == nil {
		config.KeyGenerator = defaultKeyGenerator
	}
	if config.Capacity <= 0 {
		config.Capacity = 60
	}
	if config.RefillRate <= 0 {
		config.RefillRate = 10.0
	}

	// Use provided logger or default
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// Determine store type for logging
	storeType := "memory"
	if _, ok := config.Store.(*CacheTokenBucketStore); ok {
		storeType = "cache"
	}

	logger.Debug("rate limiter middleware initialized",
		"capacity", config.Capacity,
		"refill_rate", config.RefillRate,
		"store_type", storeType,
	)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Skip middleware if skipper function returns true
			if config.Skipper != nil && config.Skipper(r) {
				next.ServeHTTP(w, r)
				return
			}

			key := config.KeyGenerator(r)
			ctx := r.Context()

			allowed, remaining, retryAfter, err := config.Store.Allow(ctx, key, config.Capacity, config.RefillRate)
			if err != nil {
				logger.Error("rate limiter store error",
					"method", r.Method,
					"path", r.URL.Path,
					"key", key,
					"error", err,
				)
				next.ServeHTTP(w, r)
				return
			}

			// Set rate limit headers
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(config.Capacity))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

			// Check if rate limit exceeded
			if !allowed {
				logger.Warn("rate limit exceeded",
					"method", r.Method,
					"path", r.URL.Path,
					"key", key,
					"retry_after_seconds", int(retryAfter.Seconds())+1,
				)

				// Call OnLimitReached callback if set
				if config.OnLimitReached != nil {
					config.OnLimitReached(r, key)
				}

				w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())+1))
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// PerIP creates a token bucket rate limit configuration for per-IP limiting
func PerIP(capacity int, refillRate float64) *RateLimitConfig {
	config := DefaultRateLimitConfig()
	config.Capacity = capacity
	config.RefillRate = refillRate
	return config
}

// WithCache creates a rate limit configuration using cache storage
func WithCache(c cache.Cache, capacity int, refillRate float64) *RateLimitConfig {
	config := DefaultRateLimitConfig()
	config.Cache = c
	config.Capacity = capacity
	config.RefillRate = refillRate
	config.Store = NewCacheTokenBucketStore(c, "ratelimit:")
	return config
}

// WithMemory creates a rate limit configuration using in-memory storage
func WithMemory(capacity int, refillRate float64) *RateLimitConfig {
	config := DefaultRateLimitConfig()
	config.Capacity = capacity
	config.RefillRate = refillRate
	config.Store = NewMemoryTokenBucketStore()
	return config
}
