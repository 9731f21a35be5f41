// Package cache provides the byte-oriented cache used for resolved
// tenants and rendered pages, with in-memory and Redis implementations
// and a fallback combinator for degraded operation.
package cache

import (
	"context"
	"errors"
	"time"
)

// Cache is the minimal contract the platform needs from a cache. Values
// are opaque bytes; callers own serialization.
type Cache interface {
	// Get retrieves a value. A missing or expired key yields ErrMiss.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with the given TTL (0 = backend default).
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes one or more keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error

	// Ping checks whether the cache backend is reachable.
	Ping(ctx context.Context) error

	// Close releases the backend connection or stops maintenance work.
	Close() error
}

// Config holds settings shared by all cache implementations.
type Config struct {
	// DefaultTTL applies when Set is called with a zero TTL.
	DefaultTTL time.Duration

	// Prefix namespaces every key so multiple subsystems can share one
	// backend.
	Prefix string
}

// DefaultConfig returns the configuration used when none is supplied.
func DefaultConfig() *Config {
	return &Config{
		DefaultTTL: 5 * time.Minute,
		Prefix:     "bv:",
	}
}

func (c *Config) prefixKey(key string) string {
	return c.Prefix + key
}

// Sentinel errors. Implementations wrap them in *CacheError; test with
// errors.Is.
var (
	ErrMiss        = errors.New("cache miss")
	ErrUnavailable = errors.New("cache unavailable")
)

// CacheError carries the failed operation and key alongside the cause.
type CacheError struct {
	Op  string
	Key string
	Err error
}

func (e *CacheError) Error() string {
	if e.Key == "" {
		return "cache " + e.Op + ": " + e.Err.Error()
	}
	return "cache " + e.Op + " " + e.Key + ": " + e.Err.Error()
}

func (e *CacheError) Unwrap() error {
	return e.Err
}

func opErr(op, key string, err error) error {
	return &CacheError{Op: op, Key: key, Err: err}
}
