package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// FallbackCache prefers Redis and degrades to the in-process memory
// cache when Redis is down, so a cache outage never takes rendering
// down with it.
type FallbackCache struct {
	primary  Cache
	fallback Cache
	logger   *slog.Logger
}

// FallbackConfig holds fallback cache configuration.
type FallbackConfig struct {
	Redis  *RedisConfig
	Memory *Config
	Logger *slog.Logger
}

// NewFallbackCache builds the two-tier cache. A Redis connection
// failure at startup is logged and tolerated; the memory tier carries
// everything until Redis returns.
func NewFallbackCache(config *FallbackConfig) *FallbackCache {
	if config == nil {
		config = &FallbackConfig{}
	}
	if config.Memory == nil {
		config.Memory = DefaultConfig()
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	fc := &FallbackCache{
		fallback: NewMemoryCache(config.Memory),
		logger:   logger,
	}

	if config.Redis != nil {
		redisCache, err := NewRedisCache(config.Redis)
		if err != nil {
			logger.Warn("redis unavailable, caching in memory only", "error", err)
		} else {
			fc.primary = redisCache
		}
	}

	return fc
}

// Primary reports the Redis tier when it is connected, nil otherwise.
func (fc *FallbackCache) Primary() *RedisCache {
	if rc, ok := fc.primary.(*RedisCache); ok {
		return rc
	}
	return nil
}

// Get tries Redis first and falls back to memory on infrastructure
// errors. A miss in Redis is a miss; only unreachability falls through.
func (fc *FallbackCache) Get(ctx context.Context, key string) ([]byte, error) {
	if fc.primary != nil {
		val, err := fc.primary.Get(ctx, key)
		if err == nil {
			return val, nil
		}
		if errors.Is(err, ErrMiss) {
			return nil, err
		}
		fc.logger.Warn("primary cache get failed, trying fallback", "key", key, "error", err)
	}
	return fc.fallback.Get(ctx, key)
}

// Set writes to both tiers so reads survive a later Redis outage.
func (fc *FallbackCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	ferr := fc.fallback.Set(ctx, key, value, ttl)
	if fc.primary != nil {
		if err := fc.primary.Set(ctx, key, value, ttl); err != nil {
			fc.logger.Warn("primary cache set failed", "key", key, "error", err)
			return ferr
		}
	}
	return ferr
}

// Delete removes the keys from both tiers.
func (fc *FallbackCache) Delete(ctx context.Context, keys ...string) error {
	err := fc.fallback.Delete(ctx, keys...)
	if fc.primary != nil {
		if perr := fc.primary.Delete(ctx, keys...); perr != nil {
			fc.logger.Warn("primary cache delete failed", "error", perr)
			if err == nil {
				err = perr
			}
		}
	}
	return err
}

// Ping succeeds when either tier is reachable.
func (fc *FallbackCache) Ping(ctx context.Context) error {
	if fc.primary != nil {
		if err := fc.primary.Ping(ctx); err == nil {
			return nil
		}
	}
	return fc.fallback.Ping(ctx)
}

// Close closes both tiers and returns the first error seen.
func (fc *FallbackCache) Close() error {
	var first error
	if fc.primary != nil {
		first = fc.primary.Close()
	}
	if err := fc.fallback.Close(); err != nil && first == nil {
		first = err
	}
	return first
}
