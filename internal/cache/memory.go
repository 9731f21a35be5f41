package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryCache is an in-process cache with TTL support. It backs
// single-node deployments and serves as the fallback tier when Redis is
// unreachable.
type MemoryCache struct {
	config *Config
	items  map[string]memoryItem
	mu     sync.RWMutex
	stopCh chan struct{}
	once   sync.Once
}

type memoryItem struct {
	value     []byte
	expiresAt time.Time
}

func (it memoryItem) expired(now time.Time) bool {
	return !it.expiresAt.IsZero() && now.After(it.expiresAt)
}

// NewMemoryCache creates a memory cache and starts its expiry sweeper.
func NewMemoryCache(config *Config) *MemoryCache {
	if config == nil {
		config = DefaultConfig()
	}

	mc := &MemoryCache{
		config: config,
		items:  make(map[string]memoryItem),
		stopCh: make(chan struct{}),
	}

	go mc.sweep()

	return mc
}

// Get retrieves a value from the cache.
func (mc *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	pk := mc.config.prefixKey(key)

	mc.mu.RLock()
	item, ok := mc.items[pk]
	mc.mu.RUnlock()

	if !ok || item.expired(time.Now()) {
		return nil, opErr("get", key, ErrMiss)
	}
	return item.value, nil
}

// Set stores a value, applying the default TTL when ttl is zero.
func (mc *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = mc.config.DefaultTTL
	}

	item := memoryItem{value: value}
	if ttl > 0 {
		item.expiresAt = time.Now().Add(ttl)
	}

	mc.mu.Lock()
	mc.items[mc.config.prefixKey(key)] = item
	mc.mu.Unlock()
	return nil
}

// Delete removes the given keys. Missing keys are ignored.
func (mc *MemoryCache) Delete(ctx context.Context, keys ...string) error {
	mc.mu.Lock()
	for _, key := range keys {
		delete(mc.items, mc.config.prefixKey(key))
	}
	mc.mu.Unlock()
	return nil
}

// Ping always succeeds for the in-process cache.
func (mc *MemoryCache) Ping(ctx context.Context) error {
	return nil
}

// Close stops the expiry sweeper. Safe to call more than once.
func (mc *MemoryCache) Close() error {
	mc.once.Do(func() {
		close(mc.stopCh)
	})
	return nil
}

// Len reports the number of stored entries, expired ones included until
// the next sweep.
func (mc *MemoryCache) Len() int {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return len(mc.items)
}

func (mc *MemoryCache) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			mc.removeExpired()
		case <-mc.stopCh:
			return
		}
	}
}

func (mc *MemoryCache) removeExpired() {
	now := time.Now()
	mc.mu.Lock()
	for key, item := range mc.items {
		if item.expired(now) {
			delete(mc.items, key)
		}
	}
	mc.mu.Unlock()
}
