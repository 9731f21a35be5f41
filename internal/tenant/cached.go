package tenant

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"blogview/internal/cache"
	"blogview/internal/observability"
)

// Cache key prefixes, one per lookup kind. A hostname can appear under
// several kinds (a primary domain that is also someone's alias), so
// invalidation always clears all three.
const (
	keyPrimary = "tenant:primary:"
	keyAlias   = "tenant:alias:"
	keyVisitor = "tenant:visitor:"
)

// CachedStore wraps a Store with a short-TTL cache so the hot path does
// not hit Postgres on every request. Only successful resolutions are
// cached; lookups that fail stay live so new tenants appear immediately.
type CachedStore struct {
	inner   Store
	cache   cache.Cache
	ttl     time.Duration
	logger  *slog.Logger
	metrics *observability.CacheMetrics
}

// CachedStoreConfig configures the caching decorator.
type CachedStoreConfig struct {
	// TTL bounds how stale a resolved tenant may be served. Explicit
	// invalidation cuts the window short.
	TTL     time.Duration
	Logger  *slog.Logger
	Metrics *observability.CacheMetrics
}

// NewCachedStore wraps inner with the given cache.
func NewCachedStore(inner Store, c cache.Cache, config *CachedStoreConfig) *CachedStore {
	if config == nil {
		config = &CachedStoreConfig{}
	}
	ttl := config.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedStore{
		inner:   inner,
		cache:   c,
		ttl:     ttl,
		logger:  logger,
		metrics: config.Metrics,
	}
}

// ByPrimaryDomain implements Store.
func (s *CachedStore) ByPrimaryDomain(ctx context.Context, domain string) (*Tenant, error) {
	return s.lookup(ctx, keyPrimary, NormalizeHost(domain), s.inner.ByPrimaryDomain)
}

// ByAlias implements Store.
func (s *CachedStore) ByAlias(ctx context.Context, domain string) (*Tenant, error) {
	return s.lookup(ctx, keyAlias, NormalizeHost(domain), s.inner.ByAlias)
}

// ByVisitorHostname implements Store.
func (s *CachedStore) ByVisitorHostname(ctx context.Context, host string) (*Tenant, error) {
	return s.lookup(ctx, keyVisitor, NormalizeHost(host), s.inner.ByVisitorHostname)
}

// Invalidate drops every cached resolution for the given hostname.
func (s *CachedStore) Invalidate(ctx context.Context, host string) error {
	host = NormalizeHost(host)
	return s.cache.Delete(ctx, keyPrimary+host, keyAlias+host, keyVisitor+host)
}

// InvalidateTenant drops cached resolutions for every hostname the
// tenant can be reached by.
func (s *CachedStore) InvalidateTenant(ctx context.Context, t *Tenant) error {
	var firstErr error
	for _, host := range t.Hosts() {
		if err := s.Invalidate(ctx, host); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *CachedStore) lookup(ctx context.Context, prefix, host string, fetch func(context.Context, string) (*Tenant, error)) (*Tenant, error) {
	key := prefix + host

	if data, err := s.cache.Get(ctx, key); err == nil {
		var t Tenant
		if jerr := json.Unmarshal(data, &t); jerr == nil {
			s.record(true)
			return &t, nil
		}
		s.logger.Warn("dropping undecodable cached tenant", "key", key)
		_ = s.cache.Delete(ctx, key)
	}
	s.record(false)

	t, err := fetch(ctx, host)
	if err != nil {
		return nil, err
	}

	if data, merr := json.Marshal(t); merr == nil {
		if serr := s.cache.Set(ctx, key, data, s.ttl); serr != nil {
			s.logger.Warn("tenant cache store failed", "key", key, "error", serr)
		}
	}
	return t, nil
}

func (s *CachedStore) record(hit bool) {
	if s.metrics == nil {
		return
	}
	if hit {
		s.metrics.Hits.WithLabelValues("tenant").Inc()
	} else {
		s.metrics.Misses.WithLabelValues("tenant").Inc()
	}
}
