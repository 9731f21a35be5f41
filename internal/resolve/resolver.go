package resolve

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"blogview/internal/observability"
	"blogview/internal/tenant"
	"blogview/internal/trust"
)

// Source tells which lookup step produced the tenant.
type Source string

const (
	SourcePrimary Source = "primary"
	SourceAlias   Source = "alias"
	SourceProxy   Source = "proxy"
	SourceNone    Source = "none"
)

// Config wires the resolver.
type Config struct {
	Store  tenant.Store
	Trust  *trust.Trust
	Logger *slog.Logger

	// LookupTimeout bounds each store probe individually.
	LookupTimeout time.Duration

	Metrics *observability.Metrics
}

// Resolver decides which tenant a request belongs to.
type Resolver struct {
	store   tenant.Store
	trust   *trust.Trust
	logger  *slog.Logger
	timeout time.Duration
	metrics *observability.Metrics
}

// New creates a resolver.
func New(config Config) *Resolver {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := config.LookupTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Resolver{
		store:   config.Store,
		trust:   config.Trust,
		logger:  logger,
		timeout: timeout,
		metrics: config.Metrics,
	}
}

// Resolve runs the lookup sequence for the two extracted host claims.
// Steps, in order and short-circuiting on a match:
//
//  1. lookup host as a primary domain
//  2. lookup host as a domain alias
//  3. visitor host against proxy-mode tenants, but only when the
//     lookup host is trusted infrastructure and the proxy secret
//     checks out
//
// The visitor host never feeds steps 1 and 2, and the lookup host never
// feeds step 3. A nil tenant with SourceNone means the caller serves
// the generic response; failed trust checks land there too, so probing
// the proxy path reveals nothing.
func (r *Resolver) Resolve(ctx context.Context, lookupHost, visitorHost, proxySecret string) (*tenant.Tenant, Source) {
	t, src := r.resolve(ctx, lookupHost, visitorHost, proxySecret)
	if r.metrics != nil {
		r.metrics.ResolutionsTotal.WithLabelValues(string(src)).Inc()
	}
	return t, src
}

func (r *Resolver) resolve(ctx context.Context, lookupHost, visitorHost, proxySecret string) (*tenant.Tenant, Source) {
	if lookupHost != "" {
		t, err := r.step(ctx, lookupHost, r.store.ByPrimaryDomain)
		if err == nil {
			r.logger.Debug("tenant resolved", "src", SourcePrimary, "host", lookupHost)
			return t, SourcePrimary
		}
		if !r.missing("primary", lookupHost, err) {
			return nil, SourceNone
		}

		t, err = r.step(ctx, lookupHost, r.store.ByAlias)
		if err == nil {
			r.logger.Debug("tenant resolved", "src", SourceAlias, "host", lookupHost)
			return t, SourceAlias
		}
		if !r.missing("alias", lookupHost, err) {
			return nil, SourceNone
		}
	}

	if visitorHost == "" {
		return nil, SourceNone
	}

	decision := r.trust.TrustedHost(lookupHost)
	if !decision.Trusted {
		r.logger.Debug("visitor hostname ignored, lookup host is not trusted infrastructure",
			"lookup_host", lookupHost, "visitor_host", visitorHost)
		return nil, SourceNone
	}
	if !r.trust.Authenticate(proxySecret) {
		r.logger.Warn("proxy secret rejected",
			"lookup_host", lookupHost, "visitor_host", visitorHost)
		return nil, SourceNone
	}

	t, err := r.step(ctx, visitorHost, r.store.ByVisitorHostname)
	if err == nil {
		if !r.trust.SecretConfigured() {
			r.logger.Warn("proxy tenant resolved without authentication",
				"visitor_host", visitorHost, "matched", decision.Pattern)
		}
		r.logger.Debug("tenant resolved", "src", SourceProxy, "host", visitorHost)
		return t, SourceProxy
	}
	r.missing("visitor", visitorHost, err)
	return nil, SourceNone
}

func (r *Resolver) step(ctx context.Context, host string, lookup func(context.Context, string) (*tenant.Tenant, error)) (*tenant.Tenant, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return lookup(ctx, host)
}

// missing reports whether err means "no such tenant" and the sequence
// may continue. Ambiguous matches and store failures stop resolution:
// the former is a configuration error that must never pick a winner,
// the latter leaves the store's health unknown.
func (r *Resolver) missing(step, host string, err error) bool {
	switch {
	case errors.Is(err, tenant.ErrNotFound):
		return true
	case errors.Is(err, tenant.ErrAmbiguous):
		r.logger.Error("ambiguous tenant lookup", "step", step, "host", host)
		return false
	default:
		r.logger.Warn("tenant lookup failed", "step", step, "host", host, "error", err)
		return false
	}
}
