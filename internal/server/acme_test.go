package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blogview/internal/tenant"
)

type policyStore struct {
	primary map[string]*tenant.Tenant
	alias   map[string]*tenant.Tenant
	visitor map[string]*tenant.Tenant
	err     error
}

func (s *policyStore) find(m map[string]*tenant.Tenant, host string) (*tenant.Tenant, error) {
	if s.err != nil {
		return nil, s.err
	}
	if t, ok := m[host]; ok {
		return t, nil
	}
	return nil, tenant.ErrNotFound
}

func (s *policyStore) ByPrimaryDomain(ctx context.Context, domain string) (*tenant.Tenant, error) {
	return s.find(s.primary, domain)
}

func (s *policyStore) ByAlias(ctx context.Context, domain string) (*tenant.Tenant, error) {
	return s.find(s.alias, domain)
}

func (s *policyStore) ByVisitorHostname(ctx context.Context, host string) (*tenant.Tenant, error) {
	return s.find(s.visitor, host)
}

func TestTenantHostPolicy(t *testing.T) {
	store := &policyStore{
		primary: map[string]*tenant.Tenant{"acme.com": {Title: "Acme"}},
		alias:   map[string]*tenant.Tenant{"www.acme.com": {Title: "Acme"}},
		visitor: map[string]*tenant.Tenant{"blog.customer.io": {Title: "Proxied"}},
	}
	policy := TenantHostPolicy(store, time.Second, nil)
	ctx := context.Background()

	assert.NoError(t, policy(ctx, "acme.com"))
	assert.NoError(t, policy(ctx, "www.acme.com"))

	err := policy(ctx, "stranger.example")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not served here")

	// TLS for proxied tenants terminates at the customer's proxy. A
	// certificate for their hostname must never be requested here.
	err = policy(ctx, "blog.customer.io")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not served here")
}

func TestTenantHostPolicyDeniesOnStoreFailure(t *testing.T) {
	infra := errors.New("connection refused")
	policy := TenantHostPolicy(&policyStore{err: infra}, time.Second, nil)

	err := policy(context.Background(), "acme.com")
	require.Error(t, err)
	assert.ErrorIs(t, err, infra)
	assert.NotContains(t, err.Error(), "not served here")
}
