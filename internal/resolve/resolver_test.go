package resolve

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"blogview/internal/tenant"
	"blogview/internal/trust"
)

type fakeStore struct {
	primary map[string]*tenant.Tenant
	alias   map[string]*tenant.Tenant
	visitor map[string]*tenant.Tenant

	// err, when set, is returned by the named step instead of a lookup.
	errStep string
	err     error

	probes []string
}

func (f *fakeStore) lookup(step string, m map[string]*tenant.Tenant, host string) (*tenant.Tenant, error) {
	f.probes = append(f.probes, step+":"+host)
	if f.err != nil && f.errStep == step {
		return nil, f.err
	}
	if t, ok := m[host]; ok {
		return t, nil
	}
	return nil, tenant.ErrNotFound
}

func (f *fakeStore) ByPrimaryDomain(ctx context.Context, domain string) (*tenant.Tenant, error) {
	return f.lookup("primary", f.primary, domain)
}

func (f *fakeStore) ByAlias(ctx context.Context, domain string) (*tenant.Tenant, error) {
	return f.lookup("alias", f.alias, domain)
}

func (f *fakeStore) ByVisitorHostname(ctx context.Context, host string) (*tenant.Tenant, error) {
	return f.lookup("visitor", f.visitor, host)
}

func testTenant(title string) *tenant.Tenant {
	return &tenant.Tenant{Title: title, PrimaryDomain: title + ".example.com"}
}

func newTestResolver(store tenant.Store, secret string) *Resolver {
	return New(Config{
		Store: store,
		Trust: trust.New(trust.Config{
			Hosts:        []string{"proxy.local"},
			SharedSecret: secret,
		}),
	})
}

func TestResolvePrimaryWins(t *testing.T) {
	want := testTenant("acme")
	store := &fakeStore{primary: map[string]*tenant.Tenant{"acme.example.com": want}}
	r := newTestResolver(store, "")

	got, src := r.Resolve(context.Background(), "acme.example.com", "", "")

	assert.Same(t, want, got)
	assert.Equal(t, SourcePrimary, src)
	assert.Equal(t, []string{"primary:acme.example.com"}, store.probes)
}

func TestResolveAliasAfterPrimaryMiss(t *testing.T) {
	want := testTenant("acme")
	store := &fakeStore{alias: map[string]*tenant.Tenant{"www.acme.example.com": want}}
	r := newTestResolver(store, "")

	got, src := r.Resolve(context.Background(), "www.acme.example.com", "", "")

	assert.Same(t, want, got)
	assert.Equal(t, SourceAlias, src)
	assert.Equal(t, []string{
		"primary:www.acme.example.com",
		"alias:www.acme.example.com",
	}, store.probes)
}

func TestResolveProxyPath(t *testing.T) {
	want := testTenant("acme")
	store := &fakeStore{visitor: map[string]*tenant.Tenant{"www.customer.com": want}}
	r := newTestResolver(store, "s3cret")

	got, src := r.Resolve(context.Background(), "proxy.local", "www.customer.com", "s3cret")

	assert.Same(t, want, got)
	assert.Equal(t, SourceProxy, src)
	assert.Equal(t, []string{
		"primary:proxy.local",
		"alias:proxy.local",
		"visitor:www.customer.com",
	}, store.probes)
}

func TestResolveIgnoresVisitorFromUntrustedHost(t *testing.T) {
	store := &fakeStore{visitor: map[string]*tenant.Tenant{"www.customer.com": testTenant("acme")}}
	r := newTestResolver(store, "s3cret")

	got, src := r.Resolve(context.Background(), "evil.com", "www.customer.com", "s3cret")

	assert.Nil(t, got)
	assert.Equal(t, SourceNone, src)
	// The visitor hostname must not even reach the store.
	assert.NotContains(t, store.probes, "visitor:www.customer.com")
}

func TestResolveRejectsBadProxySecret(t *testing.T) {
	store := &fakeStore{visitor: map[string]*tenant.Tenant{"www.customer.com": testTenant("acme")}}
	r := newTestResolver(store, "s3cret")

	got, src := r.Resolve(context.Background(), "proxy.local", "www.customer.com", "wrong")

	assert.Nil(t, got)
	assert.Equal(t, SourceNone, src)
	assert.NotContains(t, store.probes, "visitor:www.customer.com")
}

func TestResolveWithoutVisitorHost(t *testing.T) {
	store := &fakeStore{}
	r := newTestResolver(store, "")

	got, src := r.Resolve(context.Background(), "unknown.example.com", "", "")

	assert.Nil(t, got)
	assert.Equal(t, SourceNone, src)
	assert.Equal(t, []string{
		"primary:unknown.example.com",
		"alias:unknown.example.com",
	}, store.probes)
}

func TestResolveEmptyLookupHostSkipsDomainSteps(t *testing.T) {
	store := &fakeStore{}
	r := newTestResolver(store, "")

	got, src := r.Resolve(context.Background(), "", "www.customer.com", "")

	// An empty lookup host is never trusted infrastructure, so the
	// visitor claim dies here too.
	assert.Nil(t, got)
	assert.Equal(t, SourceNone, src)
	assert.Empty(t, store.probes)
}

// An ambiguous match is a configuration error. Continuing to the next
// step could silently serve the wrong site.
func TestResolveStopsOnAmbiguity(t *testing.T) {
	store := &fakeStore{
		errStep: "primary",
		err:     tenant.ErrAmbiguous,
		alias:   map[string]*tenant.Tenant{"acme.example.com": testTenant("acme")},
	}
	r := newTestResolver(store, "")

	got, src := r.Resolve(context.Background(), "acme.example.com", "", "")

	assert.Nil(t, got)
	assert.Equal(t, SourceNone, src)
	assert.Equal(t, []string{"primary:acme.example.com"}, store.probes)
}

func TestResolveStopsOnStoreFailure(t *testing.T) {
	store := &fakeStore{
		errStep: "alias",
		err:     errors.New("connection refused"),
		visitor: map[string]*tenant.Tenant{"www.customer.com": testTenant("acme")},
	}
	r := newTestResolver(store, "")

	got, src := r.Resolve(context.Background(), "proxy.local", "www.customer.com", "")

	assert.Nil(t, got)
	assert.Equal(t, SourceNone, src)
	assert.NotContains(t, store.probes, "visitor:www.customer.com")
}
