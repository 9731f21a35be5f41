package tenant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeHost(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Blog.Example.com", "blog.example.com"},
		{"  blog.example.com  ", "blog.example.com"},
		{"blog.example.com:8443", "blog.example.com"},
		{"localhost:3000", "localhost"},
		{"[::1]:8080", "[::1]"},
		{"[2001:db8::1]", "[2001:db8::1]"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeHost(tt.in), "input %q", tt.in)
	}
}

func TestNormalizeBasePath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"/", ""},
		{"blog", "/blog"},
		{"/blog", "/blog"},
		{"/blog/", "/blog"},
		{"/blog//", "/blog"},
		{" /blog ", "/blog"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeBasePath(tt.in), "input %q", tt.in)
	}
}

func TestTenantNormalize(t *testing.T) {
	tr := &Tenant{
		Title:         "  Acme Blog  ",
		PrimaryDomain: "Blog.Acme.COM:443",
		DomainAliases: []string{"WWW.acme.com", "www.acme.com", "blog.acme.com", ""},
		BasePath:      "blog/",
	}
	tr.Normalize()

	assert.Equal(t, "Acme Blog", tr.Title)
	assert.Equal(t, "blog.acme.com", tr.PrimaryDomain)
	// Duplicates and the primary domain itself drop out of the aliases.
	assert.Equal(t, []string{"www.acme.com"}, tr.DomainAliases)
	assert.Equal(t, "/blog", tr.BasePath)
	assert.Equal(t, "en", tr.Language)
	assert.Equal(t, ModeStandalone, tr.DeploymentMode)
	assert.Equal(t, FormatWithPrefix, tr.PostURLFormat)
}

func TestTenantValidate(t *testing.T) {
	valid := func() *Tenant {
		tr := &Tenant{Title: "Acme", PrimaryDomain: "acme.com"}
		tr.Normalize()
		return tr
	}

	require.NoError(t, valid().Validate())

	tr := valid()
	tr.Title = ""
	assert.Error(t, tr.Validate())

	tr = valid()
	tr.DeploymentMode = "sidecar"
	assert.Error(t, tr.Validate())

	tr = valid()
	tr.PostURLFormat = "nested"
	assert.Error(t, tr.Validate())

	tr = valid()
	tr.PrimaryDomain = ""
	assert.Error(t, tr.Validate(), "no hostname to arrive on")

	proxied := &Tenant{
		Title:                "Acme",
		DeploymentMode:       ModeReverseProxy,
		ProxyVisitorHostname: "www.acme.com",
	}
	proxied.Normalize()
	assert.NoError(t, proxied.Validate(), "proxy tenants need no primary domain")

	proxied.ProxyVisitorHostname = ""
	assert.Error(t, proxied.Validate())
}

func TestTenantHosts(t *testing.T) {
	tr := &Tenant{
		PrimaryDomain:        "acme.com",
		DomainAliases:        []string{"www.acme.com"},
		ProxyVisitorHostname: "blog.acme.com",
	}
	assert.Equal(t, []string{"acme.com", "www.acme.com", "blog.acme.com"}, tr.Hosts())

	assert.Empty(t, (&Tenant{}).Hosts())
}

func TestCanonicalHost(t *testing.T) {
	withPrimary := &Tenant{PrimaryDomain: "acme.com", ProxyVisitorHostname: "www.acme.com", DeploymentMode: ModeReverseProxy}
	assert.Equal(t, "acme.com", withPrimary.CanonicalHost("whatever.com"))

	proxied := &Tenant{DeploymentMode: ModeReverseProxy, ProxyVisitorHostname: "www.acme.com"}
	assert.Equal(t, "www.acme.com", proxied.CanonicalHost("whatever.com"))

	bare := &Tenant{}
	assert.Equal(t, "arrived.example.com", bare.CanonicalHost("Arrived.Example.com:8443"))
}
