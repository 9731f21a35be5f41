package trust

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrustedHost(t *testing.T) {
	tr := New(Config{
		Hosts:        []string{"proxy.customer.io", "*.edge.customer.io", "  SPACED.example.COM  "},
		SharedSecret: "s3cret",
	})

	tests := []struct {
		host    string
		trusted bool
		pattern string
	}{
		{"edge.blogview.app", true, "edge.blogview.app"},
		{"render.blogview.app", true, "render.blogview.app"},
		{"localhost", true, "localhost"},

		{"proxy.customer.io", true, "proxy.customer.io"},
		{"PROXY.CUSTOMER.IO", true, "proxy.customer.io"},
		{"spaced.example.com", true, "spaced.example.com"},

		{"a.edge.customer.io", true, "*.edge.customer.io"},
		{"deep.a.edge.customer.io", true, "*.edge.customer.io"},
		// The wildcard never matches its own apex.
		{"edge.customer.io", false, ""},

		{"evil.com", false, ""},
		{"blogview.app", false, ""},
		{"", false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			d := tr.TrustedHost(tt.host)
			assert.Equal(t, tt.trusted, d.Trusted)
			assert.Equal(t, tt.pattern, d.Pattern)
		})
	}
}

func TestAuthenticate(t *testing.T) {
	tr := New(Config{SharedSecret: "s3cret"})

	assert.True(t, tr.SecretConfigured())
	assert.True(t, tr.Authenticate("s3cret"))
	assert.False(t, tr.Authenticate("wrong"))
	assert.False(t, tr.Authenticate(""))
	assert.False(t, tr.Authenticate("s3cret "))
}

func TestAuthenticateWithoutSecret(t *testing.T) {
	tr := New(Config{})

	assert.False(t, tr.SecretConfigured())
	// Unauthenticated mode lets everything through.
	assert.True(t, tr.Authenticate(""))
	assert.True(t, tr.Authenticate("anything"))
}
