package resolve

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLookupHost(t *testing.T) {
	tests := []struct {
		name    string
		host    string
		headers map[string]string
		want    string
	}{
		{"host header", "Blog.Example.com", nil, "blog.example.com"},
		{"port stripped", "blog.example.com:8443", nil, "blog.example.com"},
		{"original host fallback", "", map[string]string{HeaderOriginalHost: "orig.example.com"}, "orig.example.com"},
		{"real host fallback", "", map[string]string{HeaderRealHost: "real.example.com"}, "real.example.com"},
		{"host beats original host", "blog.example.com", map[string]string{HeaderOriginalHost: "orig.example.com"}, "blog.example.com"},
		{"nothing", "", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.Host = tt.host
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, LookupHost(r))
		})
	}
}

func TestVisitorHost(t *testing.T) {
	tests := []struct {
		name    string
		host    string
		headers map[string]string
		want    string
	}{
		{"platform header wins", "render.blogview.app", map[string]string{
			HeaderVisitorHost:   "WWW.Customer.com:443",
			HeaderForwardedHost: "other.customer.com",
		}, "www.customer.com"},
		{"forwarded host first entry", "render.blogview.app", map[string]string{
			HeaderForwardedHost: "www.customer.com, render.blogview.app",
		}, "www.customer.com"},
		{"falls back to lookup host", "blog.example.com", nil, "blog.example.com"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.Host = tt.host
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, VisitorHost(r))
		})
	}
}

// The two extractions answer different questions and must not bleed
// into each other: a forwarded visitor hostname never changes which
// host the primary and alias lookups run against.
func TestLookupHostIgnoresVisitorHeaders(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.Host = "render.blogview.app"
	r.Header.Set(HeaderVisitorHost, "www.customer.com")
	r.Header.Set(HeaderForwardedHost, "www.customer.com")

	assert.Equal(t, "render.blogview.app", LookupHost(r))
	assert.Equal(t, "www.customer.com", VisitorHost(r))
}
