// Package resolve maps incoming requests to tenants. It extracts the
// two distinct host claims a request carries and probes the tenant
// store in a fixed order: primary domain, alias, then the guarded
// proxy visitor-hostname path.
package resolve

import (
	"net/http"
	"strings"

	"blogview/internal/tenant"
)

// Header names used by platform infrastructure and customer proxies.
const (
	HeaderOriginalHost  = "X-Original-Host"
	HeaderRealHost      = "X-Real-Host"
	HeaderVisitorHost   = "X-BV-Visitor-Host"
	HeaderForwardedHost = "X-Forwarded-Host"
	HeaderProxySecret   = "X-BV-Proxy-Secret"
)

// LookupHost extracts the hostname used for primary-domain and alias
// lookups: the Host header first, then the platform forwarding headers,
// then the URL's host field. The result is lowercase with any port
// stripped.
func LookupHost(r *http.Request) string {
	candidates := []string{
		r.Host,
		r.Header.Get(HeaderOriginalHost),
		r.Header.Get(HeaderRealHost),
		r.URL.Host,
	}
	for _, c := range candidates {
		if h := tenant.NormalizeHost(c); h != "" {
			return h
		}
	}
	return ""
}

// VisitorHost extracts the hostname the visitor's browser actually
// addressed. Proxies forward it in X-BV-Visitor-Host; X-Forwarded-Host
// is honored for generic proxies, first entry only. Without either the
// claim falls back to the same chain as LookupHost.
//
// The two extractions stay separate on purpose: lookup identifies the
// infrastructure host the request arrived through, visitor identifies
// the audience-facing site. Proxy-mode tenants differ in exactly that.
func VisitorHost(r *http.Request) string {
	if h := tenant.NormalizeHost(r.Header.Get(HeaderVisitorHost)); h != "" {
		return h
	}
	if fwd := r.Header.Get(HeaderForwardedHost); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if h := tenant.NormalizeHost(first); h != "" {
			return h
		}
	}
	return LookupHost(r)
}
