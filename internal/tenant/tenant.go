// Package tenant defines the tenant model and the lookup stores used to
// resolve incoming hosts to a tenant. A tenant is one publication on the
// platform: it owns a primary domain, optional alias domains, and in
// reverse-proxy deployments a visitor-facing hostname that the proxy
// forwards on behalf of.
package tenant

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DeploymentMode describes how a tenant's traffic reaches the platform.
type DeploymentMode string

const (
	// ModeStandalone serves the tenant directly on its own domain.
	ModeStandalone DeploymentMode = "standalone"
	// ModeReverseProxy serves the tenant behind a customer-operated proxy
	// that forwards the visitor-facing hostname in a header.
	ModeReverseProxy DeploymentMode = "reverse_proxy"
)

// PostURLFormat selects the canonical URL shape for a tenant's posts.
type PostURLFormat string

const (
	// FormatWithPrefix canonicalizes posts under basePath/post/<slug>.
	FormatWithPrefix PostURLFormat = "with-prefix"
	// FormatRoot canonicalizes posts directly under basePath/<slug>.
	FormatRoot PostURLFormat = "root"
)

// Tenant is one publication and its routing configuration.
type Tenant struct {
	ID                   uuid.UUID      `json:"id"`
	Title                string         `json:"title"`
	Description          string         `json:"description"`
	Language             string         `json:"language"`
	PrimaryDomain        string         `json:"primary_domain"`
	DomainAliases        []string       `json:"domain_aliases"`
	BasePath             string         `json:"base_path"`
	DeploymentMode       DeploymentMode `json:"deployment_mode"`
	ProxyVisitorHostname string         `json:"proxy_visitor_hostname"`
	PostURLFormat        PostURLFormat  `json:"post_url_format"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
}

// NormalizeBasePath canonicalizes a configured base path: empty and "/"
// both mean "no prefix", everything else gets exactly one leading slash
// and no trailing slash.
func NormalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" || p == "/" {
		return ""
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return strings.TrimRight(p, "/")
}

// NormalizeHost lowercases a hostname and strips any port suffix so that
// stored domains compare cleanly against extracted request hosts.
func NormalizeHost(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	if h == "" {
		return ""
	}
	// Bracketed IPv6 hosts keep their brackets, ports after them go.
	if strings.HasPrefix(h, "[") {
		if end := strings.Index(h, "]"); end >= 0 {
			return h[:end+1]
		}
		return h
	}
	if i := strings.LastIndex(h, ":"); i >= 0 && !strings.Contains(h[i+1:], ":") {
		return h[:i]
	}
	return h
}

// Normalize brings user-supplied configuration into canonical form and
// fills defaults. It is applied before persisting and after loading so
// lookups never depend on how a tenant was typed in.
func (t *Tenant) Normalize() {
	t.Title = strings.TrimSpace(t.Title)
	t.PrimaryDomain = NormalizeHost(t.PrimaryDomain)
	t.ProxyVisitorHostname = NormalizeHost(t.ProxyVisitorHostname)
	t.BasePath = NormalizeBasePath(t.BasePath)

	aliases := make([]string, 0, len(t.DomainAliases))
	seen := map[string]struct{}{t.PrimaryDomain: {}}
	for _, a := range t.DomainAliases {
		a = NormalizeHost(a)
		if a == "" {
			continue
		}
		if _, dup := seen[a]; dup {
			continue
		}
		seen[a] = struct{}{}
		aliases = append(aliases, a)
	}
	t.DomainAliases = aliases

	if t.Language == "" {
		t.Language = "en"
	}
	if t.DeploymentMode == "" {
		t.DeploymentMode = ModeStandalone
	}
	if t.PostURLFormat == "" {
		t.PostURLFormat = FormatWithPrefix
	}
}

// Validate checks that a tenant is resolvable at all: it needs at least
// one hostname that traffic can arrive on, and its enums must hold known
// values.
func (t *Tenant) Validate() error {
	if t.Title == "" {
		return fmt.Errorf("tenant: title is required")
	}
	switch t.DeploymentMode {
	case ModeStandalone, ModeReverseProxy:
	default:
		return fmt.Errorf("tenant: unknown deployment mode %q", t.DeploymentMode)
	}
	switch t.PostURLFormat {
	case FormatWithPrefix, FormatRoot:
	default:
		return fmt.Errorf("tenant: unknown post URL format %q", t.PostURLFormat)
	}
	if t.PrimaryDomain == "" && !(t.DeploymentMode == ModeReverseProxy && t.ProxyVisitorHostname != "") {
		return fmt.Errorf("tenant: a primary domain or a proxy visitor hostname is required")
	}
	if t.DeploymentMode == ModeReverseProxy && t.ProxyVisitorHostname == "" {
		return fmt.Errorf("tenant: reverse-proxy tenants need a proxy visitor hostname")
	}
	return nil
}

// Hosts returns every hostname this tenant can be looked up by. Cache
// invalidation uses it to clear all keys that may hold the tenant.
func (t *Tenant) Hosts() []string {
	hosts := make([]string, 0, len(t.DomainAliases)+2)
	if t.PrimaryDomain != "" {
		hosts = append(hosts, t.PrimaryDomain)
	}
	hosts = append(hosts, t.DomainAliases...)
	if t.ProxyVisitorHostname != "" {
		hosts = append(hosts, t.ProxyVisitorHostname)
	}
	return hosts
}

// CanonicalHost picks the hostname used when composing canonical URLs:
// the primary domain when configured, otherwise the proxy visitor
// hostname for reverse-proxy tenants, otherwise the host the visitor
// actually arrived on.
func (t *Tenant) CanonicalHost(visitorHost string) string {
	if t.PrimaryDomain != "" {
		return t.PrimaryDomain
	}
	if t.DeploymentMode == ModeReverseProxy && t.ProxyVisitorHostname != "" {
		return t.ProxyVisitorHostname
	}
	return NormalizeHost(visitorHost)
}
