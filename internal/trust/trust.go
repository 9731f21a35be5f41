// Package trust decides whether forwarded host headers may be believed.
// Only requests arriving through trusted infrastructure hosts, carrying
// the shared proxy secret when one is configured, may resolve tenants
// through the visitor-hostname path.
package trust

import (
	"crypto/subtle"
	"log/slog"
	"strings"
)

// Platform-operated edge hosts, trusted regardless of configuration.
// localhost keeps local development working without an allowlist.
var firstPartyHosts = []string{
	"edge.blogview.app",
	"render.blogview.app",
	"localhost",
}

// Config holds the trust policy.
type Config struct {
	// Hosts lists additional trusted infrastructure hostnames. Entries
	// of the form "*.example.com" match any subdomain of example.com
	// but not example.com itself.
	Hosts []string

	// SharedSecret authenticates proxy-supplied headers. When empty,
	// authentication is skipped entirely; that fallback is insecure and
	// logged every time it runs.
	SharedSecret string

	Logger *slog.Logger
}

// Trust evaluates hostnames and proxy secrets against the policy.
type Trust struct {
	exact     map[string]struct{}
	wildcards []string
	secret    []byte
	logger    *slog.Logger
}

// Decision records why a hostname was or was not trusted.
type Decision struct {
	Trusted bool
	// Pattern is the allowlist entry that matched, for diagnostics.
	Pattern string
}

// New builds the trust policy from the config plus the built-in
// first-party hosts.
func New(config Config) *Trust {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	t := &Trust{
		exact:  make(map[string]struct{}),
		secret: []byte(config.SharedSecret),
		logger: logger,
	}
	for _, h := range firstPartyHosts {
		t.add(h)
	}
	for _, h := range config.Hosts {
		t.add(h)
	}

	if len(t.secret) == 0 {
		logger.Warn("no proxy shared secret configured, forwarded hosts will be accepted unauthenticated")
	}

	return t
}

func (t *Trust) add(entry string) {
	entry = strings.ToLower(strings.TrimSpace(entry))
	if entry == "" {
		return
	}
	if rest, ok := strings.CutPrefix(entry, "*."); ok {
		t.wildcards = append(t.wildcards, "."+rest)
		return
	}
	t.exact[entry] = struct{}{}
}

// TrustedHost reports whether the given hostname is trusted
// infrastructure. The host must already be normalized (lowercase, no
// port); extraction takes care of that.
func (t *Trust) TrustedHost(host string) Decision {
	host = strings.ToLower(strings.TrimSpace(host))
	if host == "" {
		return Decision{}
	}
	if _, ok := t.exact[host]; ok {
		return Decision{Trusted: true, Pattern: host}
	}
	for _, suffix := range t.wildcards {
		if strings.HasSuffix(host, suffix) {
			return Decision{Trusted: true, Pattern: "*" + suffix}
		}
	}
	return Decision{}
}

// SecretConfigured reports whether proxy authentication is enforced.
func (t *Trust) SecretConfigured() bool {
	return len(t.secret) > 0
}

// Authenticate checks the proxy secret presented with a request. The
// comparison is constant time. With no secret configured every request
// passes; each such pass is logged as a warning.
func (t *Trust) Authenticate(presented string) bool {
	if len(t.secret) == 0 {
		t.logger.Warn("accepting proxy request without authentication, no shared secret configured")
		return true
	}
	return subtle.ConstantTimeCompare(t.secret, []byte(presented)) == 1
}
