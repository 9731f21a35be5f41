package routing

import (
	"net/url"
	"strings"

	"blogview/internal/tenant"
)

// CanonicalPostPath builds the canonical path for a post slug under the
// tenant's configured URL format. Slug segments are re-escaped; empty
// segments are dropped so the result can never start with "//" and get
// read as a scheme-relative URL.
func CanonicalPostPath(format tenant.PostURLFormat, basePath, slug string) string {
	if format == tenant.FormatRoot {
		return JoinPath(basePath, slug)
	}
	return JoinPath(basePath, "post", slug)
}

// DecideRedirect reports whether a classified route must be redirected
// to the tenant's canonical post URL shape, and the path to send the
// visitor to. Both directions are covered: prefixed posts on root-format
// tenants and root posts on prefix-format tenants. Slugs that collide
// with reserved system names stay where they are, a redirect would make
// them unreachable. The decision is idempotent: classifying the target
// never yields another redirect.
func DecideRedirect(route Route, format tenant.PostURLFormat, basePath string) (string, bool) {
	if route.Slug == "" || Reserved(route.Slug) {
		return "", false
	}
	switch route.Type {
	case RoutePost:
		if format == tenant.FormatRoot && !collidesAtRoot(route.Slug) {
			return CanonicalPostPath(format, basePath, route.Slug), true
		}
	case RouteRootPost:
		if format == tenant.FormatWithPrefix {
			return CanonicalPostPath(format, basePath, route.Slug), true
		}
	}
	return "", false
}

// collidesAtRoot reports whether a slug placed directly under the root
// would be captured by a route prefix or reserved name before post
// lookup ever saw it. "tag/foo" at the root is a tag page, not a post.
func collidesAtRoot(slug string) bool {
	first, _, _ := strings.Cut(slug, "/")
	return Reserved(first)
}

// ReachablePostPath returns the canonical path for a post slug, keeping
// the /post/ prefix when the root-format shape would collide with a
// reserved name or route prefix. Listings, sitemaps, and feeds link
// through it so every published URL actually reaches the post.
func ReachablePostPath(format tenant.PostURLFormat, basePath, slug string) string {
	if format == tenant.FormatRoot && collidesAtRoot(slug) {
		return JoinPath(basePath, "post", slug)
	}
	return CanonicalPostPath(format, basePath, slug)
}

// JoinPath joins path fragments into a rooted path, percent-escaping
// each segment and dropping empty ones.
func JoinPath(parts ...string) string {
	var b strings.Builder
	for _, part := range parts {
		for _, seg := range strings.Split(part, "/") {
			if seg == "" {
				continue
			}
			b.WriteByte('/')
			b.WriteString(url.PathEscape(seg))
		}
	}
	if b.Len() == 0 {
		return "/"
	}
	return b.String()
}
