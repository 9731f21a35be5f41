package routing

import (
	"net/url"
	"strings"
)

// RouteType is the classified kind of a request path.
type RouteType string

const (
	// RouteHome is the root listing page.
	RouteHome RouteType = "home"
	// RoutePost is a post addressed under the /post/ prefix.
	RoutePost RouteType = "post"
	// RouteRootPost is a post addressed directly under the root, the
	// shape tenants with the root URL format publish.
	RouteRootPost RouteType = "root_post"
	// RouteTag is a tag listing page.
	RouteTag RouteType = "tag"
	// RouteTopics is a topic-group listing page.
	RouteTopics RouteType = "topics"
	// RouteSystem is a reserved platform path such as robots.txt.
	RouteSystem RouteType = "system"
	// RouteUnknown is a path no rule could interpret.
	RouteUnknown RouteType = "unknown"
)

// Route is the classification result.
type Route struct {
	Type RouteType
	// Slug is the URL-decoded subject of the route: the post slug, tag
	// name, or topic group. For system routes it holds the lowercased
	// reserved name. Empty for home and unknown.
	Slug string
}

// reservedSegments are single path segments that never address a post.
// The bare route prefixes are reserved too, so "/post" alone is a
// system path rather than a post called "post".
var reservedSegments = map[string]struct{}{
	"sitemap.xml":   {},
	"sitemap":       {},
	"robots.txt":    {},
	"favicon.ico":   {},
	"feed":          {},
	"feed.xml":      {},
	"rss":           {},
	"rss.xml":       {},
	"atom.xml":      {},
	"manifest.json": {},
	"archive":       {},
	"archives":      {},
	"category":      {},
	"categories":    {},
	"search":        {},
	"post":          {},
	"tag":           {},
	"topics":        {},
}

// Reserved reports whether a segment is a reserved system name.
// Matching is case-insensitive.
func Reserved(segment string) bool {
	_, ok := reservedSegments[strings.ToLower(segment)]
	return ok
}

// Classify maps a normalized path to a route. Rules are checked in
// priority order: home, the /post/, /tag/ and /topics/ prefixes,
// reserved single segments, then the root-post fallback. Unprefixed
// multi-segment paths also fall back to a root post, since slugs may
// contain slashes; paths with empty interior segments are unknown.
func Classify(path string) Route {
	if path == "" || path == "/" {
		return Route{Type: RouteHome}
	}
	trimmed := strings.TrimPrefix(path, "/")

	if rest, ok := strings.CutPrefix(trimmed, "post/"); ok {
		return Route{Type: RoutePost, Slug: decodeSlug(rest)}
	}
	if rest, ok := strings.CutPrefix(trimmed, "tag/"); ok {
		return Route{Type: RouteTag, Slug: decodeSlug(rest)}
	}
	if rest, ok := strings.CutPrefix(trimmed, "topics/"); ok {
		return Route{Type: RouteTopics, Slug: decodeSlug(rest)}
	}

	segments := strings.Split(trimmed, "/")
	for _, seg := range segments {
		if seg == "" {
			return Route{Type: RouteUnknown}
		}
	}
	if len(segments) == 1 && Reserved(segments[0]) {
		return Route{Type: RouteSystem, Slug: strings.ToLower(segments[0])}
	}
	return Route{Type: RouteRootPost, Slug: decodeSlug(trimmed)}
}

// decodeSlug percent-decodes a slug, keeping the raw text when the
// encoding is malformed so lookup still has something to try.
func decodeSlug(s string) string {
	if decoded, err := url.PathUnescape(s); err == nil {
		return decoded
	}
	return s
}
