package seo

import (
	"encoding/json"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	"blogview/internal/content"
	"blogview/internal/routing"
	"blogview/internal/tenant"
)

// Meta is the composed head metadata for one page.
type Meta struct {
	Title       string
	Description string
	Canonical   string
	SiteName    string
	Language    string
	NoIndex     bool
	OGType      string
	Image       string
	Published   time.Time
	Modified    time.Time
	Tags        []string
}

// ComposerConfig configures metadata composition.
type ComposerConfig struct {
	// Protocol for absolute URLs, normally https. Local development
	// overrides it to http.
	Protocol string
	Logger   *slog.Logger
}

// Composer builds Meta values for resolved pages.
type Composer struct {
	protocol string
	logger   *slog.Logger
}

// NewComposer creates a composer.
func NewComposer(config *ComposerConfig) *Composer {
	if config == nil {
		config = &ComposerConfig{}
	}
	protocol := config.Protocol
	if protocol == "" {
		protocol = "https"
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Composer{protocol: protocol, logger: logger}
}

// Compose builds the metadata for a classified route. post is nil on
// listing and system pages. visitorHost feeds the canonical-domain
// fallback for tenants with neither a primary domain nor a configured
// proxy hostname.
func (c *Composer) Compose(t *tenant.Tenant, route routing.Route, post *content.Post, visitorHost string) Meta {
	m := Meta{
		SiteName: t.Title,
		Language: t.Language,
		OGType:   "website",
	}

	host := t.CanonicalHost(visitorHost)
	m.Canonical = c.protocol + "://" + host + canonicalPath(t, route)

	switch route.Type {
	case routing.RoutePost, routing.RouteRootPost:
		if post != nil {
			m.Title = fmt.Sprintf("%s | %s", post.DisplayTitle(), t.Title)
			m.Description = post.MetaDescription
			if m.Description == "" {
				m.Description = Describe(post.Body, DescriptionLimit)
			}
			m.OGType = "article"
			m.Image = post.CoverImage
			m.NoIndex = post.NoIndex
			m.Published = post.PublishedAt
			m.Modified = post.UpdatedAt
			m.Tags = post.Tags
			return m
		}
		// Post route without content renders the home listing.
		m.Title = t.Title
		m.Description = t.Description
	case routing.RouteTag, routing.RouteTopics:
		m.Title = fmt.Sprintf("%s - %s", route.Slug, t.Title)
		m.Description = t.Description
	default:
		m.Title = t.Title
		m.Description = t.Description
	}
	return m
}

// Origin returns the scheme and canonical host for the tenant, with no
// trailing slash. System documents like sitemaps and feeds build their
// absolute URLs from it.
func (c *Composer) Origin(t *tenant.Tenant, visitorHost string) string {
	return c.protocol + "://" + t.CanonicalHost(visitorHost)
}

// canonicalPath reconstructs the canonical path for the route under the
// tenant's base path and URL format. Post slugs collapse to the
// configured format except where that shape is unreachable behind a
// reserved name, which keeps the post prefix.
func canonicalPath(t *tenant.Tenant, route routing.Route) string {
	switch route.Type {
	case routing.RoutePost, routing.RouteRootPost:
		return routing.ReachablePostPath(t.PostURLFormat, t.BasePath, route.Slug)
	case routing.RouteTag:
		return routing.JoinPath(t.BasePath, "tag", route.Slug)
	case routing.RouteTopics:
		return routing.JoinPath(t.BasePath, "topics", route.Slug)
	case routing.RouteSystem:
		return routing.JoinPath(t.BasePath, route.Slug)
	default:
		if t.BasePath == "" {
			return "/"
		}
		return t.BasePath
	}
}

// HeadHTML renders the metadata as head markup. Every interpolated
// string is HTML-escaped here, whatever upstream produced it.
func (m Meta) HeadHTML() string {
	var b strings.Builder

	b.WriteString("<title>" + html.EscapeString(m.Title) + "</title>\n")
	if m.Description != "" {
		writeMeta(&b, "description", m.Description)
	}
	if m.NoIndex {
		writeMeta(&b, "robots", "noindex")
	}
	b.WriteString(`<link rel="canonical" href="` + html.EscapeString(m.Canonical) + "\">\n")

	writeProperty(&b, "og:title", m.Title)
	if m.Description != "" {
		writeProperty(&b, "og:description", m.Description)
	}
	writeProperty(&b, "og:type", m.OGType)
	writeProperty(&b, "og:url", m.Canonical)
	writeProperty(&b, "og:site_name", m.SiteName)
	if m.Language != "" {
		writeProperty(&b, "og:locale", m.Language)
	}
	if m.Image != "" {
		writeProperty(&b, "og:image", m.Image)
	}
	if m.OGType == "article" {
		if !m.Published.IsZero() {
			writeProperty(&b, "article:published_time", m.Published.Format(time.RFC3339))
		}
		if !m.Modified.IsZero() {
			writeProperty(&b, "article:modified_time", m.Modified.Format(time.RFC3339))
		}
		for _, tag := range m.Tags {
			writeProperty(&b, "article:tag", tag)
		}
	}

	card := "summary"
	if m.Image != "" {
		card = "summary_large_image"
	}
	writeMeta(&b, "twitter:card", card)
	writeMeta(&b, "twitter:title", m.Title)
	if m.Description != "" {
		writeMeta(&b, "twitter:description", m.Description)
	}
	if m.Image != "" {
		writeMeta(&b, "twitter:image", m.Image)
	}

	if m.Language != "" {
		href := html.EscapeString(m.Canonical)
		b.WriteString(`<link rel="alternate" hreflang="` + html.EscapeString(m.Language) + `" href="` + href + "\">\n")
		b.WriteString(`<link rel="alternate" hreflang="x-default" href="` + href + "\">\n")
	}

	if ld := m.structuredData(); ld != nil {
		// json.Marshal escapes < and > by default, so the payload can
		// never terminate the script element early.
		if data, err := json.Marshal(ld); err == nil {
			b.WriteString(`<script type="application/ld+json">`)
			b.Write(data)
			b.WriteString("</script>\n")
		}
	}

	return b.String()
}

func (m Meta) structuredData() map[string]any {
	if m.OGType == "article" {
		ld := map[string]any{
			"@context":         "https://schema.org",
			"@type":            "Article",
			"headline":         m.Title,
			"mainEntityOfPage": m.Canonical,
			"publisher": map[string]any{
				"@type": "Organization",
				"name":  m.SiteName,
			},
		}
		if m.Description != "" {
			ld["description"] = m.Description
		}
		if m.Image != "" {
			ld["image"] = m.Image
		}
		if !m.Published.IsZero() {
			ld["datePublished"] = m.Published.Format(time.RFC3339)
		}
		if !m.Modified.IsZero() {
			ld["dateModified"] = m.Modified.Format(time.RFC3339)
		}
		if len(m.Tags) > 0 {
			ld["keywords"] = strings.Join(m.Tags, ", ")
		}
		return ld
	}
	ld := map[string]any{
		"@context": "https://schema.org",
		"@type":    "WebSite",
		"name":     m.SiteName,
		"url":      m.Canonical,
	}
	if m.Description != "" {
		ld["description"] = m.Description
	}
	return ld
}

func writeMeta(b *strings.Builder, name, val string) {
	b.WriteString(`<meta name="` + html.EscapeString(name) + `" content="` + html.EscapeString(val) + "\">\n")
}

func writeProperty(b *strings.Builder, prop, val string) {
	b.WriteString(`<meta property="` + html.EscapeString(prop) + `" content="` + html.EscapeString(val) + "\">\n")
}
