package site

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"

	"blogview/internal/content"
	"blogview/internal/routing"
	"blogview/internal/seo"
	"blogview/internal/tenant"
)

// feedSummaryLimit bounds the plain-text summary carried per feed item.
const feedSummaryLimit = 300

// serveSystem answers the system slugs that have dedicated documents.
// It reports false for reserved slugs that render as app pages, like
// /search and /archive, so the caller continues down the pipeline.
func (h *Handler) serveSystem(w http.ResponseWriter, r *http.Request, t *tenant.Tenant, route routing.Route, visitorHost string) bool {
	switch route.Slug {
	case "robots.txt":
		h.serveRobots(w, t, visitorHost)
	case "sitemap.xml", "sitemap":
		h.serveSitemap(w, r, t, visitorHost)
	case "feed", "feed.xml", "rss", "rss.xml", "atom.xml":
		h.serveFeed(w, r, t, visitorHost)
	case "favicon.ico", "manifest.json":
		http.NotFound(w, r)
	default:
		return false
	}
	return true
}

func (h *Handler) serveRobots(w http.ResponseWriter, t *tenant.Tenant, visitorHost string) {
	sitemap := h.composer.Origin(t, visitorHost) + routing.JoinPath(t.BasePath, "sitemap.xml")
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "User-agent: *\nAllow: /\n\nSitemap: %s\n", sitemap)
}

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	Xmlns   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

func (h *Handler) serveSitemap(w http.ResponseWriter, r *http.Request, t *tenant.Tenant, visitorHost string) {
	ctx, cancel := context.WithTimeout(r.Context(), h.contentTimeout)
	defer cancel()

	origin := h.composer.Origin(t, visitorHost)
	set := urlSet{
		Xmlns: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  []sitemapURL{{Loc: homeURL(origin, t)}},
	}

	posts, err := h.posts.Recent(ctx, t.ID, h.sitemapLimit, 0)
	if err != nil {
		h.logger.Warn("sitemap post fetch failed", "tenant", t.ID, "error", err)
	}
	for _, p := range posts {
		if p.NoIndex {
			continue
		}
		u := sitemapURL{Loc: origin + postPath(t, p.Slug)}
		if !p.UpdatedAt.IsZero() {
			u.LastMod = p.UpdatedAt.Format("2006-01-02")
		} else if !p.PublishedAt.IsZero() {
			u.LastMod = p.PublishedAt.Format("2006-01-02")
		}
		set.URLs = append(set.URLs, u)
	}

	h.writeXML(w, "application/xml; charset=utf-8", set, t)
}

type rssFeed struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	Language    string    `xml:"language,omitempty"`
	LastBuild   string    `xml:"lastBuildDate,omitempty"`
	Items       []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string   `xml:"title"`
	Link        string   `xml:"link"`
	GUID        string   `xml:"guid"`
	PubDate     string   `xml:"pubDate,omitempty"`
	Description string   `xml:"description,omitempty"`
	Categories  []string `xml:"category,omitempty"`
}

// serveFeed emits RSS 2.0 for every feed alias, atom.xml included.
// Readers subscribed under any of the legacy paths keep working.
func (h *Handler) serveFeed(w http.ResponseWriter, r *http.Request, t *tenant.Tenant, visitorHost string) {
	ctx, cancel := context.WithTimeout(r.Context(), h.contentTimeout)
	defer cancel()

	origin := h.composer.Origin(t, visitorHost)
	feed := rssFeed{
		Version: "2.0",
		Channel: rssChannel{
			Title:       t.Title,
			Link:        homeURL(origin, t),
			Description: t.Description,
			Language:    t.Language,
		},
	}

	posts, err := h.posts.Recent(ctx, t.ID, h.feedLimit, 0)
	if err != nil {
		h.logger.Warn("feed post fetch failed", "tenant", t.ID, "error", err)
	}
	if len(posts) > 0 && !posts[0].PublishedAt.IsZero() {
		feed.Channel.LastBuild = posts[0].PublishedAt.Format(time.RFC1123Z)
	}
	for _, p := range posts {
		link := origin + postPath(t, p.Slug)
		item := rssItem{
			Title:       p.DisplayTitle(),
			Link:        link,
			GUID:        link,
			Description: feedSummary(&p),
			Categories:  p.Tags,
		}
		if !p.PublishedAt.IsZero() {
			item.PubDate = p.PublishedAt.Format(time.RFC1123Z)
		}
		feed.Channel.Items = append(feed.Channel.Items, item)
	}

	h.writeXML(w, "application/rss+xml; charset=utf-8", feed, t)
}

func (h *Handler) writeXML(w http.ResponseWriter, contentType string, doc any, t *tenant.Tenant) {
	w.Header().Set("Content-Type", contentType)
	io.WriteString(w, xml.Header)
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		h.logger.Error("xml encode failed", "tenant", t.ID, "error", err)
	}
}

func homeURL(origin string, t *tenant.Tenant) string {
	if t.BasePath != "" {
		return origin + t.BasePath
	}
	return origin + "/"
}

func postPath(t *tenant.Tenant, slug string) string {
	return routing.ReachablePostPath(t.PostURLFormat, t.BasePath, slug)
}

func feedSummary(p *content.Post) string {
	if p.MetaDescription != "" {
		return p.MetaDescription
	}
	return seo.Describe(p.Body, feedSummaryLimit)
}
