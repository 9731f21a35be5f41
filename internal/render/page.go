// Package render produces the HTML for resolved pages: a template
// renderer for the server-side markup and an assembler that splices
// markup, head metadata, and the hydration payload into the tenant's
// shell document.
package render

import (
	"time"

	"blogview/internal/content"
	"blogview/internal/resolve"
	"blogview/internal/routing"
	"blogview/internal/tenant"
)

// Page carries everything one render needs. The pipeline fills it after
// resolution, classification, and content fetch.
type Page struct {
	Tenant *tenant.Tenant
	Route  routing.Route
	// Path is the normalized request path.
	Path        string
	Source      resolve.Source
	VisitorHost string

	// Post is set on post routes whose content was found.
	Post *content.Post
	// Posts holds the listing for home, tag, and topic pages.
	Posts []content.Post
	// PageNum is the 1-based listing page.
	PageNum int
}

// State builds the hydration payload the client runtime boots from. It
// mirrors what was rendered: the SPA must take over without refetching.
func (p *Page) State() map[string]any {
	state := map[string]any{
		"route": map[string]any{
			"type": string(p.Route.Type),
			"slug": p.Route.Slug,
			"path": p.Path,
		},
		"tenant": map[string]any{
			"id":            p.Tenant.ID.String(),
			"title":         p.Tenant.Title,
			"language":      p.Tenant.Language,
			"basePath":      p.Tenant.BasePath,
			"postUrlFormat": string(p.Tenant.PostURLFormat),
		},
		"resolution": map[string]any{
			"source":      string(p.Source),
			"visitorHost": p.VisitorHost,
		},
	}
	if p.Post != nil {
		state["post"] = p.Post
	}
	if p.Posts != nil {
		items := make([]map[string]any, len(p.Posts))
		for i, post := range p.Posts {
			items[i] = map[string]any{
				"slug":        post.Slug,
				"title":       post.DisplayTitle(),
				"tags":        post.Tags,
				"publishedAt": post.PublishedAt.Format(time.RFC3339),
			}
		}
		state["posts"] = items
		state["page"] = p.PageNum
	}
	return state
}
