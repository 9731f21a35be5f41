package render

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blogview/internal/content"
	"blogview/internal/routing"
	"blogview/internal/tenant"
)

func writeTemplates(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"home.html":   `<section class="listing">{{range .Posts}}<h2><a href="{{postPath $.Tenant .Slug}}">{{.DisplayTitle}}</a></h2>{{end}}</section>`,
		"post.html":   `<article><h1>{{.Post.DisplayTitle}}</h1>{{raw .Post.Body}}<time>{{formatDate .Post.PublishedAt}}</time></article>`,
		"tag.html":    `<section>Tagged {{.Route.Slug}}: {{len .Posts}}</section>`,
		"topics.html": `<section>Topic {{.Route.Slug}}</section>`,
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	return dir
}

func renderTenant() *tenant.Tenant {
	return &tenant.Tenant{
		Title:         "Acme Blog",
		PostURLFormat: tenant.FormatWithPrefix,
	}
}

func TestTemplateRendererPost(t *testing.T) {
	r, err := NewTemplateRenderer(writeTemplates(t), nil)
	require.NoError(t, err)

	page := &Page{
		Tenant: renderTenant(),
		Route:  routing.Route{Type: routing.RoutePost, Slug: "launch"},
		Post: &content.Post{
			Title:       "We Launched",
			Body:        "<p>Big <em>news</em></p>",
			PublishedAt: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		},
	}

	out, err := r.Render(context.Background(), page)
	require.NoError(t, err)
	assert.Contains(t, out, "<h1>We Launched</h1>")
	// raw keeps pre-rendered body HTML unescaped.
	assert.Contains(t, out, "<p>Big <em>news</em></p>")
	assert.Contains(t, out, "<time>March 10, 2025</time>")
}

func TestTemplateRendererListing(t *testing.T) {
	r, err := NewTemplateRenderer(writeTemplates(t), nil)
	require.NoError(t, err)

	page := &Page{
		Tenant: renderTenant(),
		Route:  routing.Route{Type: routing.RouteHome},
		Posts: []content.Post{
			{Slug: "one", Title: "First"},
			{Slug: "two", Title: "Second", MetaTitle: "Second (SEO)"},
		},
	}

	out, err := r.Render(context.Background(), page)
	require.NoError(t, err)
	assert.Contains(t, out, `<a href="/post/one">First</a>`)
	assert.Contains(t, out, `<a href="/post/two">Second (SEO)</a>`)
}

func TestTemplateRendererRouteDispatch(t *testing.T) {
	r, err := NewTemplateRenderer(writeTemplates(t), nil)
	require.NoError(t, err)

	tag := &Page{
		Tenant: renderTenant(),
		Route:  routing.Route{Type: routing.RouteTag, Slug: "golang"},
		Posts:  []content.Post{{Slug: "one"}},
	}
	out, err := r.Render(context.Background(), tag)
	require.NoError(t, err)
	assert.Equal(t, "<section>Tagged golang: 1</section>", out)

	// System and unknown routes share the home template.
	system := &Page{Tenant: renderTenant(), Route: routing.Route{Type: routing.RouteSystem, Slug: "search"}}
	out, err = r.Render(context.Background(), system)
	require.NoError(t, err)
	assert.Contains(t, out, "listing")
}

func TestTemplateRendererErrorSurfaces(t *testing.T) {
	r, err := NewTemplateRenderer(writeTemplates(t), nil)
	require.NoError(t, err)

	// Post route without content makes the template dereference nil.
	page := &Page{
		Tenant: renderTenant(),
		Route:  routing.Route{Type: routing.RoutePost, Slug: "ghost"},
	}
	_, err = r.Render(context.Background(), page)
	assert.Error(t, err)
}
