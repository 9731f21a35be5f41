package render

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"path/filepath"
	"time"

	"blogview/internal/routing"
	"blogview/internal/seo"
	"blogview/internal/tenant"
)

// Renderer turns a page into its server-side markup.
type Renderer interface {
	Render(ctx context.Context, p *Page) (string, error)
}

// TemplateRenderer renders pages with html/template.
type TemplateRenderer struct {
	tpl    *template.Template
	logger *slog.Logger
}

// NewTemplateRenderer parses every template in dir.
func NewTemplateRenderer(dir string, logger *slog.Logger) (*TemplateRenderer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	tpl, err := template.New("pages").Funcs(Funcs()).ParseGlob(filepath.Join(dir, "*.html"))
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &TemplateRenderer{tpl: tpl, logger: logger}, nil
}

// Render implements Renderer. The template is picked by route type;
// listing-like routes share the home template.
func (r *TemplateRenderer) Render(ctx context.Context, p *Page) (string, error) {
	name := templateName(p.Route.Type)

	var buf bytes.Buffer
	if err := r.tpl.ExecuteTemplate(&buf, name, p); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

func templateName(rt routing.RouteType) string {
	switch rt {
	case routing.RoutePost, routing.RouteRootPost:
		return "post.html"
	case routing.RouteTag:
		return "tag.html"
	case routing.RouteTopics:
		return "topics.html"
	default:
		return "home.html"
	}
}

// Funcs is the helper map available to page templates.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"add": func(a, b int) int {
			return a + b
		},
		"formatDate": func(t time.Time) string {
			return t.Format("January 2, 2006")
		},
		"excerpt": func(body string, limit int) string {
			return seo.Describe(body, limit)
		},
		"postPath": func(t *tenant.Tenant, slug string) string {
			return routing.ReachablePostPath(t.PostURLFormat, t.BasePath, slug)
		},
		"tagPath": func(t *tenant.Tenant, tag string) string {
			return routing.JoinPath(t.BasePath, "tag", tag)
		},
		// Post bodies arrive pre-rendered and sanitized from the
		// publishing pipeline; templates embed them as-is.
		"raw": func(s string) template.HTML {
			return template.HTML(s)
		},
	}
}
