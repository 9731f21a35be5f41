// Package site is the request pipeline: resolve the tenant, normalize
// and classify the path, redirect to the canonical post URL when the
// tenant's format asks for it, fetch content, and assemble the final
// document.
package site

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"blogview/internal/content"
	"blogview/internal/middlewares"
	"blogview/internal/observability"
	"blogview/internal/render"
	"blogview/internal/resolve"
	"blogview/internal/routing"
	"blogview/internal/seo"
	"blogview/internal/tenant"
)

// FallbackShell is the app shell used when none is configured on disk.
const FallbackShell = `<!doctype html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
</head>
<body>
<div id="app"></div>
</body>
</html>
`

// FallbackDefaultShell is served when a request resolves to no tenant.
// It names no site and links nowhere.
const FallbackDefaultShell = `<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Site not found</title>
</head>
<body>
<p>No site is configured for this address.</p>
</body>
</html>
`

// Config wires the request pipeline.
type Config struct {
	Resolver  *resolve.Resolver
	Posts     content.Store
	Renderer  render.Renderer
	Assembler *render.Assembler
	Composer  *seo.Composer
	Logger    *slog.Logger
	Metrics   *observability.Metrics

	// Shell is the document server markup is spliced into.
	Shell string

	// DefaultShell is served, unbranded, when no tenant matches.
	DefaultShell string

	// ContentTimeout bounds the content fetch for one page.
	// Default: 3 seconds.
	ContentTimeout time.Duration

	// ListPageSize is the number of posts per listing page.
	// Default: 10.
	ListPageSize int

	// SitemapLimit caps how many posts the sitemap lists.
	// Default: 500.
	SitemapLimit int

	// FeedLimit caps how many posts the feeds carry.
	// Default: 20.
	FeedLimit int
}

// Handler serves every tenant-facing request.
type Handler struct {
	resolver  *resolve.Resolver
	posts     content.Store
	renderer  render.Renderer
	assembler *render.Assembler
	composer  *seo.Composer
	logger    *slog.Logger
	metrics   *observability.Metrics

	shell        string
	defaultShell string

	contentTimeout time.Duration
	listPageSize   int
	sitemapLimit   int
	feedLimit      int
}

// NewHandler creates the pipeline handler.
func NewHandler(config Config) *Handler {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		resolver:       config.Resolver,
		posts:          config.Posts,
		renderer:       config.Renderer,
		assembler:      config.Assembler,
		composer:       config.Composer,
		logger:         logger,
		metrics:        config.Metrics,
		shell:          config.Shell,
		defaultShell:   config.DefaultShell,
		contentTimeout: config.ContentTimeout,
		listPageSize:   config.ListPageSize,
		sitemapLimit:   config.SitemapLimit,
		feedLimit:      config.FeedLimit,
	}
	if h.shell == "" {
		h.shell = FallbackShell
	}
	if h.defaultShell == "" {
		h.defaultShell = FallbackDefaultShell
	}
	if h.contentTimeout <= 0 {
		h.contentTimeout = 3 * time.Second
	}
	if h.listPageSize <= 0 {
		h.listPageSize = 10
	}
	if h.sitemapLimit <= 0 {
		h.sitemapLimit = 500
	}
	if h.feedLimit <= 0 {
		h.feedLimit = 20
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	lookupHost := resolve.LookupHost(r)
	visitorHost := resolve.VisitorHost(r)
	secret := r.Header.Get(resolve.HeaderProxySecret)

	t, src := h.resolver.Resolve(ctx, lookupHost, visitorHost, secret)
	if t == nil {
		h.serveDefault(w, r)
		return
	}

	path := routing.NormalizePath(r.URL.Path, t.BasePath)
	route := routing.Classify(path)
	if h.metrics != nil {
		h.metrics.RoutesTotal.WithLabelValues(string(route.Type)).Inc()
	}

	if target, ok := routing.DecideRedirect(route, t.PostURLFormat, t.BasePath); ok {
		if r.URL.RawQuery != "" {
			target += "?" + r.URL.RawQuery
		}
		if h.metrics != nil {
			h.metrics.RedirectsTotal.Inc()
		}
		h.logger.Info("canonical redirect",
			"tenant", t.ID, "from", r.URL.Path, "to", target)
		http.Redirect(w, r, target, http.StatusPermanentRedirect)
		return
	}

	if route.Type == routing.RouteSystem && h.serveSystem(w, r, t, route, visitorHost) {
		return
	}

	page := h.buildPage(ctx, t, route, path, src, visitorHost, middlewares.PageFromContext(ctx))
	h.render(ctx, w, page)
}

// serveDefault answers hosts that belong to no tenant. The body carries
// nothing tenant-shaped, and the noindex header keeps dangling DNS
// records pointed at the platform out of search indexes.
func (h *Handler) serveDefault(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Robots-Tag", "noindex")
	h.writeHTML(w, http.StatusOK, h.defaultShell)
}

// buildPage fetches the content a route needs. It never fails: a
// missing post degrades to the home listing under the requested path,
// and a failed listing renders empty.
func (h *Handler) buildPage(ctx context.Context, t *tenant.Tenant, route routing.Route, path string, src resolve.Source, visitorHost string, pageNum int) *render.Page {
	page := &render.Page{
		Tenant:      t,
		Route:       route,
		Path:        path,
		Source:      src,
		VisitorHost: visitorHost,
		PageNum:     pageNum,
	}

	ctx, cancel := context.WithTimeout(ctx, h.contentTimeout)
	defer cancel()

	offset := (pageNum - 1) * h.listPageSize

	switch route.Type {
	case routing.RoutePost, routing.RouteRootPost:
		post, err := h.posts.BySlug(ctx, t.ID, route.Slug)
		if err == nil {
			page.Post = post
			return page
		}
		if !errors.Is(err, content.ErrNotFound) {
			h.logger.Warn("post fetch failed",
				"tenant", t.ID, "slug", route.Slug, "error", err)
		}
		if h.metrics != nil {
			h.metrics.ContentFallbacksTotal.Inc()
		}
		// Keep the requested path in the page so the client app can
		// show its own not-found state after hydrating.
		page.Route = routing.Route{Type: routing.RouteHome}
		page.PageNum = 1
		page.Posts = h.listing(ctx, t, page.Route, 0)
		return page
	case routing.RouteTag, routing.RouteTopics:
		page.Posts = h.listing(ctx, t, route, offset)
		return page
	default:
		// Home, leftover system slugs like /search, and unclassifiable
		// paths all render the home listing.
		page.Posts = h.listing(ctx, t, routing.Route{Type: routing.RouteHome}, offset)
		return page
	}
}

func (h *Handler) listing(ctx context.Context, t *tenant.Tenant, route routing.Route, offset int) []content.Post {
	var (
		posts []content.Post
		err   error
	)
	switch route.Type {
	case routing.RouteTag:
		posts, err = h.posts.ByTag(ctx, t.ID, route.Slug, h.listPageSize, offset)
	case routing.RouteTopics:
		posts, err = h.posts.ByTopic(ctx, t.ID, route.Slug, h.listPageSize, offset)
	default:
		posts, err = h.posts.Recent(ctx, t.ID, h.listPageSize, offset)
	}
	if err != nil {
		h.logger.Warn("listing fetch failed",
			"tenant", t.ID, "route", route.Type, "slug", route.Slug, "error", err)
		return nil
	}
	return posts
}

// render produces and writes the page. Render failures still answer
// with the unmodified shell and a 200: the client app boots and takes
// over, which beats showing crawlers an error page.
func (h *Handler) render(ctx context.Context, w http.ResponseWriter, page *render.Page) {
	markup, err := h.renderer.Render(ctx, page)
	if err != nil {
		h.logger.Error("render failed, serving bare shell",
			"tenant", page.Tenant.ID, "route", page.Route.Type, "path", page.Path, "error", err)
		if h.metrics != nil {
			h.metrics.RenderFallbacksTotal.Inc()
		}
		h.writeHTML(w, http.StatusOK, h.shell)
		return
	}

	meta := h.composer.Compose(page.Tenant, page.Route, page.Post, page.VisitorHost)
	doc := h.assembler.Assemble(h.shell, markup, page.State(), meta)

	if page.Tenant.Language != "" {
		w.Header().Set("Content-Language", page.Tenant.Language)
	}
	h.writeHTML(w, http.StatusOK, doc)
}

func (h *Handler) writeHTML(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	io.WriteString(w, body)
}

// CacheKeyParts identifies a page for the rendered-page cache. Both
// host claims and the proxy secret participate: proxy-mode tenants
// share one lookup host, and an unauthenticated request must never be
// handed a page cached for an authenticated one.
func CacheKeyParts(r *http.Request) []string {
	return []string{
		resolve.LookupHost(r),
		resolve.VisitorHost(r),
		r.Header.Get(resolve.HeaderProxySecret),
		r.URL.Path,
		r.URL.RawQuery,
	}
}
