package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"

	"blogview/internal/cache"
	"blogview/internal/config"
	"blogview/internal/content"
	"blogview/internal/middlewares"
	"blogview/internal/observability"
	"blogview/internal/render"
	"blogview/internal/resolve"
	"blogview/internal/seo"
	"blogview/internal/server"
	"blogview/internal/site"
	"blogview/internal/tenant"
	"blogview/internal/trust"
)

func main() {
	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.LoadConfig(logger)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	observability.SetVersion(cfg.App.Version)

	// Database pool
	pool, err := config.NewPool(cfg.PoolConfig(logger))
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// One shared cache backs resolved tenants, rendered pages, and rate
	// limit buckets; key prefixes keep them apart. Redis is optional and
	// its absence degrades to the in-memory tier.
	var redisConf *cache.RedisConfig
	if cfg.Redis.Addr != "" {
		redisConf = cache.DefaultRedisConfig()
		redisConf.Addr = cfg.Redis.Addr
		redisConf.Password = cfg.Redis.Password
		redisConf.DB = cfg.Redis.DB
		redisConf.Logger = logger
	}
	sharedCache := cache.NewFallbackCache(&cache.FallbackConfig{
		Redis:  redisConf,
		Memory: cache.DefaultConfig(),
		Logger: logger,
	})

	// Metrics
	metricsConfig := observability.DefaultMetricsConfig("blogview")
	metricsConfig.Logger = logger
	metrics := observability.NewMetrics(metricsConfig)
	cacheMetrics := observability.NewCacheMetrics("blogview")
	observability.NewPoolStatsCollector("blogview", pool)

	// Tenant store with caching and pub/sub invalidation
	tenants := tenant.NewCachedStore(tenant.NewPGStore(pool, logger), sharedCache, &tenant.CachedStoreConfig{
		TTL:     cfg.Cache.TenantTTL,
		Logger:  logger,
		Metrics: cacheMetrics,
	})

	var subscriber *tenant.InvalidationSubscriber
	if rc := sharedCache.Primary(); rc != nil {
		subscriber = tenant.NewInvalidationSubscriber(tenants, rc.Client(), "", logger)
		subscriber.Start(context.Background())
	}

	// Resolution pipeline
	trustPolicy := trust.New(trust.Config{
		Hosts:        cfg.Proxy.TrustedHosts,
		SharedSecret: cfg.Proxy.SharedSecret,
		Logger:       logger,
	})
	resolver := resolve.New(resolve.Config{
		Store:         tenants,
		Trust:         trustPolicy,
		Logger:        logger,
		LookupTimeout: cfg.Site.LookupTimeout,
		Metrics:       metrics,
	})

	// Rendering
	renderer, err := render.NewTemplateRenderer(cfg.Rendering.TemplatesDir, logger)
	if err != nil {
		log.Fatalf("Failed to parse templates: %v", err)
	}
	composer := seo.NewComposer(&seo.ComposerConfig{
		Protocol: cfg.CanonicalProtocol(),
		Logger:   logger,
	})

	handler := site.NewHandler(site.Config{
		Resolver:       resolver,
		Posts:          content.NewPGStore(pool, logger),
		Renderer:       renderer,
		Assembler:      render.NewAssembler(logger),
		Composer:       composer,
		Logger:         logger,
		Metrics:        metrics,
		Shell:          readShell(cfg.Rendering.ShellFile, site.FallbackShell, logger),
		DefaultShell:   readShell(cfg.Rendering.DefaultShellFile, site.FallbackDefaultShell, logger),
		ContentTimeout: cfg.Site.ContentTimeout,
		ListPageSize:   cfg.Site.ListPageSize,
		SitemapLimit:   cfg.Site.SitemapLimit,
		FeedLimit:      cfg.Site.FeedLimit,
	})

	// The tenant-facing chain applies only to page routes; operational
	// endpoints are never rate limited or cached.
	siteMW := []func(http.Handler) http.Handler{}
	if cfg.RateLimit.Enabled {
		rl := middlewares.WithCache(sharedCache, cfg.RateLimit.Capacity, cfg.RateLimit.RefillPerSecond)
		rl.Logger = logger
		siteMW = append(siteMW, middlewares.RateLimit(rl))
	}
	siteMW = append(siteMW,
		cache.PageCache(&cache.PageCacheConfig{
			Cache:    sharedCache,
			Logger:   logger,
			TTL:      cfg.Cache.PageTTL,
			KeyParts: site.CacheKeyParts,
		}),
		middlewares.ListingPage(&middlewares.ListingPageConfig{
			MaxPage: cfg.Site.MaxListingPage,
			Logger:  logger,
		}),
	)

	// Health checks
	healthConfig := &observability.HealthConfig{
		Logger:            logger,
		DatabasePool:      pool,
		IncludeSystemInfo: true,
		IncludeDetails:    cfg.IsDevelopment(),
	}
	observability.RegisterHealthChecks(healthConfig, map[string]observability.HealthCheck{
		"cache": observability.CacheHealthCheck(sharedCache.Ping),
	})

	mux := http.NewServeMux()
	mux.Handle("/healthz", observability.HealthHandler(healthConfig))
	mux.Handle("/readyz", observability.ReadinessHandler(healthConfig))
	mux.Handle("/metrics", observability.MetricsHandler())
	mux.Handle("/", chain(handler, siteMW...))

	root := chain(mux,
		middlewares.Recovery(recoveryConfig(cfg, logger)),
		observability.RequestID(nil),
		middlewares.Logger(&middlewares.LoggerConfig{Logger: logger}),
		metrics.Middleware(metricsConfig),
		middlewares.Security(securityConfig(cfg, logger)),
		middlewares.Timeout(timeoutConfig(cfg, logger)),
	)

	resources := []server.Resource{
		server.NewDatabaseResource("postgres", pool),
		server.NewCustomResource("cache", func(ctx context.Context) error {
			return sharedCache.Close()
		}),
	}
	if subscriber != nil {
		resources = append(resources, subscriber)
	}

	serverConfig := serverConfigFor(cfg, logger)

	if cfg.ACME.Enabled {
		manager := server.NewACMEManager(&server.ACMEConfig{
			CacheDir: cfg.ACME.CacheDir,
			Email:    cfg.ACME.Email,
			Store:    tenants,
			Logger:   logger,
		})
		if err := server.StartAutocert(root, serverConfig, manager, resources); err != nil {
			log.Fatalf("Server error: %v", err)
		}
		return
	}

	if err := server.Start(root, serverConfig, resources); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// chain wraps h in the given middlewares, first one outermost.
func chain(h http.Handler, mw ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	return h
}

// readShell loads a shell document from disk, falling back to the
// built-in one so a missing file degrades instead of failing startup.
func readShell(path, fallback string, logger *slog.Logger) string {
	if path == "" {
		return fallback
	}
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("shell document not readable, using built-in fallback",
			"path", path, "error", err)
		return fallback
	}
	return string(data)
}

func recoveryConfig(cfg *config.Config, logger *slog.Logger) *middlewares.RecoveryConfig {
	rc := middlewares.DefaultRecoveryConfig()
	if cfg.IsDevelopment() {
		rc = middlewares.DevelopmentRecoveryConfig()
	}
	rc.Logger = logger
	return rc
}

func securityConfig(cfg *config.Config, logger *slog.Logger) *middlewares.SecurityConfig {
	sc := middlewares.DefaultSecurityConfig()
	if cfg.IsProduction() {
		sc = middlewares.ProductionSecurityConfig()
	}
	sc.Logger = logger
	return sc
}

func timeoutConfig(cfg *config.Config, logger *slog.Logger) *middlewares.TimeoutConfig {
	tc := middlewares.RenderTimeout(cfg.Site.RequestTimeout)
	tc.Logger = logger
	return tc
}

func serverConfigFor(cfg *config.Config, logger *slog.Logger) *server.Config {
	addr := ":" + cfg.Server.Port
	sc := server.DefaultConfig(addr)
	switch {
	case cfg.IsProduction():
		sc = server.ProductionConfig(addr)
	case cfg.IsDevelopment():
		sc = server.DevelopmentConfig(addr)
	}
	sc.Logger = logger
	if cfg.TLS.Enabled {
		sc.TLSCertFile = cfg.TLS.CertFile
		sc.TLSKeyFile = cfg.TLS.KeyFile
	}
	return sc
}
