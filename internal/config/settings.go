package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the complete application configuration
type Config struct {
	App       AppConfig
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Proxy     ProxyConfig
	Cache     CacheConfig
	Rendering RenderingConfig
	Site      SiteConfig
	RateLimit RateLimitConfig
	TLS       TLSConfig
	ACME      ACMEConfig
}

// AppConfig holds application-level settings
type AppConfig struct {
	Version     string
	Environment string // development, staging, production
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port     string
	Protocol string // http or https
	Domain   string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL               string
	MaxConns          int32
	MinConns          int32
	HealthCheckPeriod time.Duration
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	ConnectTimeout    time.Duration
	MaxRetries        int
	RetryDelay        time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// ProxyConfig holds the settings for serving tenants behind their own
// reverse proxies.
type ProxyConfig struct {
	// TrustedHosts are additional hosts accepted as first-party
	// infrastructure. "*.example.com" entries match any subdomain of
	// example.com but not example.com itself.
	TrustedHosts []string

	// SharedSecret authenticates proxy-forwarded requests. Empty means
	// visitor hostnames are accepted unauthenticated.
	SharedSecret string
}

// CacheConfig holds cache TTL settings
type CacheConfig struct {
	// TenantTTL is how long resolved tenants stay cached.
	TenantTTL time.Duration

	// PageTTL is how long rendered pages stay cached. Zero disables
	// the page cache.
	PageTTL time.Duration
}

// RenderingConfig holds template and shell document settings
type RenderingConfig struct {
	TemplatesDir     string
	ShellFile        string
	DefaultShellFile string
}

// SiteConfig holds the request pipeline settings
type SiteConfig struct {
	ListPageSize   int
	MaxListingPage int
	SitemapLimit   int
	FeedLimit      int
	LookupTimeout  time.Duration
	ContentTimeout time.Duration
	RequestTimeout time.Duration
}

// RateLimitConfig holds rate limiter settings
type RateLimitConfig struct {
	Enabled         bool
	Capacity        int
	RefillPerSecond float64
}

// TLSConfig holds static TLS certificate settings
type TLSConfig struct {
	Enabled  bool
	CertFile string
	KeyFile  string
}

// ACMEConfig holds automatic certificate settings. Certificates are
// issued per tenant domain, so the host policy consults the tenant
// store rather than a fixed list.
type ACMEConfig struct {
	Enabled  bool
	CacheDir string
	Email    string
}

// LoadConfig loads configuration from environment variables
func LoadConfig(logger *slog.Logger) (*Config, error) {
	// Load .env file (ignore error if it doesn't exist)
	godotenv.Load()

	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("loading application configuration")

	config := &Config{}

	if err := loadAppConfig(&config.App, logger); err != nil {
		return nil, fmt.Errorf("failed to load app config: %w", err)
	}

	if err := loadServerConfig(&config.Server, logger); err != nil {
		return nil, fmt.Errorf("failed to load server config: %w", err)
	}

	if err := loadDatabaseConfig(&config.Database, logger); err != nil {
		return nil, fmt.Errorf("failed to load database config: %w", err)
	}

	loadRedisConfig(&config.Redis, logger)
	loadProxyConfig(&config.Proxy, logger)
	loadCacheConfig(&config.Cache, logger)
	loadRenderingConfig(&config.Rendering, logger)
	loadSiteConfig(&config.Site, logger)
	loadRateLimitConfig(&config.RateLimit, logger)
	loadTLSConfig(&config.TLS, logger)
	loadACMEConfig(&config.ACME, logger)

	logger.Info("configuration loaded successfully",
		"environment", config.App.Environment,
		"version", config.App.Version,
		"port", config.Server.Port,
	)

	return config, nil
}

func loadAppConfig(cfg *AppConfig, logger *slog.Logger) error {
	version := os.Getenv("VERSION")
	if version == "" {
		version = "1.0.0"
		logger.Warn("VERSION not set, using default", "default", version)
	}
	cfg.Version = version

	env := os.Getenv("ENV")
	if env == "" {
		env = "development"
		logger.Warn("ENV not set, using default", "default", env)
	}
	cfg.Environment = env

	return nil
}

func loadServerConfig(cfg *ServerConfig, logger *slog.Logger) error {
	port := os.Getenv("PORT")
	if port == "" {
		return fmt.Errorf("PORT environment variable is required")
	}
	cfg.Port = port

	protocol := os.Getenv("PROTOCOL")
	if protocol == "" {
		protocol = "http"
		logger.Warn("PROTOCOL not set, using default", "default", protocol)
	}
	cfg.Protocol = protocol

	domain := os.Getenv("DOMAIN")
	if domain == "" {
		domain = "localhost"
		logger.Warn("DOMAIN not set, using default", "default", domain)
	}
	cfg.Domain = domain

	return nil
}

func loadDatabaseConfig(cfg *DatabaseConfig, logger *slog.Logger) error {
	dbURL := os.Getenv("DB_URL")
	if dbURL == "" {
		return fmt.Errorf("DB_URL environment variable is required")
	}
	cfg.URL = dbURL

	// Pool settings with defaults
	cfg.MaxConns = getEnvAsInt32("DB_MAX_CONNS", 10)
	cfg.MinConns = getEnvAsInt32("DB_MIN_CONNS", 2)

	// Duration settings
	healthCheckSec := getEnvAsInt32("DB_HEALTH_CHECK_PERIOD_SECONDS", 60)
	cfg.HealthCheckPeriod = time.Duration(healthCheckSec) * time.Second

	maxLifetimeMin := getEnvAsInt32("DB_MAX_CONN_LIFETIME_MINUTES", 0)
	cfg.MaxConnLifetime = time.Duration(maxLifetimeMin) * time.Minute

	maxIdleMin := getEnvAsInt32("DB_MAX_CONN_IDLE_TIME_MINUTES", 0)
	cfg.MaxConnIdleTime = time.Duration(maxIdleMin) * time.Minute

	// Connection settings
	cfg.ConnectTimeout = 10 * time.Second
	cfg.MaxRetries = 3
	cfg.RetryDelay = 1 * time.Second

	logger.Debug("database config loaded",
		"max_conns", cfg.MaxConns,
		"min_conns", cfg.MinConns,
	)

	return nil
}

func loadRedisConfig(cfg *RedisConfig, logger *slog.Logger) {
	cfg.Addr = os.Getenv("REDIS_ADDR")
	cfg.Password = os.Getenv("REDIS_PASSWORD")
	cfg.DB = getEnvAsInt("REDIS_DB", 0)

	if cfg.Addr != "" {
		logger.Debug("Redis config loaded", "addr", cfg.Addr, "db", cfg.DB)
	} else {
		logger.Warn("REDIS_ADDR not set, caches run in memory only")
	}
}

func loadProxyConfig(cfg *ProxyConfig, logger *slog.Logger) {
	if hosts := os.Getenv("PROXY_TRUSTED_HOSTS"); hosts != "" {
		cfg.TrustedHosts = splitAndTrim(hosts, ",")
	}

	cfg.SharedSecret = os.Getenv("PROXY_SHARED_SECRET")
	if cfg.SharedSecret == "" {
		logger.Warn("PROXY_SHARED_SECRET not set, proxy requests will be accepted unauthenticated")
	}

	logger.Debug("proxy config loaded", "extra_trusted_hosts", len(cfg.TrustedHosts))
}

func loadCacheConfig(cfg *CacheConfig, logger *slog.Logger) {
	tenantSec := getEnvAsInt("TENANT_CACHE_TTL_SECONDS", 30)
	cfg.TenantTTL = time.Duration(tenantSec) * time.Second

	pageSec := getEnvAsInt("PAGE_CACHE_TTL_SECONDS", 0)
	cfg.PageTTL = time.Duration(pageSec) * time.Second

	logger.Debug("cache config loaded",
		"tenant_ttl", cfg.TenantTTL.String(),
		"page_ttl", cfg.PageTTL.String(),
	)
}

func loadRenderingConfig(cfg *RenderingConfig, logger *slog.Logger) {
	cfg.TemplatesDir = os.Getenv("TEMPLATES_DIR")
	if cfg.TemplatesDir == "" {
		cfg.TemplatesDir = "web/templates"
		logger.Warn("TEMPLATES_DIR not set, using default", "default", cfg.TemplatesDir)
	}

	cfg.ShellFile = os.Getenv("SHELL_FILE")
	if cfg.ShellFile == "" {
		cfg.ShellFile = "web/shell.html"
	}

	cfg.DefaultShellFile = os.Getenv("DEFAULT_SHELL_FILE")
	if cfg.DefaultShellFile == "" {
		cfg.DefaultShellFile = "web/default.html"
	}
}

func loadSiteConfig(cfg *SiteConfig, logger *slog.Logger) {
	cfg.ListPageSize = getEnvAsInt("LIST_PAGE_SIZE", 10)
	cfg.MaxListingPage = getEnvAsInt("MAX_LISTING_PAGE", 1000)
	cfg.SitemapLimit = getEnvAsInt("SITEMAP_LIMIT", 500)
	cfg.FeedLimit = getEnvAsInt("FEED_LIMIT", 20)

	lookupSec := getEnvAsInt("LOOKUP_TIMEOUT_SECONDS", 2)
	cfg.LookupTimeout = time.Duration(lookupSec) * time.Second

	contentSec := getEnvAsInt("CONTENT_TIMEOUT_SECONDS", 3)
	cfg.ContentTimeout = time.Duration(contentSec) * time.Second

	requestSec := getEnvAsInt("REQUEST_TIMEOUT_SECONDS", 15)
	cfg.RequestTimeout = time.Duration(requestSec) * time.Second

	logger.Debug("site config loaded",
		"list_page_size", cfg.ListPageSize,
		"lookup_timeout", cfg.LookupTimeout.String(),
	)
}

func loadRateLimitConfig(cfg *RateLimitConfig, logger *slog.Logger) {
	cfg.Enabled = getEnvAsBool("RATE_LIMIT_ENABLED", true)
	cfg.Capacity = getEnvAsInt("RATE_LIMIT_CAPACITY", 60)
	cfg.RefillPerSecond = getEnvAsFloat("RATE_LIMIT_REFILL_PER_SECOND", 10.0)

	if !cfg.Enabled {
		logger.Warn("rate limiting disabled")
	}
}

func loadTLSConfig(cfg *TLSConfig, logger *slog.Logger) {
	certFile := os.Getenv("TLS_CERT_FILE")
	keyFile := os.Getenv("TLS_KEY_FILE")

	cfg.CertFile = certFile
	cfg.KeyFile = keyFile
	cfg.Enabled = certFile != "" && keyFile != ""

	if cfg.Enabled {
		logger.Info("TLS enabled", "cert_file", certFile, "key_file", keyFile)
	}
}

func loadACMEConfig(cfg *ACMEConfig, logger *slog.Logger) {
	cfg.Enabled = getEnvAsBool("ACME_ENABLED", false)
	cfg.CacheDir = os.Getenv("ACME_CACHE_DIR")
	if cfg.CacheDir == "" {
		cfg.CacheDir = "acme-cache"
	}
	cfg.Email = os.Getenv("ACME_EMAIL")

	if cfg.Enabled {
		logger.Info("ACME enabled", "cache_dir", cfg.CacheDir)
	}
}

// Helper functions

func getEnvAsInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}

func getEnvAsInt32(key string, defaultVal int32) int32 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return int32(parsed)
		}
	}
	return defaultVal
}

func getEnvAsFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}

func splitAndTrim(s, sep string) []string {
	if s == "" {
		return []string{}
	}
	parts := strings.Split(s, sep)
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsStaging returns true if running in staging environment
func (c *Config) IsStaging() bool {
	return c.App.Environment == "staging"
}

// CanonicalProtocol returns the scheme canonical URLs are built with.
// ACME or static TLS force https whatever PROTOCOL says.
func (c *Config) CanonicalProtocol() string {
	if c.ACME.Enabled || c.TLS.Enabled {
		return "https"
	}
	return c.Server.Protocol
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Database.URL == "" {
		return fmt.Errorf("database URL is required")
	}
	if c.ACME.Enabled && c.TLS.Enabled {
		return fmt.Errorf("ACME and static TLS certificates are mutually exclusive")
	}
	if c.IsProduction() && c.Proxy.SharedSecret == "" {
		return fmt.Errorf("PROXY_SHARED_SECRET is required in production")
	}
	return nil
}
