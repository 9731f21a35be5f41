package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv pins every variable the loaders read, so values from the
// invoking shell cannot bleed into assertions.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"VERSION", "ENV", "PORT", "PROTOCOL", "DOMAIN",
		"DB_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
		"DB_HEALTH_CHECK_PERIOD_SECONDS", "DB_MAX_CONN_LIFETIME_MINUTES",
		"DB_MAX_CONN_IDLE_TIME_MINUTES",
		"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
		"PROXY_TRUSTED_HOSTS", "PROXY_SHARED_SECRET",
		"TENANT_CACHE_TTL_SECONDS", "PAGE_CACHE_TTL_SECONDS",
		"TEMPLATES_DIR", "SHELL_FILE", "DEFAULT_SHELL_FILE",
		"LIST_PAGE_SIZE", "MAX_LISTING_PAGE", "SITEMAP_LIMIT", "FEED_LIMIT",
		"LOOKUP_TIMEOUT_SECONDS", "CONTENT_TIMEOUT_SECONDS", "REQUEST_TIMEOUT_SECONDS",
		"RATE_LIMIT_ENABLED", "RATE_LIMIT_CAPACITY", "RATE_LIMIT_REFILL_PER_SECOND",
		"TLS_CERT_FILE", "TLS_KEY_FILE",
		"ACME_ENABLED", "ACME_CACHE_DIR", "ACME_EMAIL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8080")
	t.Setenv("DB_URL", "postgres://localhost/blogview")

	cfg, err := LoadConfig(nil)
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, "1.0.0", cfg.App.Version)
	assert.Equal(t, "http", cfg.Server.Protocol)
	assert.Equal(t, "localhost", cfg.Server.Domain)

	assert.Equal(t, int32(10), cfg.Database.MaxConns)
	assert.Equal(t, int32(2), cfg.Database.MinConns)

	assert.Equal(t, 30*time.Second, cfg.Cache.TenantTTL)
	assert.Equal(t, time.Duration(0), cfg.Cache.PageTTL)

	assert.Equal(t, "web/templates", cfg.Rendering.TemplatesDir)
	assert.Equal(t, "web/shell.html", cfg.Rendering.ShellFile)
	assert.Equal(t, "web/default.html", cfg.Rendering.DefaultShellFile)

	assert.Equal(t, 10, cfg.Site.ListPageSize)
	assert.Equal(t, 1000, cfg.Site.MaxListingPage)
	assert.Equal(t, 2*time.Second, cfg.Site.LookupTimeout)
	assert.Equal(t, 3*time.Second, cfg.Site.ContentTimeout)
	assert.Equal(t, 15*time.Second, cfg.Site.RequestTimeout)

	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 60, cfg.RateLimit.Capacity)
	assert.Equal(t, 10.0, cfg.RateLimit.RefillPerSecond)

	assert.False(t, cfg.TLS.Enabled)
	assert.False(t, cfg.ACME.Enabled)
	assert.Equal(t, "acme-cache", cfg.ACME.CacheDir)

	assert.True(t, cfg.IsDevelopment())
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigRequiresPort(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_URL", "postgres://localhost/blogview")

	_, err := LoadConfig(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PORT")
}

func TestLoadConfigRequiresDatabaseURL(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8080")

	_, err := LoadConfig(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_URL")
}

func TestLoadConfigParsesValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8080")
	t.Setenv("DB_URL", "postgres://localhost/blogview")
	t.Setenv("ENV", "production")
	t.Setenv("PROXY_TRUSTED_HOSTS", "proxy.local, *.edge.example.com ,, ")
	t.Setenv("PROXY_SHARED_SECRET", "s3cret")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("PAGE_CACHE_TTL_SECONDS", "300")
	t.Setenv("RATE_LIMIT_ENABLED", "false")
	t.Setenv("RATE_LIMIT_REFILL_PER_SECOND", "2.5")

	cfg, err := LoadConfig(nil)
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, []string{"proxy.local", "*.edge.example.com"}, cfg.Proxy.TrustedHosts)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, 5*time.Minute, cfg.Cache.PageTTL)
	assert.False(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 2.5, cfg.RateLimit.RefillPerSecond)
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			App:      AppConfig{Environment: "development"},
			Server:   ServerConfig{Port: "8080"},
			Database: DatabaseConfig{URL: "postgres://localhost/blogview"},
		}
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, base().Validate())
	})

	t.Run("missing port", func(t *testing.T) {
		cfg := base()
		cfg.Server.Port = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("missing database url", func(t *testing.T) {
		cfg := base()
		cfg.Database.URL = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("acme and static tls conflict", func(t *testing.T) {
		cfg := base()
		cfg.ACME.Enabled = true
		cfg.TLS.Enabled = true
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "mutually exclusive")
	})

	t.Run("production requires proxy secret", func(t *testing.T) {
		cfg := base()
		cfg.App.Environment = "production"
		assert.Error(t, cfg.Validate())

		cfg.Proxy.SharedSecret = "s3cret"
		assert.NoError(t, cfg.Validate())
	})
}

func TestCanonicalProtocol(t *testing.T) {
	cfg := &Config{Server: ServerConfig{Protocol: "http"}}
	assert.Equal(t, "http", cfg.CanonicalProtocol())

	cfg.TLS.Enabled = true
	assert.Equal(t, "https", cfg.CanonicalProtocol())

	cfg.TLS.Enabled = false
	cfg.ACME.Enabled = true
	assert.Equal(t, "https", cfg.CanonicalProtocol())
}
