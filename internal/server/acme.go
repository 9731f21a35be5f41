package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/crypto/acme/autocert"

	"blogview/internal/tenant"
)

// ACMEConfig configures automatic certificate issuance for tenant
// custom domains.
type ACMEConfig struct {
	// CacheDir stores issued certificates across restarts.
	CacheDir string

	// Email receives expiry and policy notices from the CA.
	Email string

	// Store authorizes issuance: only hostnames the tenant store
	// recognizes get certificates.
	Store tenant.Store

	// PolicyTimeout bounds the store lookup during a TLS handshake.
	PolicyTimeout time.Duration

	// Logger for structured logging
	Logger *slog.Logger
}

// DefaultACMEConfig returns a default ACME configuration
func DefaultACMEConfig(store tenant.Store) *ACMEConfig {
	return &ACMEConfig{
		CacheDir:      "acme-cache",
		Store:         store,
		PolicyTimeout: 5 * time.Second,
	}
}

// NewACMEManager creates an autocert manager that issues certificates
// on demand for domains the tenant store serves.
func NewACMEManager(config *ACMEConfig) *autocert.Manager {
	if config.PolicyTimeout <= 0 {
		config.PolicyTimeout = 5 * time.Second
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		Cache:      autocert.DirCache(config.CacheDir),
		Email:      config.Email,
		HostPolicy: TenantHostPolicy(config.Store, config.PolicyTimeout, logger),
	}
}

// TenantHostPolicy authorizes certificate issuance for hostnames the
// tenant store knows as a primary domain or an alias. Proxy visitor
// hostnames never qualify: TLS for those terminates at the tenant's
// own proxy, not here.
func TenantHostPolicy(store tenant.Store, timeout time.Duration, logger *slog.Logger) autocert.HostPolicy {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, host string) error {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		_, err := store.ByPrimaryDomain(ctx, host)
		if errors.Is(err, tenant.ErrNotFound) {
			_, err = store.ByAlias(ctx, host)
		}
		if err == nil {
			return nil
		}
		if errors.Is(err, tenant.ErrNotFound) {
			logger.Warn("refusing certificate for unknown host", "host", host)
			return fmt.Errorf("host %q is not served here", host)
		}
		// Store trouble denies issuance rather than minting certificates
		// blind. The handshake fails and the client retries.
		return fmt.Errorf("authorize %q: %w", host, err)
	}
}

// RunAutocertWithResources starts the HTTPS server with certificates
// from the manager, plus a plain HTTP listener on :80 that answers
// HTTP-01 challenges and redirects everything else to HTTPS.
func RunAutocertWithResources(server *http.Server, manager *autocert.Manager, resources []Resource, config *ShutdownConfig) error {
	if config == nil {
		config = DefaultShutdownConfig()
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	server.TLSConfig = manager.TLSConfig()

	challenge := &http.Server{
		Addr:         ":http",
		Handler:      manager.HTTPHandler(nil),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	go func() {
		logger.Info("starting acme challenge server", "addr", challenge.Addr)
		if err := challenge.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("acme challenge server failed", "error", err)
		}
	}()

	resources = append(resources, NewCustomResource("acme-challenge-server", challenge.Shutdown))

	return runWithResources(server, "https-server", resources, config, func() error {
		return server.ListenAndServeTLS("", "")
	})
}
