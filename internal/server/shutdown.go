package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// ShutdownConfig holds configuration for graceful shutdown
type ShutdownConfig struct {
	// Logger for structured logging
	Logger *slog.Logger

	// Timeout for graceful shutdown
	Timeout time.Duration

	// Signals to listen for (default: SIGINT, SIGTERM)
	Signals []os.Signal

	// OnShutdownStart is called when shutdown begins
	OnShutdownStart func()

	// OnShutdownComplete is called when shutdown completes
	OnShutdownComplete func()
}

// DefaultShutdownConfig returns a default shutdown configuration
func DefaultShutdownConfig() *ShutdownConfig {
	return &ShutdownConfig{
		Logger:  nil,
		Timeout: 30 * time.Second,
		Signals: []os.Signal{
			syscall.SIGINT,  // Ctrl+C
			syscall.SIGTERM, // Kubernetes/Docker stop
			syscall.SIGQUIT, // Ctrl+\
		},
		OnShutdownStart:    nil,
		OnShutdownComplete: nil,
	}
}

// Resource represents a resource that needs cleanup during shutdown
type Resource interface {
	Name() string
	Close(ctx context.Context) error
}

// ShutdownManager manages graceful shutdown of the application.
// Resources close one at a time in reverse registration order: the
// HTTP server registers last so it drains in-flight requests before
// the stores behind it go away, and the cache invalidation subscriber
// stops before the Redis client it reads from.
type ShutdownManager struct {
	config    *ShutdownConfig
	logger    *slog.Logger
	resources []Resource
	mu        sync.RWMutex
}

// NewShutdownManager creates a new shutdown manager
func NewShutdownManager(config *ShutdownConfig) *ShutdownManager {
	if config == nil {
		config = DefaultShutdownConfig()
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &ShutdownManager{
		config:    config,
		logger:    logger,
		resources: make([]Resource, 0),
	}
}

// Register adds a resource to be cleaned up during shutdown
func (sm *ShutdownManager) Register(resource Resource) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.resources = append(sm.resources, resource)
	sm.logger.Debug("resource registered for shutdown", "resource", resource.Name())
}

// Wait blocks until a shutdown signal is received, then performs graceful shutdown
func (sm *ShutdownManager) Wait() error {
	// Wait for signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, sm.config.Signals...)

	sig := <-sigChan
	sm.logger.Info("shutdown signal received", "signal", sig.String())

	// Call OnShutdownStart callback
	if sm.config.OnShutdownStart != nil {
		sm.config.OnShutdownStart()
	}

	// Perform shutdown
	ctx, cancel := context.WithTimeout(context.Background(), sm.config.Timeout)
	defer cancel()

	err := sm.Shutdown(ctx)

	// Call OnShutdownComplete callback
	if sm.config.OnShutdownComplete != nil {
		sm.config.OnShutdownComplete()
	}

	return err
}

// Shutdown closes all registered resources in reverse registration
// order. The timeout spans the whole sequence, so a slow resource eats
// into the budget of the ones behind it.
func (sm *ShutdownManager) Shutdown(ctx context.Context) error {
	sm.logger.Info("initiating graceful shutdown",
		"timeout", sm.config.Timeout.String(),
		"resources", len(sm.resources),
	)

	sm.mu.RLock()
	resources := make([]Resource, len(sm.resources))
	copy(resources, sm.resources)
	sm.mu.RUnlock()

	var firstErr error
	for i := len(resources) - 1; i >= 0; i-- {
		resource := resources[i]

		if ctx.Err() != nil {
			sm.logger.Warn("shutdown timeout exceeded, abandoning remaining resources",
				"resource", resource.Name(),
				"remaining", i+1,
			)
			if firstErr == nil {
				firstErr = ctx.Err()
			}
			break
		}

		sm.logger.Info("closing resource", "resource", resource.Name())
		start := time.Now()

		if err := resource.Close(ctx); err != nil {
			sm.logger.Error("failed to close resource",
				"resource", resource.Name(),
				"error", err,
				"duration", time.Since(start).String(),
			)
			if firstErr == nil {
				firstErr = fmt.Errorf("close %s: %w", resource.Name(), err)
			}
			continue
		}

		sm.logger.Info("resource closed successfully",
			"resource", resource.Name(),
			"duration", time.Since(start).String(),
		)
	}

	if firstErr == nil {
		sm.logger.Info("all resources closed successfully")
	}
	return firstErr
}

// HTTPServerResource wraps an HTTP server for graceful shutdown
type HTTPServerResource struct {
	server *http.Server
	name   string
}

// NewHTTPServerResource creates a new HTTP server resource
func NewHTTPServerResource(name string, server *http.Server) *HTTPServerResource {
	return &HTTPServerResource{
		server: server,
		name:   name,
	}
}

func (h *HTTPServerResource) Name() string {
	return h.name
}

func (h *HTTPServerResource) Close(ctx context.Context) error {
	return h.server.Shutdown(ctx)
}

// DatabaseResource wraps a database pool for graceful shutdown
type DatabaseResource struct {
	pool *pgxpool.Pool
	name string
}

// NewDatabaseResource creates a new database resource
func NewDatabaseResource(name string, pool *pgxpool.Pool) *DatabaseResource {
	return &DatabaseResource{
		pool: pool,
		name: name,
	}
}

func (d *DatabaseResource) Name() string {
	return d.name
}

// pgxpool.Close() doesn't accept context, but we can wait for it
func (d *DatabaseResource) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.pool.Close()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		// The close keeps running in its goroutine; the process is
		// exiting anyway.
		return ctx.Err()
	}
}

// RedisResource wraps a Redis client for graceful shutdown
type RedisResource struct {
	client *redis.Client
	name   string
}

// NewRedisResource creates a new Redis resource
func NewRedisResource(name string, client *redis.Client) *RedisResource {
	return &RedisResource{
		client: client,
		name:   name,
	}
}

func (r *RedisResource) Name() string {
	return r.name
}

func (r *RedisResource) Close(ctx context.Context) error {
	return r.client.Close()
}

// CustomResource wraps a custom cleanup function
type CustomResource struct {
	name      string
	closeFunc func(ctx context.Context) error
}

// NewCustomResource creates a new custom resource
func NewCustomResource(name string, closeFunc func(ctx context.Context) error) *CustomResource {
	return &CustomResource{
		name:      name,
		closeFunc: closeFunc,
	}
}

func (c *CustomResource) Name() string {
	return c.name
}

func (c *CustomResource) Close(ctx context.Context) error {
	if c.closeFunc == nil {
		return nil
	}
	return c.closeFunc(ctx)
}

// Run starts an HTTP server with graceful shutdown handling
func Run(server *http.Server, config *ShutdownConfig) error {
	return RunWithResources(server, nil, config)
}

// RunTLS starts an HTTPS server with graceful shutdown handling
func RunTLS(server *http.Server, certFile, keyFile string, config *ShutdownConfig) error {
	return RunTLSWithResources(server, certFile, keyFile, nil, config)
}

// RunWithResources starts an HTTP server with additional resources and graceful shutdown
func RunWithResources(server *http.Server, resources []Resource, config *ShutdownConfig) error {
	return runWithResources(server, "http-server", resources, config, server.ListenAndServe)
}

// RunTLSWithResources starts an HTTPS server with resources and graceful shutdown
func RunTLSWithResources(server *http.Server, certFile, keyFile string, resources []Resource, config *ShutdownConfig) error {
	return runWithResources(server, "https-server", resources, config, func() error {
		return server.ListenAndServeTLS(certFile, keyFile)
	})
}

func runWithResources(server *http.Server, serverName string, resources []Resource, config *ShutdownConfig, serve func() error) error {
	if config == nil {
		config = DefaultShutdownConfig()
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	sm := NewShutdownManager(config)

	// Register backing resources first, the server last: shutdown runs
	// in reverse, and requests must drain before their stores close.
	for _, resource := range resources {
		sm.Register(resource)
	}
	sm.Register(NewHTTPServerResource(serverName, server))

	// Start server in goroutine
	go func() {
		logger.Info("starting server", "addr", server.Addr)
		if err := serve(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	return sm.Wait()
}
