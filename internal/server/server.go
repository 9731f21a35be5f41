// Package server owns the HTTP listener lifecycle: configuration,
// TLS (static certificates or ACME), and ordered graceful shutdown of
// the resources behind the handler.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/crypto/acme/autocert"
)

// Config holds HTTP server configuration
type Config struct {
	// Server address (host:port)
	Addr string

	// Logger for structured logging
	Logger *slog.Logger

	// ReadTimeout is the maximum duration for reading the entire request
	ReadTimeout time.Duration

	// WriteTimeout is the maximum duration before timing out writes of
	// the response. Must exceed the render deadline or slow pages get
	// cut off mid-document.
	WriteTimeout time.Duration

	// IdleTimeout is the maximum amount of time to wait for the next request
	IdleTimeout time.Duration

	// MaxHeaderBytes controls the maximum number of bytes the server will read parsing the request header
	MaxHeaderBytes int

	// TLS configuration for static certificates
	TLSCertFile string
	TLSKeyFile  string

	// ShutdownTimeout is the maximum duration for graceful shutdown
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a default server configuration
func DefaultConfig(addr string) *Config {
	return &Config{
		Addr:            addr,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    20 * time.Second,
		IdleTimeout:     60 * time.Second,
		MaxHeaderBytes:  1 << 20, // 1 MB
		ShutdownTimeout: 30 * time.Second,
	}
}

// ProductionConfig returns a production-optimized server configuration
func ProductionConfig(addr string) *Config {
	return &Config{
		Addr:            addr,
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    20 * time.Second,
		IdleTimeout:     120 * time.Second,
		MaxHeaderBytes:  1 << 20, // 1 MB
		ShutdownTimeout: 30 * time.Second,
	}
}

// DevelopmentConfig returns a development-friendly server configuration
func DevelopmentConfig(addr string) *Config {
	return &Config{
		Addr:            addr,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    60 * time.Second,
		IdleTimeout:     300 * time.Second,
		MaxHeaderBytes:  2 << 20, // 2 MB
		ShutdownTimeout: 10 * time.Second,
	}
}

// New creates a new HTTP server with the given configuration
func New(handler http.Handler, config *Config) *http.Server {
	if config == nil {
		config = DefaultConfig(":8080")
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	server := &http.Server{
		Addr:           config.Addr,
		Handler:        handler,
		ReadTimeout:    config.ReadTimeout,
		WriteTimeout:   config.WriteTimeout,
		IdleTimeout:    config.IdleTimeout,
		MaxHeaderBytes: config.MaxHeaderBytes,
		ErrorLog:       slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	logger.Info("http server configured",
		"addr", config.Addr,
		"read_timeout", config.ReadTimeout.String(),
		"write_timeout", config.WriteTimeout.String(),
		"idle_timeout", config.IdleTimeout.String(),
	)

	return server
}

// Start starts the HTTP server and blocks until shutdown. Static TLS
// certificates are used when configured.
func Start(handler http.Handler, config *Config, resources []Resource) error {
	if config == nil {
		config = DefaultConfig(":8080")
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	server := New(handler, config)
	shutdownConfig := shutdownConfigFor(config, logger)

	if config.TLSCertFile != "" && config.TLSKeyFile != "" {
		logger.Info("tls enabled", "cert", config.TLSCertFile, "key", config.TLSKeyFile)
		return RunTLSWithResources(server, config.TLSCertFile, config.TLSKeyFile, resources, shutdownConfig)
	}

	return RunWithResources(server, resources, shutdownConfig)
}

// StartAutocert starts the HTTPS server with automatic certificates
// from the manager and blocks until shutdown.
func StartAutocert(handler http.Handler, config *Config, manager *autocert.Manager, resources []Resource) error {
	if config == nil {
		config = DefaultConfig(":443")
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	server := New(handler, config)
	return RunAutocertWithResources(server, manager, resources, shutdownConfigFor(config, logger))
}

func shutdownConfigFor(config *Config, logger *slog.Logger) *ShutdownConfig {
	return &ShutdownConfig{
		Logger:  logger,
		Timeout: config.ShutdownTimeout,
		OnShutdownStart: func() {
			logger.Info("shutdown initiated, stopping server gracefully")
		},
		OnShutdownComplete: func() {
			logger.Info("shutdown complete")
		},
	}
}
