package config

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DBConfig holds database connection configuration
type DBConfig struct {
	// DatabaseURL is the PostgreSQL connection string
	DatabaseURL string

	// Logger for structured logging (optional, uses slog.Default if nil)
	Logger *slog.Logger

	// MaxConns is the maximum number of connections in the pool
	// Default: 10
	MaxConns int32

	// MinConns is the minimum number of connections in the pool
	// Default: 2
	MinConns int32

	// MaxConnLifetime is the maximum lifetime of a connection
	// Set to 0 for infinite when using external connection pooler
	// Default: 0 (infinite for managed databases with connection pooler)
	MaxConnLifetime time.Duration

	// MaxConnIdleTime is the maximum idle time of a connection
	// Set to 0 for no timeout when using external connection pooler
	// Default: 0 (no timeout for managed databases)
	MaxConnIdleTime time.Duration

	// HealthCheckPeriod is the period between health checks
	// Default: 1 minute
	HealthCheckPeriod time.Duration

	// ConnectTimeout is the timeout for establishing connections
	// Default: 10 seconds
	ConnectTimeout time.Duration

	// MaxRetries is the maximum number of connection attempts
	// Default: 3
	MaxRetries int

	// RetryDelay is the initial delay between retry attempts
	// Uses exponential backoff
	// Default: 1 second
	RetryDelay time.Duration
}

// DefaultDBConfig returns a default database configuration
// Optimized for managed databases with external connection pooler (e.g., PgBouncer)
func DefaultDBConfig(databaseURL string) *DBConfig {
	return &DBConfig{
		DatabaseURL:       databaseURL,
		MaxConns:          10,
		MinConns:          2,
		MaxConnLifetime:   0, // Infinite - managed bouncer handles lifecycle
		MaxConnIdleTime:   0, // No timeout - managed bouncer handles idle
		HealthCheckPeriod: 1 * time.Minute,
		ConnectTimeout:    10 * time.Second,
		MaxRetries:        3,
		RetryDelay:        1 * time.Second,
	}
}

// PoolConfig builds the pool configuration from loaded settings.
func (c *Config) PoolConfig(logger *slog.Logger) *DBConfig {
	db := DefaultDBConfig(c.Database.URL)
	db.Logger = logger
	if c.Database.MaxConns > 0 {
		db.MaxConns = c.Database.MaxConns
	}
	if c.Database.MinConns > 0 {
		db.MinConns = c.Database.MinConns
	}
	db.MaxConnLifetime = c.Database.MaxConnLifetime
	db.MaxConnIdleTime = c.Database.MaxConnIdleTime
	if c.Database.HealthCheckPeriod > 0 {
		db.HealthCheckPeriod = c.Database.HealthCheckPeriod
	}
	if c.Database.ConnectTimeout > 0 {
		db.ConnectTimeout = c.Database.ConnectTimeout
	}
	if c.Database.MaxRetries > 0 {
		db.MaxRetries = c.Database.MaxRetries
	}
	if c.Database.RetryDelay > 0 {
		db.RetryDelay = c.Database.RetryDelay
	}
	return db
}

// NewPool creates a new database connection pool with the given configuration
func NewPool(config *DBConfig) (*pgxpool.Pool, error) {
	if config == nil {
		return nil, fmt.Errorf("database config cannot be nil")
	}

	if config.DatabaseURL == "" {
		return nil, fmt.Errorf("database URL cannot be empty")
	}

	// Use provided logger or default
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("initializing database connection pool",
		"max_conns", config.MaxConns,
		"min_conns", config.MinConns,
		"max_conn_lifetime", config.MaxConnLifetime.String(),
		"health_check_period", config.HealthCheckPeriod.String(),
	)

	// Parse connection string
	dbConfig, err := pgxpool.ParseConfig(config.DatabaseURL)
	if err != nil {
		logger.Error("failed to parse database URL", "error", err)
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	// Apply pool settings
	dbConfig.MaxConns = config.MaxConns
	dbConfig.MinConns = config.MinConns
	dbConfig.MaxConnLifetime = config.MaxConnLifetime
	dbConfig.MaxConnIdleTime = config.MaxConnIdleTime
	dbConfig.HealthCheckPeriod = config.HealthCheckPeriod

	// Set connect timeout
	if config.ConnectTimeout > 0 {
		dbConfig.ConnConfig.ConnectTimeout = config.ConnectTimeout
	}

	// Retry logic with exponential backoff
	var pool *pgxpool.Pool
	var lastErr error

	for attempt := 1; attempt <= config.MaxRetries; attempt++ {
		logger.Debug("attempting database connection",
			"attempt", attempt,
			"max_retries", config.MaxRetries,
		)

		// Create context with timeout
		ctx, cancel := context.WithTimeout(context.Background(), config.ConnectTimeout)

		// Create pool
		pool, err = pgxpool.NewWithConfig(ctx, dbConfig)
		cancel()

		if err != nil {
			lastErr = fmt.Errorf("failed to create pool (attempt %d/%d): %w", attempt, config.MaxRetries, err)
			logger.Warn("failed to create database pool",
				"attempt", attempt,
				"max_retries", config.MaxRetries,
				"error", err,
			)

			if attempt < config.MaxRetries {
				delay := calculateBackoff(config.RetryDelay, attempt)
				logger.Info("retrying database connection",
					"delay", delay.String(),
					"next_attempt", attempt+1,
				)
				time.Sleep(delay)
			}
			continue
		}

		// Test connection with ping
		pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = pool.Ping(pingCtx)
		pingCancel()

		if err != nil {
			lastErr = fmt.Errorf("failed to ping database (attempt %d/%d): %w", attempt, config.MaxRetries, err)
			logger.Warn("failed to ping database",
				"attempt", attempt,
				"max_retries", config.MaxRetries,
				"error", err,
			)

			pool.Close()
			pool = nil

			if attempt < config.MaxRetries {
				delay := calculateBackoff(config.RetryDelay, attempt)
				logger.Info("retrying database connection",
					"delay", delay.String(),
					"next_attempt", attempt+1,
				)
				time.Sleep(delay)
			}
			continue
		}

		// Connection successful
		logger.Info("database connection pool established",
			"attempt", attempt,
			"total_conns", pool.Stat().TotalConns(),
			"idle_conns", pool.Stat().IdleConns(),
		)

		return pool, nil
	}

	// All retries failed
	logger.Error("failed to establish database connection after all retries",
		"max_retries", config.MaxRetries,
		"error", lastErr,
	)

	return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", config.MaxRetries, lastErr)
}

// calculateBackoff calculates exponential backoff delay
func calculateBackoff(baseDelay time.Duration, attempt int) time.Duration {
	// Exponential backoff: baseDelay * 2^(attempt-1)
	multiplier := math.Pow(2, float64(attempt-1))
	delay := time.Duration(float64(baseDelay) * multiplier)

	// Cap at 30 seconds
	maxDelay := 30 * time.Second
	if delay > maxDelay {
		delay = maxDelay
	}

	return delay
}

// GracefulShutdown closes the pool, waiting up to timeout for checked
// out connections to be released. The server uses the shutdown manager
// instead; this is for one-shot tools that hold a pool briefly.
func GracefulShutdown(pool *pgxpool.Pool, timeout time.Duration, logger *slog.Logger) error {
	if pool == nil {
		return nil
	}

	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("initiating graceful database shutdown", "timeout", timeout.String())

	// Create context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Wait for all connections to be released or timeout
	done := make(chan struct{})
	go func() {
		pool.Close()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("database connection pool closed gracefully")
		return nil
	case <-ctx.Done():
		logger.Warn("database shutdown timeout exceeded, forcing close")
		return fmt.Errorf("shutdown timeout exceeded")
	}
}
