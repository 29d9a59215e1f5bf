package config

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DBConfig holds database connection pool configuration
type DBConfig struct {
	// DatabaseURL is the PostgreSQL connection string
	DatabaseURL string

	// Logger for structured logging (optional, uses slog.Default if nil)
	Logger *slog.Logger

	MaxConns int32
	MinConns int32

	// MaxConnLifetime and MaxConnIdleTime may be 0 when an external
	// connection pooler (e.g. PgBouncer) manages the lifecycle
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration

	HealthCheckPeriod time.Duration
	ConnectTimeout    time.Duration

	// MaxRetries and RetryDelay control connection attempts with
	// exponential backoff
	MaxRetries int
	RetryDelay time.Duration
}

// DefaultDBConfig returns a default database configuration
func DefaultDBConfig(databaseURL string) *DBConfig {
	return &DBConfig{
		DatabaseURL:       databaseURL,
		MaxConns:          10,
		MinConns:          2,
		MaxConnLifetime:   0,
		MaxConnIdleTime:   0,
		HealthCheckPeriod: 1 * time.Minute,
		ConnectTimeout:    10 * time.Second,
		MaxRetries:        3,
		RetryDelay:        1 * time.Second,
	}
}

// ProductionDBConfig returns a production-optimized database configuration
func ProductionDBConfig(databaseURL string) *DBConfig {
	return &DBConfig{
		DatabaseURL:       databaseURL,
		MaxConns:          25,
		MinConns:          5,
		MaxConnLifetime:   1 * time.Hour,
		MaxConnIdleTime:   5 * time.Minute,
		HealthCheckPeriod: 30 * time.Second,
		ConnectTimeout:    10 * time.Second,
		MaxRetries:        5,
		RetryDelay:        2 * time.Second,
	}
}

// DevelopmentDBConfig returns a development-optimized database configuration
func DevelopmentDBConfig(databaseURL string) *DBConfig {
	return &DBConfig{
		DatabaseURL:       databaseURL,
		MaxConns:          5,
		MinConns:          1,
		MaxConnLifetime:   30 * time.Minute,
		MaxConnIdleTime:   5 * time.Minute,
		HealthCheckPeriod: 1 * time.Minute,
		ConnectTimeout:    5 * time.Second,
		MaxRetries:        3,
		RetryDelay:        500 * time.Millisecond,
	}
}

// NewPool creates a database connection pool, retrying with exponential
// backoff until the pool answers a ping or MaxRetries is exhausted.
func NewPool(config *DBConfig) (*pgxpool.Pool, error) {
	if config == nil {
		return nil, fmt.Errorf("database config cannot be nil")
	}
	if config.DatabaseURL == "" {
		return nil, fmt.Errorf("database URL cannot be empty")
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("initializing database connection pool",
		"max_conns", config.MaxConns,
		"min_conns", config.MinConns,
		"health_check_period", config.HealthCheckPeriod.String(),
	)

	dbConfig, err := pgxpool.ParseConfig(config.DatabaseURL)
	if err != nil {
		logger.Error("failed to parse database URL", "error", err)
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	dbConfig.MaxConns = config.MaxConns
	dbConfig.MinConns = config.MinConns
	dbConfig.MaxConnLifetime = config.MaxConnLifetime
	dbConfig.MaxConnIdleTime = config.MaxConnIdleTime
	dbConfig.HealthCheckPeriod = config.HealthCheckPeriod

	if config.ConnectTimeout > 0 {
		dbConfig.ConnConfig.ConnectTimeout = config.ConnectTimeout
	}

	var pool *pgxpool.Pool
	var lastErr error

	for attempt := 1; attempt <= config.MaxRetries; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), config.ConnectTimeout)
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
				time.Sleep(calculateBackoff(config.RetryDelay, attempt))
			}
			continue
		}

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
				time.Sleep(calculateBackoff(config.RetryDelay, attempt))
			}
			continue
		}

		logger.Info("database connection pool established",
			"attempt", attempt,
			"total_conns", pool.Stat().TotalConns(),
			"idle_conns", pool.Stat().IdleConns(),
		)
		return pool, nil
	}

	logger.Error("failed to establish database connection after all retries",
		"max_retries", config.MaxRetries,
		"error", lastErr,
	)
	return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", config.MaxRetries, lastErr)
}

// calculateBackoff returns baseDelay * 2^(attempt-1), capped at 30 seconds
func calculateBackoff(baseDelay time.Duration, attempt int) time.Duration {
	multiplier := math.Pow(2, float64(attempt-1))
	delay := time.Duration(float64(baseDelay) * multiplier)

	maxDelay := 30 * time.Second
	if delay > maxDelay {
		delay = maxDelay
	}
	return delay
}

// HealthCheck pings the database connection pool
func HealthCheck(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) error {
	if pool == nil {
		return fmt.Errorf("pool is nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		logger.Error("database health check failed", "error", err)
		return fmt.Errorf("database health check failed: %w", err)
	}

	stat := pool.Stat()
	logger.Debug("database health check passed",
		"total_conns", stat.TotalConns(),
		"idle_conns", stat.IdleConns(),
		"acquired_conns", stat.AcquiredConns(),
	)
	return nil
}

// GracefulShutdown closes the pool, forcing the issue after timeout
func GracefulShutdown(pool *pgxpool.Pool, timeout time.Duration, logger *slog.Logger) error {
	if pool == nil {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("initiating graceful database shutdown", "timeout", timeout.String())

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

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
