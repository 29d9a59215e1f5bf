package observability

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// HealthStatus represents the health status of a component
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusUnhealthy HealthStatus = "unhealthy"
)

// HealthCheck represents a health check function
type HealthCheck func(ctx context.Context) (HealthStatus, string, error)

// HealthConfig holds configuration for health check endpoints
type HealthConfig struct {
	// Logger for structured logging
	Logger *slog.Logger

	// Database pool for readiness checks
	DatabasePool *pgxpool.Pool

	// Custom health checks
	CustomChecks map[string]HealthCheck

	// Timeout for individual checks
	CheckTimeout time.Duration
}

// CheckResult represents the result of a single health check
type CheckResult struct {
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
	Error   string       `json:"error,omitempty"`
	Latency string       `json:"latency,omitempty"`
}

var startTime = time.Now()

// DefaultHealthConfig returns a default health configuration
func DefaultHealthConfig() *HealthConfig {
	return &HealthConfig{
		CustomChecks: make(map[string]HealthCheck),
		CheckTimeout: 5 * time.Second,
	}
}

// LivenessHandler returns an HTTP handler for liveness checks
// Endpoint: GET /health/live
func LivenessHandler(config *HealthConfig) http.HandlerFunc {
	if config == nil {
		config = DefaultHealthConfig()
	}

	return func(w http.ResponseWriter, r *http.Request) {
		response := map[string]any{
			"alive":     true,
			"timestamp": time.Now().Format(time.RFC3339),
			"uptime":    time.Since(startTime).String(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(response)
	}
}

// ReadinessHandler returns an HTTP handler for readiness checks
// Endpoint: GET /health/ready
func ReadinessHandler(config *HealthConfig) http.HandlerFunc {
	if config == nil {
		config = DefaultHealthConfig()
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), config.CheckTimeout)
		defer cancel()

		ready := true
		checks := make(map[string]CheckResult)

		if config.DatabasePool != nil {
			checkResult := checkDatabase(ctx, config.DatabasePool)
			checks["database"] = checkResult
			if checkResult.Status == StatusUnhealthy {
				ready = false
			}
		}

		for name, check := range config.CustomChecks {
			checkResult := runHealthCheck(ctx, check)
			checks[name] = checkResult
			if checkResult.Status == StatusUnhealthy {
				ready = false
			}
		}

		response := map[string]any{
			"ready":     ready,
			"timestamp": time.Now().Format(time.RFC3339),
			"checks":    checks,
		}

		statusCode := http.StatusOK
		if !ready {
			statusCode = http.StatusServiceUnavailable
			logger.Warn("readiness check failed", "checks", checks)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		json.NewEncoder(w).Encode(response)
	}
}

// checkDatabase performs a database health check
func checkDatabase(ctx context.Context, pool *pgxpool.Pool) CheckResult {
	start := time.Now()

	err := pool.Ping(ctx)
	latency := time.Since(start)

	if err != nil {
		return CheckResult{
			Status:  StatusUnhealthy,
			Message: "Database connection failed",
			Error:   err.Error(),
			Latency: latency.String(),
		}
	}

	return CheckResult{
		Status:  StatusHealthy,
		Message: "Database is healthy",
		Latency: latency.String(),
	}
}

// runHealthCheck executes a custom health check with timeout
func runHealthCheck(ctx context.Context, check HealthCheck) CheckResult {
	start := time.Now()

	resultChan := make(chan CheckResult, 1)
	go func() {
		status, message, err := check(ctx)
		result := CheckResult{
			Status:  status,
			Message: message,
			Latency: time.Since(start).String(),
		}
		if err != nil {
			result.Error = err.Error()
			if result.Status == StatusHealthy {
				result.Status = StatusUnhealthy
			}
		}
		resultChan <- result
	}()

	select {
	case result := <-resultChan:
		return result
	case <-ctx.Done():
		return CheckResult{
			Status:  StatusUnhealthy,
			Message: "Health check timed out",
			Error:   ctx.Err().Error(),
			Latency: time.Since(start).String(),
		}
	}
}

// RedisHealthCheck creates a health check for Redis
func RedisHealthCheck(pingFunc func(context.Context) error) HealthCheck {
	return func(ctx context.Context) (HealthStatus, string, error) {
		if err := pingFunc(ctx); err != nil {
			return StatusUnhealthy, "Redis connection failed", err
		}
		return StatusHealthy, "Redis is healthy", nil
	}
}
