package middlewares

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// TimeoutConfig holds configuration for timeout middleware
type TimeoutConfig struct {
	// Logger for structured logging (optional, uses slog.Default if nil)
	Logger *slog.Logger

	// Timeout duration for requests
	// Default: 30 seconds
	Timeout time.Duration

	// SkipPaths are exempt from the deadline (long-running or
	// streaming endpoints)
	SkipPaths []string
}

// DefaultTimeoutConfig returns a default timeout configuration
func DefaultTimeoutConfig() *TimeoutConfig {
	return &TimeoutConfig{
		Timeout:   30 * time.Second,
		SkipPaths: []string{"/metrics", "/health/live", "/health/ready"},
	}
}

// Timeout returns a middleware that bounds request handling with a
// context deadline and answers 408 when it expires.
func Timeout(config *TimeoutConfig) func(next http.Handler) http.Handler {
	if config == nil {
		config = DefaultTimeoutConfig()
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	skip := make(map[string]bool, len(config.SkipPaths))
	for _, path := range config.SkipPaths {
		skip[path] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skip[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			ctx, cancel := context.WithTimeout(r.Context(), config.Timeout)
			defer cancel()
			r = r.WithContext(ctx)

			done := make(chan struct{})
			start := time.Now()

			go func() {
				defer close(done)
				next.ServeHTTP(w, r)
			}()

			select {
			case <-done:
				return
			case <-ctx.Done():
				logger.Warn("request timeout",
					"method", r.Method,
					"path", r.URL.Path,
					"duration", time.Since(start).String(),
					"timeout", config.Timeout.String(),
				)

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusRequestTimeout)
				json.NewEncoder(w).Encode(map[string]any{
					"status_code": http.StatusRequestTimeout,
					"message":     "Request timeout",
					"data":        nil,
				})
			}
		})
	}
}
