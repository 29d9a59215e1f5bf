package middlewares

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"strings"
	"time"
)

// RecoveryConfig holds configuration for recovery middleware
type RecoveryConfig struct {
	// Logger for structured logging (optional, uses slog.Default if nil)
	Logger *slog.Logger

	// Skipper defines a function to skip middleware
	Skipper func(r *http.Request) bool

	// DisableStackTrace disables stack trace in panic recovery
	DisableStackTrace bool

	// Recovery function that handles the panic
	RecoveryHandler func(w http.ResponseWriter, r *http.Request, err any, stack []byte)

	// Development mode provides more detailed error responses
	Development bool
}

// DefaultRecoveryConfig returns a default recovery configuration
func DefaultRecoveryConfig() *RecoveryConfig {
	return &RecoveryConfig{
		RecoveryHandler: defaultRecoveryHandler,
	}
}

// ProductionRecoveryConfig returns a production-ready recovery configuration
func ProductionRecoveryConfig() *RecoveryConfig {
	return &RecoveryConfig{
		RecoveryHandler: defaultRecoveryHandler,
	}
}

// DevelopmentRecoveryConfig returns a development-friendly recovery configuration
func DevelopmentRecoveryConfig() *RecoveryConfig {
	return &RecoveryConfig{
		RecoveryHandler: developmentRecoveryHandler,
		Development:     true,
	}
}

// defaultRecoveryHandler returns a minimal 500 response
func defaultRecoveryHandler(w http.ResponseWriter, r *http.Request, err any, stack []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)

	json.NewEncoder(w).Encode(map[string]any{
		"error":      "Internal Server Error",
		"message":    "An unexpected error occurred",
		"request_id": r.Header.Get("X-Request-ID"),
	})
}

// developmentRecoveryHandler surfaces the panic and stack for development
func developmentRecoveryHandler(w http.ResponseWriter, r *http.Request, err any, stack []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)

	json.NewEncoder(w).Encode(map[string]any{
		"error":      "Internal Server Error",
		"message":    fmt.Sprintf("Panic: %v", err),
		"stack":      string(stack),
		"method":     r.Method,
		"path":       r.URL.Path,
		"timestamp":  time.Now().Format(time.RFC3339),
		"request_id": r.Header.Get("X-Request-ID"),
	})
}

// Recovery returns a recovery middleware that recovers from panics
func Recovery(config *RecoveryConfig) func(next http.Handler) http.Handler {
	if config == nil {
		config = DefaultRecoveryConfig()
	}
	if config.RecoveryHandler == nil {
		if config.Development {
			config.RecoveryHandler = developmentRecoveryHandler
		} else {
			config.RecoveryHandler = defaultRecoveryHandler
		}
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if config.Skipper != nil && config.Skipper(r) {
				next.ServeHTTP(w, r)
				return
			}

			defer func() {
				if err := recover(); err != nil {
					var stack []byte
					if !config.DisableStackTrace {
						stack = debug.Stack()
					}

					logAttrs := []any{
						"method", r.Method,
						"path", r.URL.Path,
						"client_ip", ClientIP(r),
						"user_agent", r.UserAgent(),
						"error", fmt.Sprintf("%v", err),
					}
					if requestID := r.Header.Get("X-Request-ID"); requestID != "" {
						logAttrs = append(logAttrs, "request_id", requestID)
					}
					if !config.DisableStackTrace {
						logAttrs = append(logAttrs, "stack", string(stack))
					}

					logger.Error("panic recovered", logAttrs...)

					config.RecoveryHandler(w, r, err, stack)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP extracts the client IP, preferring proxy headers
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx >= 0 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	if xRealIP := r.Header.Get("X-Real-IP"); xRealIP != "" {
		return strings.TrimSpace(xRealIP)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
