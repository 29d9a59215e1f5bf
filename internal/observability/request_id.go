package observability

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"
)

// RequestIDConfig holds configuration for request ID middleware
type RequestIDConfig struct {
	// Logger for structured logging (optional, uses slog.Default if nil)
	Logger *slog.Logger

	// Header name for request ID
	// Default: X-Request-ID
	Header string

	// Generator function to create request IDs
	// Default: random UUIDv4
	Generator func() string

	// Skipper defines a function to skip middleware
	Skipper func(r *http.Request) bool
}

// DefaultRequestIDConfig returns a default request ID configuration
func DefaultRequestIDConfig() *RequestIDConfig {
	return &RequestIDConfig{
		Header:    "X-Request-ID",
		Generator: uuid.NewString,
	}
}

// RequestID returns a middleware that adds a request ID to the
// context and response headers, honoring an inbound X-Request-ID
func RequestID(config *RequestIDConfig) func(next http.Handler) http.Handler {
	if config == nil {
		config = DefaultRequestIDConfig()
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if config.Header == "" {
		config.Header = "X-Request-ID"
	}
	if config.Generator == nil {
		config.Generator = uuid.NewString
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if config.Skipper != nil && config.Skipper(r) {
				next.ServeHTTP(w, r)
				return
			}

			requestID := r.Header.Get(config.Header)
			if requestID == "" {
				requestID = config.Generator()
			}

			w.Header().Set(config.Header, requestID)

			ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
			r = r.WithContext(ctx)

			logger.Debug("request ID assigned",
				"request_id", requestID,
				"method", r.Method,
				"path", r.URL.Path,
			)

			next.ServeHTTP(w, r)
		})
	}
}

// GetRequestID retrieves the request ID from context
func GetRequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// WithRequestID returns a context with the given request ID
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}
