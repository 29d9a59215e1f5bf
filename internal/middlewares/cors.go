package middlewares

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"taskboard/internal/router"
)

// CORSConfig holds configuration for the CORS unit
type CORSConfig struct {
	// AllowOrigins defines origins that may access the resource.
	// Default: ["*"]
	AllowOrigins []string

	// AllowMethods defines methods allowed when accessing the resource.
	// Default: ["PUT", "GET", "POST", "DELETE", "OPTIONS"]
	AllowMethods []string

	// AllowHeaders defines request headers that can be used.
	// Default: ["Authorization", "Content-Type"]
	AllowHeaders []string

	// MaxAge indicates how long (seconds) preflight results can be cached.
	// Default: 86400 (24 hours)
	MaxAge int

	// Logger for structured logging
	Logger *slog.Logger
}

// DefaultCORSConfig returns the default CORS configuration
func DefaultCORSConfig() *CORSConfig {
	return &CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{
			http.MethodPut,
			http.MethodGet,
			http.MethodPost,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       86400,
		Logger:       slog.Default(),
	}
}

// CORS returns the cross-origin unit. It stamps permissive headers on
// every response and answers preflight OPTIONS requests itself with an
// empty success, short-circuiting the rest of the chain.
func CORS(config *CORSConfig) router.Middleware {
	if config == nil {
		config = DefaultCORSConfig()
	}
	if len(config.AllowOrigins) == 0 {
		config.AllowOrigins = []string{"*"}
	}
	if len(config.AllowMethods) == 0 {
		config.AllowMethods = DefaultCORSConfig().AllowMethods
	}
	if len(config.AllowHeaders) == 0 {
		config.AllowHeaders = DefaultCORSConfig().AllowHeaders
	}
	if config.MaxAge <= 0 {
		config.MaxAge = 86400
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	// Pre-compute header values
	allowOrigins := strings.Join(config.AllowOrigins, ", ")
	allowMethods := strings.Join(config.AllowMethods, ", ")
	allowHeaders := strings.Join(config.AllowHeaders, ", ")
	maxAge := strconv.Itoa(config.MaxAge)

	return router.MiddlewareFunc(func(c *router.Context) *router.Response {
		header := c.Writer.Header()
		header.Set("Access-Control-Allow-Origin", allowOrigins)
		header.Set("Access-Control-Allow-Methods", allowMethods)
		header.Set("Access-Control-Allow-Headers", allowHeaders)
		header.Set("Access-Control-Max-Age", maxAge)

		if c.Request.Method == http.MethodOptions {
			config.Logger.Debug("answered CORS preflight", "path", c.Request.URL.Path)
			return router.OK("", nil).WithConnectionClose()
		}
		return nil
	})
}
