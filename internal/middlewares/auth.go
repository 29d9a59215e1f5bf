package middlewares

import (
	"log/slog"

	"taskboard/internal/router"
)

// AuthConfig holds configuration for the bearer-token auth unit
type AuthConfig struct {
	// Message returned on rejection
	Message string

	// Logger for structured logging
	Logger *slog.Logger
}

// DefaultAuthConfig returns the default auth configuration
func DefaultAuthConfig() *AuthConfig {
	return &AuthConfig{
		Message: "Unauthenticated",
		Logger:  slog.Default(),
	}
}

// Auth returns the authentication unit. It rejects the request with a
// 401 unless the Authorization bearer token resolves to a live
// session. The resolved identity is memoized on the request context,
// so handlers calling CurrentUser do not repeat the lookup.
func Auth(config *AuthConfig) router.Middleware {
	if config == nil {
		config = DefaultAuthConfig()
	}
	if config.Message == "" {
		config.Message = "Unauthenticated"
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return router.MiddlewareFunc(func(c *router.Context) *router.Response {
		if _, ok := c.BearerToken(); !ok {
			config.Logger.Debug("missing bearer token", "path", c.Request.URL.Path)
			return router.Unauthorized(config.Message)
		}
		if c.CurrentUser() == nil {
			config.Logger.Debug("token resolved to no identity", "path", c.Request.URL.Path)
			return router.Unauthorized(config.Message)
		}
		return nil
	})
}
