package middlewares

import (
	"log/slog"
	"net/http"
	"strconv"
)

// SecurityConfig holds configuration for security headers middleware
type SecurityConfig struct {
	// Logger for structured logging (optional, uses slog.Default if nil)
	Logger *slog.Logger

	// ContentTypeNosniff prevents browsers from MIME-sniffing
	// Default: "nosniff"
	ContentTypeNosniff string

	// XFrameOptions prevents clickjacking attacks
	// Default: "DENY"
	XFrameOptions string

	// HSTSMaxAge sets HTTP Strict Transport Security max age,
	// applied only to TLS requests
	// Default: 31536000 (1 year)
	HSTSMaxAge int

	// HSTSIncludeSubdomains includes subdomains in HSTS policy
	HSTSIncludeSubdomains bool

	// ReferrerPolicy controls referrer information
	// Default: "strict-origin-when-cross-origin"
	ReferrerPolicy string

	// Skipper defines a function to skip middleware
	Skipper func(r *http.Request) bool
}

// DefaultSecurityConfig returns a default security configuration
func DefaultSecurityConfig() *SecurityConfig {
	return &SecurityConfig{
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		HSTSMaxAge:         31536000, // 1 year
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	}
}

// ProductionSecurityConfig returns a production-ready security configuration
func ProductionSecurityConfig() *SecurityConfig {
	return &SecurityConfig{
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            63072000, // 2 years
		HSTSIncludeSubdomains: true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
	}
}

// Security returns a middleware that sets security headers
func Security(config *SecurityConfig) func(next http.Handler) http.Handler {
	if config == nil {
		config = DefaultSecurityConfig()
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	logger.Debug("security headers middleware initialized",
		"hsts_max_age", config.HSTSMaxAge,
		"x_frame_options", config.XFrameOptions,
	)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if config.Skipper != nil && config.Skipper(r) {
				next.ServeHTTP(w, r)
				return
			}

			if config.ContentTypeNosniff != "" {
				w.Header().Set("X-Content-Type-Options", config.ContentTypeNosniff)
			}
			if config.XFrameOptions != "" {
				w.Header().Set("X-Frame-Options", config.XFrameOptions)
			}

			// Strict-Transport-Security (only for HTTPS)
			if r.TLS != nil && config.HSTSMaxAge > 0 {
				value := "max-age=" + strconv.Itoa(config.HSTSMaxAge)
				if config.HSTSIncludeSubdomains {
					value += "; includeSubDomains"
				}
				w.Header().Set("Strict-Transport-Security", value)
			}

			if config.ReferrerPolicy != "" {
				w.Header().Set("Referrer-Policy", config.ReferrerPolicy)
			}

			next.ServeHTTP(w, r)
		})
	}
}
