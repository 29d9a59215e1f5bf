package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the complete application configuration
type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Server   ServerConfig
	TLS      TLSConfig
	Auth     AuthConfig
	CORS     CORSConfig
	Redis    RedisConfig
}

// AppConfig holds application-level settings
type AppConfig struct {
	Version     string
	Environment string // development, staging, production
	BasePath    string
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port     string
	Protocol string // http or https
	Domain   string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL               string
	MaxConns          int32
	MinConns          int32
	HealthCheckPeriod time.Duration
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	ConnectTimeout    time.Duration
	MaxRetries        int
	RetryDelay        time.Duration
}

// TLSConfig holds TLS/HTTPS certificate settings
type TLSConfig struct {
	Enabled  bool
	CertFile string
	KeyFile  string
}

// AuthConfig holds session authentication settings
type AuthConfig struct {
	SessionTTL      time.Duration
	RememberMeTTL   time.Duration
	SessionCacheTTL time.Duration
}

// CORSConfig holds CORS middleware settings
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	MaxAge         int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoadConfig loads configuration from environment variables
func LoadConfig(logger *slog.Logger) (*Config, error) {
	// Load .env file (ignore error if it doesn't exist)
	godotenv.Load()

	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("loading application configuration")

	config := &Config{}

	if err := loadAppConfig(&config.App, logger); err != nil {
		return nil, fmt.Errorf("failed to load app config: %w", err)
	}

	if err := loadServerConfig(&config.Server, logger); err != nil {
		return nil, fmt.Errorf("failed to load server config: %w", err)
	}

	if err := loadDatabaseConfig(&config.Database, logger); err != nil {
		return nil, fmt.Errorf("failed to load database config: %w", err)
	}

	loadTLSConfig(&config.TLS, logger)
	loadAuthConfig(&config.Auth, logger)
	loadCORSConfig(&config.CORS, logger)
	loadRedisConfig(&config.Redis, logger)

	logger.Info("configuration loaded successfully",
		"environment", config.App.Environment,
		"version", config.App.Version,
		"port", config.Server.Port,
	)

	return config, nil
}

func loadAppConfig(cfg *AppConfig, logger *slog.Logger) error {
	version := os.Getenv("VERSION")
	if version == "" {
		version = "1.0.0"
		logger.Warn("VERSION not set, using default", "default", version)
	}
	cfg.Version = version

	env := os.Getenv("ENV")
	if env == "" {
		env = "development"
		logger.Warn("ENV not set, using default", "default", env)
	}
	cfg.Environment = env

	basePath := os.Getenv("BASE_PATH")
	if basePath == "" {
		basePath = "/"
	}
	cfg.BasePath = basePath

	return nil
}

func loadServerConfig(cfg *ServerConfig, logger *slog.Logger) error {
	port := os.Getenv("PORT")
	if port == "" {
		return fmt.Errorf("PORT environment variable is required")
	}
	cfg.Port = port

	protocol := os.Getenv("PROTOCOL")
	if protocol == "" {
		protocol = "http"
		logger.Warn("PROTOCOL not set, using default", "default", protocol)
	}
	cfg.Protocol = protocol

	domain := os.Getenv("DOMAIN")
	if domain == "" {
		domain = "localhost"
		logger.Warn("DOMAIN not set, using default", "default", domain)
	}
	cfg.Domain = domain

	return nil
}

func loadDatabaseConfig(cfg *DatabaseConfig, logger *slog.Logger) error {
	dbURL := os.Getenv("DB_URL")
	if dbURL == "" {
		return fmt.Errorf("DB_URL environment variable is required")
	}
	cfg.URL = dbURL

	// Pool settings with defaults
	cfg.MaxConns = getEnvAsInt32("DB_MAX_CONNS", 10)
	cfg.MinConns = getEnvAsInt32("DB_MIN_CONNS", 2)

	// Duration settings
	healthCheckSec := getEnvAsInt32("DB_HEALTH_CHECK_PERIOD_SECONDS", 60)
	cfg.HealthCheckPeriod = time.Duration(healthCheckSec) * time.Second

	maxLifetimeMin := getEnvAsInt32("DB_MAX_CONN_LIFETIME_MINUTES", 0)
	cfg.MaxConnLifetime = time.Duration(maxLifetimeMin) * time.Minute

	maxIdleMin := getEnvAsInt32("DB_MAX_CONN_IDLE_TIME_MINUTES", 0)
	cfg.MaxConnIdleTime = time.Duration(maxIdleMin) * time.Minute

	// Connection settings
	cfg.ConnectTimeout = 10 * time.Second
	cfg.MaxRetries = 3
	cfg.RetryDelay = 1 * time.Second

	logger.Debug("database config loaded",
		"max_conns", cfg.MaxConns,
		"min_conns", cfg.MinConns,
	)

	return nil
}

func loadTLSConfig(cfg *TLSConfig, logger *slog.Logger) {
	certFile := os.Getenv("TLS_CERT_FILE")
	keyFile := os.Getenv("TLS_KEY_FILE")

	cfg.CertFile = certFile
	cfg.KeyFile = keyFile
	cfg.Enabled = certFile != "" && keyFile != ""

	if cfg.Enabled {
		logger.Info("TLS enabled", "cert_file", certFile, "key_file", keyFile)
	}
}

func loadAuthConfig(cfg *AuthConfig, logger *slog.Logger) {
	sessionHours := getEnvAsInt("SESSION_TTL_HOURS", 1)
	cfg.SessionTTL = time.Duration(sessionHours) * time.Hour

	rememberHours := getEnvAsInt("SESSION_REMEMBER_ME_TTL_HOURS", 72)
	cfg.RememberMeTTL = time.Duration(rememberHours) * time.Hour

	cacheSec := getEnvAsInt("SESSION_CACHE_TTL_SECONDS", 60)
	cfg.SessionCacheTTL = time.Duration(cacheSec) * time.Second

	logger.Debug("auth config loaded",
		"session_ttl", cfg.SessionTTL,
		"remember_me_ttl", cfg.RememberMeTTL,
	)
}

func loadCORSConfig(cfg *CORSConfig, logger *slog.Logger) {
	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = splitAndTrim(origins, ",")
	} else {
		cfg.AllowedOrigins = []string{"*"}
		logger.Warn("CORS_ALLOWED_ORIGINS not set, allowing all origins (not recommended for production)")
	}

	if methods := os.Getenv("CORS_ALLOWED_METHODS"); methods != "" {
		cfg.AllowedMethods = splitAndTrim(methods, ",")
	} else {
		cfg.AllowedMethods = []string{"PUT", "GET", "POST", "DELETE", "OPTIONS"}
	}

	if headers := os.Getenv("CORS_ALLOWED_HEADERS"); headers != "" {
		cfg.AllowedHeaders = splitAndTrim(headers, ",")
	} else {
		cfg.AllowedHeaders = []string{"Authorization", "Content-Type"}
	}

	cfg.MaxAge = getEnvAsInt("CORS_MAX_AGE", 86400)

	logger.Debug("CORS config loaded", "origins_count", len(cfg.AllowedOrigins))
}

func loadRedisConfig(cfg *RedisConfig, logger *slog.Logger) {
	cfg.Addr = os.Getenv("REDIS_ADDR")
	cfg.Password = os.Getenv("REDIS_PASSWORD")
	cfg.DB = getEnvAsInt("REDIS_DB", 0)

	if cfg.Addr != "" {
		logger.Debug("Redis config loaded", "addr", cfg.Addr, "db", cfg.DB)
	}
}

// Helper functions

func getEnvAsInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}

func getEnvAsInt32(key string, defaultVal int32) int32 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return int32(parsed)
		}
	}
	return defaultVal
}

func splitAndTrim(s, sep string) []string {
	if s == "" {
		return []string{}
	}
	parts := strings.Split(s, sep)
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// GetServerAddress returns the full server address (protocol://domain:port)
func (c *Config) GetServerAddress() string {
	if c.Server.Protocol == "https" && c.Server.Port == "443" {
		return fmt.Sprintf("https://%s", c.Server.Domain)
	}
	if c.Server.Protocol == "http" && c.Server.Port == "80" {
		return fmt.Sprintf("http://%s", c.Server.Domain)
	}
	return fmt.Sprintf("%s://%s:%s", c.Server.Protocol, c.Server.Domain, c.Server.Port)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Database.URL == "" {
		return fmt.Errorf("database URL is required")
	}
	if c.Auth.SessionTTL <= 0 || c.Auth.RememberMeTTL <= 0 {
		return fmt.Errorf("session TTLs must be positive")
	}
	return nil
}
