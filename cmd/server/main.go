package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"taskboard/api/routes"
	"taskboard/internal/auth"
	"taskboard/internal/cache"
	"taskboard/internal/config"
	"taskboard/internal/handlers"
	"taskboard/internal/middlewares"
	"taskboard/internal/observability"
	"taskboard/internal/router"
	"taskboard/internal/security"
	"taskboard/internal/server"
	"taskboard/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(),
	}))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig(logger)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	// Database
	dbConfig := config.DefaultDBConfig(cfg.Database.URL)
	dbConfig.Logger = logger
	dbConfig.MaxConns = cfg.Database.MaxConns
	dbConfig.MinConns = cfg.Database.MinConns
	dbConfig.HealthCheckPeriod = cfg.Database.HealthCheckPeriod

	pool, err := config.NewPool(dbConfig)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), 30*time.Second)
	if err := store.Migrate(migrateCtx, pool, logger); err != nil {
		log.Fatalf("Failed to migrate schema: %v", err)
	}
	cancelMigrate()

	resources := []server.Resource{
		server.NewDatabaseResource("postgres", pool),
	}

	// Session cache: redis when configured, in-process otherwise
	var sessionCache cache.Cache
	if cfg.Redis.Addr != "" {
		redisConfig := cache.DefaultRedisConfig()
		redisConfig.Addr = cfg.Redis.Addr
		redisConfig.Password = cfg.Redis.Password
		redisConfig.DB = cfg.Redis.DB
		redisConfig.Logger = logger

		redisCache, err := cache.NewRedisCache(redisConfig)
		if err != nil {
			logger.Warn("redis unavailable, using in-memory cache", "error", err)
			sessionCache = cache.NewMemoryCache(nil)
		} else {
			sessionCache = redisCache
			resources = append(resources, server.NewRedisResource("redis", redisCache.Client()))
		}
	} else {
		logger.Info("REDIS_ADDR not set, using in-memory cache")
		sessionCache = cache.NewMemoryCache(nil)
	}

	// Stores and services
	usersStore := store.NewUsers(pool)
	tasksStore := store.NewTasks(pool)
	sessionsStore := store.NewSessions(pool)

	sessionSvc := auth.NewService(sessionsStore, usersStore, sessionCache,
		observability.NewSessionMetrics("taskboard"), &auth.Config{
			SessionTTL:    cfg.Auth.SessionTTL,
			RememberMeTTL: cfg.Auth.RememberMeTTL,
			CacheTTL:      cfg.Auth.SessionCacheTTL,
			Logger:        logger,
		})

	// Stale session rows pile up until someone sweeps them
	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	go sessionJanitor(janitorCtx, sessionsStore, logger)
	resources = append(resources, server.NewCustomResource("session-janitor", func(ctx context.Context) error {
		stopJanitor()
		return nil
	}))

	// Routes and dispatcher
	h := handlers.NewHandler(usersStore, tasksStore, sessionSvc, security.NewSanitizer(nil), logger)

	registry := router.NewRegistry(logger)
	routes.Register(registry, h,
		middlewares.Auth(&middlewares.AuthConfig{Logger: logger}),
		middlewares.RateLimit(&middlewares.RateLimitConfig{
			Cache:      sessionCache,
			Capacity:   10,
			RefillRate: 0.5,
			Message:    "Too many login attempts",
			Logger:     logger,
		}),
	)

	corsUnit := middlewares.CORS(&middlewares.CORSConfig{
		AllowOrigins: cfg.CORS.AllowedOrigins,
		AllowMethods: cfg.CORS.AllowedMethods,
		AllowHeaders: cfg.CORS.AllowedHeaders,
		MaxAge:       cfg.CORS.MaxAge,
		Logger:       logger,
	})

	dispatcher := router.NewDispatcher(registry, sessionSvc, corsUnit,
		&router.DispatcherConfig{Debug: cfg.IsDevelopment()}, logger)

	// Operational endpoints live outside the dispatcher
	healthConfig := &observability.HealthConfig{
		Logger:       logger,
		DatabasePool: pool,
		CustomChecks: map[string]observability.HealthCheck{
			"cache": observability.RedisHealthCheck(sessionCache.Ping),
		},
		CheckTimeout: 5 * time.Second,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", observability.LivenessHandler(healthConfig))
	mux.HandleFunc("/health/ready", observability.ReadinessHandler(healthConfig))
	mux.Handle("/metrics", observability.MetricsHandler())
	mux.Handle("/", dispatcher)

	handler := buildOuterChain(mux, cfg, logger)

	// Server
	var serverConfig *server.Config
	addr := ":" + cfg.Server.Port
	if cfg.IsProduction() {
		serverConfig = server.ProductionConfig(addr)
	} else {
		serverConfig = server.DevelopmentConfig(addr)
	}
	serverConfig.Logger = logger
	if cfg.TLS.Enabled {
		serverConfig.TLSCertFile = cfg.TLS.CertFile
		serverConfig.TLSKeyFile = cfg.TLS.KeyFile
	}

	logger.Info("starting taskboard", "addr", cfg.GetServerAddress(), "environment", cfg.App.Environment)

	if err := server.Start(handler, serverConfig, resources); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// buildOuterChain wraps the mux with the process-wide middleware:
// request-id, security headers, request logging, metrics, recovery.
func buildOuterChain(mux http.Handler, cfg *config.Config, logger *slog.Logger) http.Handler {
	metricsConfig := observability.DefaultMetricsConfig("taskboard")
	metrics := observability.NewMetrics(metricsConfig)

	loggerConfig := middlewares.DefaultLoggerConfig()
	loggerConfig.Logger = logger

	var recoveryConfig *middlewares.RecoveryConfig
	if cfg.IsDevelopment() {
		recoveryConfig = middlewares.DevelopmentRecoveryConfig()
	} else {
		recoveryConfig = middlewares.ProductionRecoveryConfig()
	}
	recoveryConfig.Logger = logger

	securityConfig := middlewares.DefaultSecurityConfig()
	if cfg.IsProduction() {
		securityConfig = middlewares.ProductionSecurityConfig()
	}
	securityConfig.Logger = logger

	timeoutConfig := middlewares.DefaultTimeoutConfig()
	timeoutConfig.Logger = logger

	chain := []func(http.Handler) http.Handler{
		observability.RequestID(nil),
		middlewares.Security(securityConfig),
		middlewares.Timeout(timeoutConfig),
		middlewares.Logger(loggerConfig),
		metrics.Middleware(metricsConfig),
		middlewares.Recovery(recoveryConfig),
	}

	handler := mux
	for i := len(chain) - 1; i >= 0; i-- {
		handler = chain[i](handler)
	}
	return handler
}

// sessionJanitor sweeps expired session rows every hour.
func sessionJanitor(ctx context.Context, sessions store.SessionStore, logger *slog.Logger) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			removed, err := sessions.DeleteExpired(sweepCtx)
			cancel()
			if err != nil {
				logger.Warn("session sweep failed", "error", err)
				continue
			}
			if removed > 0 {
				logger.Info("expired sessions removed", "count", removed)
			}
		case <-ctx.Done():
			return
		}
	}
}

func logLevel() slog.Level {
	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
