// Package auth issues and resolves bearer-token sessions. Sessions
// live in postgres; resolution goes through an optional read-through
// cache so hot tokens avoid a database round trip.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"taskboard/internal/cache"
	"taskboard/internal/observability"
	"taskboard/internal/router"
	"taskboard/internal/security"
	"taskboard/internal/store"
)

// Config holds the session service configuration.
type Config struct {
	// SessionTTL is the default session lifetime.
	SessionTTL time.Duration

	// RememberMeTTL is the lifetime when the login asks to be
	// remembered.
	RememberMeTTL time.Duration

	// CacheTTL bounds how long a resolved identity may be served
	// from cache.
	CacheTTL time.Duration

	// Logger for structured logging (optional, uses slog.Default if nil)
	Logger *slog.Logger
}

// DefaultConfig returns the default session lifetimes.
func DefaultConfig() *Config {
	return &Config{
		SessionTTL:    1 * time.Hour,
		RememberMeTTL: 72 * time.Hour,
		CacheTTL:      60 * time.Second,
	}
}

// Service resolves bearer tokens to identities and manages session
// rows. It implements router.IdentityResolver.
type Service struct {
	sessions store.SessionStore
	users    store.UserStore
	cache    cache.Cache
	metrics  *observability.SessionMetrics
	config   *Config
	logger   *slog.Logger

	now func() time.Time
}

// NewService creates a session service. Cache and metrics are
// optional; pass nil to disable them.
func NewService(sessions store.SessionStore, users store.UserStore, c cache.Cache, metrics *observability.SessionMetrics, config *Config) *Service {
	if config == nil {
		config = DefaultConfig()
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		sessions: sessions,
		users:    users,
		cache:    c,
		metrics:  metrics,
		config:   config,
		logger:   logger,
		now:      time.Now,
	}
}

// IssueSession creates a session for the user and returns its bearer
// token and expiry.
func (s *Service) IssueSession(ctx context.Context, userID int64, rememberMe bool) (string, time.Time, error) {
	token, err := security.GenerateSessionToken()
	if err != nil {
		return "", time.Time{}, err
	}

	ttl := s.config.SessionTTL
	if rememberMe {
		ttl = s.config.RememberMeTTL
	}
	expiresAt := s.now().Add(ttl)

	if _, err := s.sessions.Create(ctx, userID, token, expiresAt); err != nil {
		return "", time.Time{}, fmt.Errorf("issue session: %w", err)
	}

	s.logger.Info("session issued", "user_id", userID, "remember_me", rememberMe, "expires_at", expiresAt)
	return token, expiresAt, nil
}

// RevokeToken deletes every session row carrying the token and drops
// the cached identity.
func (s *Service) RevokeToken(ctx context.Context, token string) error {
	if s.cache != nil {
		if err := s.cache.Delete(ctx, cacheKey(token)); err != nil {
			s.logger.Warn("session cache invalidation failed", "error", err)
		}
	}
	return s.sessions.DeleteByToken(ctx, token)
}

// ResolveToken maps a bearer token to the owning user's identity.
// A nil identity with nil error means the token carries no live
// session.
func (s *Service) ResolveToken(ctx context.Context, token string) (router.Identity, error) {
	if identity, ok := s.fromCache(ctx, token); ok {
		s.count("hit")
		return identity, nil
	}

	session, err := s.sessions.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.count("unknown")
			return nil, nil
		}
		s.count("error")
		return nil, err
	}

	if session.Expired(s.now()) {
		s.count("expired")
		return nil, nil
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Session outlived its user row
			s.count("unknown")
			return nil, nil
		}
		s.count("error")
		return nil, err
	}

	identity := router.Identity{
		"id":            user.ID,
		"name":          user.Name,
		"user_name":     user.UserName,
		"email":         user.Email,
		"registered_at": user.RegisteredAt,
	}

	s.toCache(ctx, token, identity, session.ExpiresAt)
	s.count("hit")
	return identity, nil
}

func (s *Service) fromCache(ctx context.Context, token string) (router.Identity, bool) {
	if s.cache == nil {
		return nil, false
	}

	data, err := s.cache.Get(ctx, cacheKey(token))
	if err != nil || data == nil {
		if s.metrics != nil {
			s.metrics.CacheMisses.WithLabelValues("session").Inc()
		}
		return nil, false
	}

	var identity router.Identity
	if err := json.Unmarshal(data, &identity); err != nil {
		s.logger.Warn("corrupt cached identity dropped", "error", err)
		return nil, false
	}

	if s.metrics != nil {
		s.metrics.CacheHits.WithLabelValues("session").Inc()
	}
	return identity, true
}

func (s *Service) toCache(ctx context.Context, token string, identity router.Identity, expiresAt time.Time) {
	if s.cache == nil {
		return
	}

	ttl := s.config.CacheTTL
	if remaining := expiresAt.Sub(s.now()); remaining < ttl {
		ttl = remaining
	}
	if ttl <= 0 {
		return
	}

	data, err := json.Marshal(identity)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, cacheKey(token), data, ttl); err != nil {
		s.logger.Warn("session cache write failed", "error", err)
	}
}

func (s *Service) count(outcome string) {
	if s.metrics != nil {
		s.metrics.Resolutions.WithLabelValues(outcome).Inc()
	}
}

func cacheKey(token string) string {
	return "session:" + token
}
