package middlewares

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"taskboard/internal/cache"
	"taskboard/internal/router"
)

// RateLimitConfig holds configuration for the token bucket rate limit unit
type RateLimitConfig struct {
	// Cache system for storing rate limit state.
	// If nil, uses in-memory store (not recommended for distributed systems)
	Cache cache.Cache

	// Logger for structured logging (optional, uses slog.Default if nil)
	Logger *slog.Logger

	// Capacity is the maximum number of tokens in the bucket
	// Default: 10
	Capacity int

	// RefillRate is the number of tokens added per second
	// Default: 1.0
	RefillRate float64

	// Message to return when rate limit is exceeded
	Message string

	// KeyGenerator generates the key for rate limiting
	// Default: uses client IP
	KeyGenerator func(r *http.Request) string

	// Store defines the storage mechanism for rate limiting
	// Default: in-memory store
	Store TokenBucketStore
}

// TokenBucket represents a token bucket state
type TokenBucket struct {
	Tokens     float64   // Current number of tokens
	LastRefill time.Time // Last time tokens were refilled
	Capacity   int       // Maximum tokens
	RefillRate float64   // Tokens added per second
}

// TokenBucketStore defines the interface for token bucket storage
type TokenBucketStore interface {
	// Allow checks if a request is allowed and updates the bucket
	Allow(ctx context.Context, key string, capacity int, refillRate float64) (allowed bool, remaining int, retryAfter time.Duration, err error)
	// Reset resets the bucket for a key
	Reset(ctx context.Context, key string) error
}

// MemoryTokenBucketStore implements an in-memory token bucket store
type MemoryTokenBucketStore struct {
	mu      sync.RWMutex
	buckets map[string]*TokenBucket
	stopCh  chan struct{}
}

// NewMemoryTokenBucketStore creates a new in-memory token bucket store
func NewMemoryTokenBucketStore() *MemoryTokenBucketStore {
	store := &MemoryTokenBucketStore{
		buckets: make(map[string]*TokenBucket),
		stopCh:  make(chan struct{}),
	}

	go store.cleanup()

	return store
}

// Close stops the background cleanup goroutine
func (m *MemoryTokenBucketStore) Close() {
	close(m.stopCh)
}

// Allow checks if a request is allowed using token bucket algorithm
func (m *MemoryTokenBucketStore) Allow(ctx context.Context, key string, capacity int, refillRate float64) (bool, int, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	bucket, exists := m.buckets[key]

	if !exists {
		bucket = &TokenBucket{
			Tokens:     float64(capacity),
			LastRefill: now,
			Capacity:   capacity,
			RefillRate: refillRate,
		}
		m.buckets[key] = bucket
	}

	refill(bucket, now, capacity, refillRate)

	if bucket.Tokens >= 1.0 {
		bucket.Tokens -= 1.0
		return true, int(bucket.Tokens), 0, nil
	}

	tokensNeeded := 1.0 - bucket.Tokens
	retryAfter := time.Duration(tokensNeeded/refillRate) * time.Second

	return false, 0, retryAfter, nil
}

// Reset resets the bucket for a key
func (m *MemoryTokenBucketStore) Reset(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.buckets, key)
	return nil
}

// cleanup removes buckets that haven't been accessed in a while
func (m *MemoryTokenBucketStore) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := time.Now()
			m.mu.Lock()
			for key, bucket := range m.buckets {
				if now.Sub(bucket.LastRefill) > 10*time.Minute {
					delete(m.buckets, key)
				}
			}
			m.mu.Unlock()
		case <-m.stopCh:
			return
		}
	}
}

// CacheTokenBucketStore implements a cache-backed token bucket store
type CacheTokenBucketStore struct {
	cache     cache.Cache
	keyPrefix string
}

// NewCacheTokenBucketStore creates a new cache token bucket store
func NewCacheTokenBucketStore(c cache.Cache, keyPrefix string) *CacheTokenBucketStore {
	if keyPrefix == "" {
		keyPrefix = "rate_limit:"
	}
	return &CacheTokenBucketStore{
		cache:     c,
		keyPrefix: keyPrefix,
	}
}

// Allow checks if a request is allowed using token bucket algorithm with cache
func (c *CacheTokenBucketStore) Allow(ctx context.Context, key string, capacity int, refillRate float64) (bool, int, time.Duration, error) {
	fullKey := c.keyPrefix + key
	now := time.Now()

	data, err := c.cache.Get(ctx, fullKey)
	var bucket *TokenBucket

	if err != nil || data == nil {
		bucket = &TokenBucket{
			Tokens:     float64(capacity),
			LastRefill: now,
			Capacity:   capacity,
			RefillRate: refillRate,
		}
	} else {
		bucket = &TokenBucket{}
		if err := json.Unmarshal(data, bucket); err != nil {
			return false, 0, 0, fmt.Errorf("failed to unmarshal bucket: %w", err)
		}
	}

	refill(bucket, now, capacity, refillRate)

	allowed := bucket.Tokens >= 1.0
	if allowed {
		bucket.Tokens -= 1.0
	}

	remaining := int(bucket.Tokens)

	var retryAfter time.Duration
	if !allowed {
		tokensNeeded := 1.0 - bucket.Tokens
		retryAfter = time.Duration(tokensNeeded/refillRate) * time.Second
	}

	// Keep the key alive for twice the full-refill time. Computed in
	// float so fractional refill rates stay well defined.
	ttl := time.Duration(float64(capacity)/refillRate*2) * time.Second
	if ttl < time.Minute {
		ttl = time.Minute
	}

	bucketData, err := json.Marshal(bucket)
	if err != nil {
		return false, 0, 0, fmt.Errorf("failed to marshal bucket: %w", err)
	}
	if err := c.cache.Set(ctx, fullKey, bucketData, ttl); err != nil {
		return false, 0, 0, fmt.Errorf("failed to save bucket: %w", err)
	}

	return allowed, remaining, retryAfter, nil
}

// Reset resets the bucket for a key
func (c *CacheTokenBucketStore) Reset(ctx context.Context, key string) error {
	fullKey := c.keyPrefix + key
	return c.cache.Delete(ctx, fullKey)
}

// refill adds tokens for the elapsed time, capped at capacity
func refill(bucket *TokenBucket, now time.Time, capacity int, refillRate float64) {
	elapsed := now.Sub(bucket.LastRefill).Seconds()
	tokens := bucket.Tokens + elapsed*refillRate
	if tokens > float64(capacity) {
		tokens = float64(capacity)
	}
	bucket.Tokens = tokens
	bucket.LastRefill = now
}

// DefaultRateLimitConfig returns a default token bucket rate limit configuration
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		Capacity:     10,
		RefillRate:   1.0,
		Message:      "Too many requests",
		KeyGenerator: defaultKeyGenerator,
	}
}

// defaultKeyGenerator generates a key based on client IP
func defaultKeyGenerator(r *http.Request) string {
	return ClientIP(r)
}

// RateLimit returns a token bucket rate limiting unit, typically
// attached to the login route to slow down credential guessing
func RateLimit(config *RateLimitConfig) router.Middleware {
	if config == nil {
		config = DefaultRateLimitConfig()
	}

	if config.Store == nil {
		if config.Cache != nil {
			config.Store = NewCacheTokenBucketStore(config.Cache, "rate_limit:")
		} else {
			config.Store = NewMemoryTokenBucketStore()
		}
	}
	if config.KeyGenerator == nil {
		config.KeyGenerator = defaultKeyGenerator
	}
	if config.Capacity <= 0 {
		config.Capacity = 10
	}
	if config.RefillRate <= 0 {
		config.RefillRate = 1.0
	}
	if config.Message == "" {
		config.Message = "Too many requests"
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return router.MiddlewareFunc(func(c *router.Context) *router.Response {
		key := config.KeyGenerator(c.Request)

		allowed, remaining, retryAfter, err := config.Store.Allow(c.Request.Context(), key, config.Capacity, config.RefillRate)
		if err != nil {
			logger.Error("rate limiter store error",
				"path", c.Request.URL.Path,
				"key", key,
				"error", err,
			)
			// A broken limiter should not block logins
			return nil
		}

		c.Writer.Header().Set("X-RateLimit-Limit", strconv.Itoa(config.Capacity))
		c.Writer.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			logger.Warn("rate limit exceeded",
				"path", c.Request.URL.Path,
				"key", key,
				"retry_after_seconds", int(retryAfter.Seconds())+1,
			)
			return router.NewResponse(http.StatusTooManyRequests, config.Message, nil).
				WithHeader("Retry-After", strconv.Itoa(int(retryAfter.Seconds())+1))
		}
		return nil
	})
}
