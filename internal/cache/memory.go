package cache

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// MemoryCache implements an in-memory cache with TTL support
type MemoryCache struct {
	config *Config
	items  map[string]*memoryCacheItem
	mu     sync.RWMutex
	stopCh chan struct{}
}

type memoryCacheItem struct {
	value      []byte
	expiration time.Time
	hasExpiry  bool
}

// NewMemoryCache creates a new in-memory cache
func NewMemoryCache(config *Config) *MemoryCache {
	if config == nil {
		config = DefaultConfig()
	}

	mc := &MemoryCache{
		config: config,
		items:  make(map[string]*memoryCacheItem),
		stopCh: make(chan struct{}),
	}

	go mc.cleanupExpired()

	return mc
}

// Get retrieves a value from the cache
func (mc *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	if !mc.config.Enabled {
		return nil, ErrCacheDisabled
	}

	key = mc.prefixKey(key)

	mc.mu.RLock()
	item, exists := mc.items[key]
	mc.mu.RUnlock()

	if !exists {
		return nil, ErrCacheNotFound
	}

	if item.hasExpiry && time.Now().After(item.expiration) {
		mc.mu.Lock()
		delete(mc.items, key)
		mc.mu.Unlock()
		return nil, ErrCacheNotFound
	}

	return item.value, nil
}

// Set stores a value in the cache with optional TTL
func (mc *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if !mc.config.Enabled {
		return ErrCacheDisabled
	}

	key = mc.prefixKey(key)

	if ttl == 0 {
		ttl = mc.config.DefaultTTL
	}

	item := &memoryCacheItem{
		value:     value,
		hasExpiry: ttl > 0,
	}
	if item.hasExpiry {
		item.expiration = time.Now().Add(ttl)
	}

	mc.mu.Lock()
	mc.items[key] = item
	mc.mu.Unlock()

	return nil
}

// Delete removes a value from the cache
func (mc *MemoryCache) Delete(ctx context.Context, key string) error {
	if !mc.config.Enabled {
		return ErrCacheDisabled
	}

	key = mc.prefixKey(key)

	mc.mu.Lock()
	delete(mc.items, key)
	mc.mu.Unlock()

	return nil
}

// Exists checks if a key exists in the cache
func (mc *MemoryCache) Exists(ctx context.Context, key string) (bool, error) {
	if !mc.config.Enabled {
		return false, ErrCacheDisabled
	}

	_, err := mc.Get(ctx, key)
	if err != nil {
		if err == ErrCacheNotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Clear removes all entries from the cache
func (mc *MemoryCache) Clear(ctx context.Context) error {
	if !mc.config.Enabled {
		return ErrCacheDisabled
	}

	mc.mu.Lock()
	mc.items = make(map[string]*memoryCacheItem)
	mc.mu.Unlock()

	return nil
}

// Increment increments a numeric value
func (mc *MemoryCache) Increment(ctx context.Context, key string, delta int64) (int64, error) {
	if !mc.config.Enabled {
		return 0, ErrCacheDisabled
	}

	key = mc.prefixKey(key)

	mc.mu.Lock()
	defer mc.mu.Unlock()

	item, exists := mc.items[key]
	if !exists {
		mc.items[key] = &memoryCacheItem{
			value:     []byte(strconv.FormatInt(delta, 10)),
			hasExpiry: false,
		}
		return delta, nil
	}

	currentValue, err := strconv.ParseInt(string(item.value), 10, 64)
	if err != nil {
		return 0, &CacheError{Op: "increment", Key: key, Err: err}
	}

	newValue := currentValue + delta
	item.value = []byte(strconv.FormatInt(newValue, 10))

	return newValue, nil
}

// TTL returns the remaining time to live for a key
func (mc *MemoryCache) TTL(ctx context.Context, key string) (time.Duration, error) {
	if !mc.config.Enabled {
		return 0, ErrCacheDisabled
	}

	key = mc.prefixKey(key)

	mc.mu.RLock()
	item, exists := mc.items[key]
	mc.mu.RUnlock()

	if !exists {
		return 0, ErrCacheNotFound
	}

	if !item.hasExpiry {
		return -1, nil // No expiration
	}

	ttl := time.Until(item.expiration)
	if ttl < 0 {
		return 0, nil // Expired
	}

	return ttl, nil
}

// Ping checks if the cache is accessible
func (mc *MemoryCache) Ping(ctx context.Context) error {
	if !mc.config.Enabled {
		return ErrCacheDisabled
	}
	return nil
}

// Close closes the cache connection
func (mc *MemoryCache) Close() error {
	close(mc.stopCh)
	return nil
}

// cleanupExpired periodically removes expired items
func (mc *MemoryCache) cleanupExpired() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			mc.removeExpiredItems()
		case <-mc.stopCh:
			return
		}
	}
}

func (mc *MemoryCache) removeExpiredItems() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	now := time.Now()
	for key, item := range mc.items {
		if item.hasExpiry && now.After(item.expiration) {
			delete(mc.items, key)
		}
	}
}

func (mc *MemoryCache) prefixKey(key string) string {
	if mc.config.Prefix == "" {
		return key
	}
	return mc.config.Prefix + key
}
