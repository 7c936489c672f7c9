package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	domain "github.com/asistente-compras/api/internal/domain"
)

const (
	defaultCacheTTL      = time.Hour
	defaultCacheCapacity = 1024
)

// Cache key namespaces. Prefixing by operation type guarantees requests of
// different kinds can never collide on the same entry.
const (
	cacheNamespaceSuggestion = "suggestion"
	cacheNamespaceList       = "list"
	cacheNamespaceTrends     = "trends"
	cacheNamespaceEssence    = "essence"
)

// CacheStats is a snapshot of the live entries in the suggestion cache.
type CacheStats struct {
	Size int
	Keys []string
}

type cacheEntry struct {
	value    any
	storedAt time.Time
}

// SuggestionCacheDeps configures the cache. Zero values pick the defaults
// (1h TTL, capacity 1024, wall clock).
type SuggestionCacheDeps struct {
	TTL      time.Duration
	Capacity int
	Clock    func() time.Time
}

// SuggestionCache is a bounded in-memory cache with lazy TTL expiry. Expired
// entries are dropped on read; there is no background sweep.
type SuggestionCache struct {
	entries *lru.Cache[string, cacheEntry]
	ttl     time.Duration
	clock   func() time.Time
}

// NewSuggestionCache constructs the cache.
func NewSuggestionCache(deps SuggestionCacheDeps) (*SuggestionCache, error) {
	ttl := deps.TTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	capacity := deps.Capacity
	if capacity <= 0 {
		capacity = defaultCacheCapacity
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	entries, err := lru.New[string, cacheEntry](capacity)
	if err != nil {
		return nil, errors.New("suggestion cache: invalid capacity")
	}

	return &SuggestionCache{
		entries: entries,
		ttl:     ttl,
		clock: func() time.Time {
			return clock().UTC()
		},
	}, nil
}

// Get returns the cached value for the key, treating entries older than the
// TTL as absent.
func (c *SuggestionCache) Get(key string) (any, bool) {
	entry, ok := c.entries.Get(key)
	if !ok {
		return nil, false
	}
	if c.clock().Sub(entry.storedAt) > c.ttl {
		c.entries.Remove(key)
		return nil, false
	}
	return entry.value, true
}

// Put stores the value under the key, stamping it with the current time.
func (c *SuggestionCache) Put(key string, value any) {
	c.entries.Add(key, cacheEntry{value: value, storedAt: c.clock()})
}

// Clear drops every entry and reports how many were removed.
func (c *SuggestionCache) Clear() int {
	size := c.entries.Len()
	c.entries.Purge()
	return size
}

// Stats reports the live entries, expiring stale ones on the way.
func (c *SuggestionCache) Stats() CacheStats {
	keys := c.entries.Keys()
	live := make([]string, 0, len(keys))
	for _, key := range keys {
		if _, ok := c.Get(key); ok {
			live = append(live, key)
		}
	}
	return CacheStats{Size: len(live), Keys: live}
}

// Len reports the number of stored entries without expiring them.
func (c *SuggestionCache) Len() int {
	return c.entries.Len()
}

// SuggestionKey builds the cache key for a single product suggestion.
func SuggestionKey(query, context string, quality domain.QualityCategory) string {
	return cacheKey(cacheNamespaceSuggestion, query, context, string(quality))
}

// ListKey builds the cache key for generated list suggestions.
func ListKey(listType string, quality domain.QualityCategory, extras []string) string {
	parts := append([]string{listType, string(quality)}, extras...)
	return cacheKey(cacheNamespaceList, parts...)
}

// TrendsKey builds the cache key for per-user trend analysis.
func TrendsKey(userID string) string {
	return cacheKey(cacheNamespaceTrends, userID)
}

// EssenceKey builds the cache key for product-essence extraction.
func EssenceKey(productName string) string {
	return cacheKey(cacheNamespaceEssence, productName)
}

func cacheKey(namespace string, parts ...string) string {
	normalized := make([]string, 0, len(parts))
	for _, part := range parts {
		normalized = append(normalized, strings.ToLower(strings.TrimSpace(part)))
	}
	return fmt.Sprintf("%s:%s", namespace, strings.Join(normalized, "|"))
}
