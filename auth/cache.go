package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"sync"
	"time"
)

type cachedResult struct {
	result    *Result
	createdAt time.Time
}

// Cache is an in-memory TTL cache of authentication results keyed by the
// request's credential headers. It keeps repeated callers from paying the
// strategy cost (bcrypt, token parsing) on every request.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cachedResult
	maxSize int
	ttl     time.Duration
}

// NewCache creates an auth result cache.
func NewCache(maxSize int, ttl time.Duration) *Cache {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &Cache{
		entries: make(map[string]cachedResult),
		maxSize: maxSize,
		ttl:     ttl,
	}
}

// Get returns the cached result for the key if present and not expired.
func (c *Cache) Get(key string) (*Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok || time.Since(entry.createdAt) > c.ttl {
		return nil, false
	}
	return entry.result, true
}

// Set stores a result, evicting expired entries and then the oldest entries
// when the cache is over capacity.
func (c *Cache) Set(key string, result *Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cachedResult{result: result, createdAt: time.Now()}

	for k, entry := range c.entries {
		if time.Since(entry.createdAt) > c.ttl {
			delete(c.entries, k)
		}
	}

	for len(c.entries) > c.maxSize {
		oldestKey := ""
		var oldest time.Time
		for k, entry := range c.entries {
			if oldestKey == "" || entry.createdAt.Before(oldest) {
				oldestKey = k
				oldest = entry.createdAt
			}
		}
		delete(c.entries, oldestKey)
	}
}

// Invalidate removes the entry for the key.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear removes every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cachedResult)
}

// Len returns the number of entries currently held.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// cacheKey derives the cache key from the credential headers plus the caller
// identity headers, hashed so credentials never sit in memory as map keys.
func cacheKey(r *http.Request) string {
	h := sha256.New()
	h.Write([]byte(r.Header.Get("Authorization")))
	h.Write([]byte{0})
	h.Write([]byte(r.Header.Get("X-API-Key")))
	h.Write([]byte{0})
	h.Write([]byte(r.Header.Get("User-Agent")))
	h.Write([]byte{0})
	h.Write([]byte(r.RemoteAddr))
	return "auth:" + hex.EncodeToString(h.Sum(nil))
}
