package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/iarunsaragadam/isobox/model"
)

type dedupEntry struct {
	response  *model.ExecuteResponse
	createdAt time.Time
}

// DedupStats reports the state of the dedup cache for the admin endpoint.
type DedupStats struct {
	Enabled        bool   `json:"dedup_enabled"`
	TotalEntries   int    `json:"total_entries"`
	ExpiredEntries int    `json:"expired_entries"`
	Backend        string `json:"cache_type"`
}

// DedupCache short-circuits repeated executions of identical (language, code)
// pairs within a TTL window. Only single-shot requests are deduplicated; test
// case runs depend on per-request inputs and always execute.
type DedupCache struct {
	mu         sync.RWMutex
	entries    map[string]dedupEntry
	ttl        time.Duration
	maxEntries int
	enabled    bool
}

// NewDedupCache creates a dedup cache. A disabled cache never stores or
// returns anything.
func NewDedupCache(enabled bool, ttl time.Duration, maxEntries int) *DedupCache {
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	return &DedupCache{
		entries:    make(map[string]dedupEntry),
		ttl:        ttl,
		maxEntries: maxEntries,
		enabled:    enabled,
	}
}

// Enabled reports whether deduplication is active.
func (c *DedupCache) Enabled() bool {
	return c.enabled
}

// Check returns a cached response for the language and code, if any.
func (c *DedupCache) Check(language, code string) (*model.ExecuteResponse, bool) {
	if !c.enabled {
		return nil, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[dedupKey(language, code)]
	if !ok || time.Since(entry.createdAt) > c.ttl {
		return nil, false
	}
	return entry.response, true
}

// Store records a response for the language and code.
func (c *DedupCache) Store(language, code string, response *model.ExecuteResponse) {
	if !c.enabled {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[dedupKey(language, code)] = dedupEntry{response: response, createdAt: time.Now()}

	for key, entry := range c.entries {
		if time.Since(entry.createdAt) > c.ttl {
			delete(c.entries, key)
		}
	}

	for len(c.entries) > c.maxEntries {
		oldestKey := ""
		var oldest time.Time
		for key, entry := range c.entries {
			if oldestKey == "" || entry.createdAt.Before(oldest) {
				oldestKey = key
				oldest = entry.createdAt
			}
		}
		delete(c.entries, oldestKey)
	}
}

// Invalidate removes the entry for the language and code.
func (c *DedupCache) Invalidate(language, code string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, dedupKey(language, code))
}

// Clear removes every entry.
func (c *DedupCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]dedupEntry)
}

// Stats reports cache state.
func (c *DedupCache) Stats() DedupStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	expired := 0
	for _, entry := range c.entries {
		if time.Since(entry.createdAt) > c.ttl {
			expired++
		}
	}

	return DedupStats{
		Enabled:        c.enabled,
		TotalEntries:   len(c.entries),
		ExpiredEntries: expired,
		Backend:        "memory",
	}
}

func dedupKey(language, code string) string {
	h := sha256.New()
	h.Write([]byte(language))
	h.Write([]byte{0})
	h.Write([]byte(code))
	return "dedup:" + language + ":" + hex.EncodeToString(h.Sum(nil))
}
