package core

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"github.com/baliwise/ragcore/internal/config"
	"github.com/baliwise/ragcore/pkg/models"
)

// cachedResult is one stored answer with the sources that grounded it.
type cachedResult struct {
	answer    string
	sources   []models.Source
	expiresAt time.Time
}

// SemanticCache maps a normalized query fingerprint to a recent result so
// repeated questions skip the whole ReAct loop. Entries are TTL-bounded
// and the map is capped; on overflow the oldest-expiring entries are
// evicted first.
type SemanticCache struct {
	mu      sync.RWMutex
	entries map[string]cachedResult
	ttl     time.Duration
	maxSize int
}

// NewSemanticCache creates a cache from cfg.
func NewSemanticCache(cfg config.SemanticCacheConfig) *SemanticCache {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	maxSize := cfg.MaxSize
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &SemanticCache{entries: make(map[string]cachedResult), ttl: ttl, maxSize: maxSize}
}

// Fingerprint normalizes a query (lowercase, collapsed whitespace) and
// hashes it. Two queries differing only in case or spacing share a slot.
func Fingerprint(query string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	sum := sha1.Sum([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// Get returns a cached answer for query if one is present and fresh.
func (c *SemanticCache) Get(query string) (string, []models.Source, bool) {
	key := Fingerprint(query)
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || time.Now().After(entry.expiresAt) {
		return "", nil, false
	}
	return entry.answer, entry.sources, true
}

// Put stores a completed answer for query.
func (c *SemanticCache) Put(query, answer string, sources []models.Source) {
	key := Fingerprint(query)
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) >= c.maxSize {
		c.evictLocked()
	}
	c.entries[key] = cachedResult{answer: answer, sources: sources, expiresAt: time.Now().Add(c.ttl)}
}

// evictLocked drops expired entries, then the soonest-expiring entry if
// the map is still full. Caller holds c.mu.
func (c *SemanticCache) evictLocked() {
	now := time.Now()
	for k, v := range c.entries {
		if now.After(v.expiresAt) {
			delete(c.entries, k)
		}
	}
	if len(c.entries) < c.maxSize {
		return
	}
	var oldestKey string
	var oldest time.Time
	for k, v := range c.entries {
		if oldestKey == "" || v.expiresAt.Before(oldest) {
			oldestKey, oldest = k, v.expiresAt
		}
	}
	delete(c.entries, oldestKey)
}

// Len reports the current number of entries, fresh or not.
func (c *SemanticCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
