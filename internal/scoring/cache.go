package scoring

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/offerscout/offerscout/internal/models"
)

// resultCache memoizes scoring results by an input fingerprint so batched
// or repeated products never trigger redundant AI calls.
type resultCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]cacheEntry
}

type cacheEntry struct {
	result    models.ScoredProduct
	expiresAt time.Time
}

func newResultCache(ttl time.Duration) *resultCache {
	return &resultCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

func (c *resultCache) get(key string) (models.ScoredProduct, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return models.ScoredProduct{}, false
	}
	if time.Now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return models.ScoredProduct{}, false
	}
	return entry.result, true
}

func (c *resultCache) set(key string, result models.ScoredProduct) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{result: result, expiresAt: time.Now().Add(c.ttl)}
}

func (c *resultCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// cacheKey fingerprints the attributes that influence a score. Two products
// with identical attributes share one cache slot regardless of scrape time.
func cacheKey(p models.NormalizedProduct, useAI bool) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%.2f|%.2f|%.2f|%s|%s|%t",
		p.Name, p.Price, p.Commission, p.Temperature, p.Category, p.Platform, useAI)))
	return hex.EncodeToString(sum[:])
}
