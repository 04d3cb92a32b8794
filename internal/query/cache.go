package query

import (
	"context"
	"sync"
	"time"
)

// Cache stores dispatcher responses and classifications for a TTL.
// Entries past their TTL are treated as absent.
type Cache interface {
	GetResponse(ctx context.Context, category, query string) (string, bool, error)
	SetResponse(ctx context.Context, category, query, payload string, ttl time.Duration) error
	GetClassification(ctx context.Context, query string) (string, bool, error)
	SetClassification(ctx context.Context, query, category string, ttl time.Duration) error
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// sweepInterval bounds how often writes scan the cache for expired
// entries.
const sweepInterval = time.Minute

// MemoryCache is the in-process cache used when Redis is not
// configured. Writes sweep out expired entries at most once per
// sweepInterval, keeping the map bounded without a background goroutine.
type MemoryCache struct {
	mu        sync.RWMutex
	entries   map[string]memoryEntry
	lastSweep time.Time
}

// NewMemoryCache creates an empty in-process cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries:   make(map[string]memoryEntry),
		lastSweep: time.Now(),
	}
}

func (c *MemoryCache) get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok || time.Now().After(entry.expiresAt) {
		return "", false
	}
	return entry.value, true
}

func (c *MemoryCache) set(key, value string, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if now.Sub(c.lastSweep) >= sweepInterval {
		for k, e := range c.entries {
			if now.After(e.expiresAt) {
				delete(c.entries, k)
			}
		}
		c.lastSweep = now
	}
	c.entries[key] = memoryEntry{value: value, expiresAt: now.Add(ttl)}
}

func (c *MemoryCache) GetResponse(ctx context.Context, category, query string) (string, bool, error) {
	val, ok := c.get("response:" + category + ":" + query)
	return val, ok, nil
}

func (c *MemoryCache) SetResponse(ctx context.Context, category, query, payload string, ttl time.Duration) error {
	c.set("response:"+category+":"+query, payload, ttl)
	return nil
}

func (c *MemoryCache) GetClassification(ctx context.Context, query string) (string, bool, error) {
	val, ok := c.get("class:" + query)
	return val, ok, nil
}

func (c *MemoryCache) SetClassification(ctx context.Context, query, category string, ttl time.Duration) error {
	c.set("class:"+query, category, ttl)
	return nil
}
