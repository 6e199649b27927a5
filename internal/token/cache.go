// Package token issues short-lived conversation tokens for the voice-agent
// upstream. Tokens are cached per participant for a fixed window and fetched
// through an ordered list of candidate endpoints on a miss.
package token

import (
	"sync"
	"time"
)

// CachedToken is a token together with the time it was fetched.
type CachedToken struct {
	Key       string
	Token     string
	FetchedAt time.Time
}

// Age returns how long ago the token was fetched.
func (c CachedToken) Age(now time.Time) time.Duration {
	return now.Sub(c.FetchedAt)
}

// Cache stores at most one token per participant key. It never expires
// entries on its own; freshness is decided by the caller.
type Cache interface {
	Get(key string) (CachedToken, bool)
	Put(key, token string)
}

// MemoryCache is a process-lifetime Cache backed by a map. Entries are
// replaced whole, so readers never see a partially written value.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]CachedToken
	now     func() time.Time
}

// NewMemoryCache returns an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]CachedToken),
		now:     time.Now,
	}
}

// Get returns the entry for key, if any.
func (c *MemoryCache) Get(key string) (CachedToken, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key]
	return entry, ok
}

// Put overwrites the entry for key, stamping the current time.
func (c *MemoryCache) Put(key, token string) {
	entry := CachedToken{Key: key, Token: token, FetchedAt: c.now()}
	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()
}

// Len returns the number of cached keys.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
