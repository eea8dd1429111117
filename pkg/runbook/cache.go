// Package runbook provides GitHub-based runbook fetching, caching, and URL resolution.
package runbook

import (
	"sync"
	"time"
)

// cacheEntry holds cached content with a timestamp for TTL expiration.
// A miss entry (missing=true) remembers that the most recent fetch for
// a key came back not-found, so a Planner re-asking for the same broken
// runbook link within one query doesn't repeat the GitHub round trip.
type cacheEntry struct {
	content   string
	fetchedAt time.Time
	missing   bool
}

// Cache is a thread-safe in-memory cache with TTL expiration.
// Expired entries are cleaned up lazily on Get() — no background goroutine.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	ttl     time.Duration
}

// NewCache creates a new cache with the given TTL.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		entries: make(map[string]*cacheEntry),
		ttl:     ttl,
	}
}

// Get returns cached content if present and not expired.
func (c *Cache) Get(url string) (string, bool) {
	c.mu.RLock()
	entry, ok := c.entries[url]
	c.mu.RUnlock()

	if !ok {
		return "", false
	}

	if time.Since(entry.fetchedAt) > c.ttl {
		// Expired — clean up lazily.
		// Re-check under write lock: a concurrent Set() may have replaced
		// the entry with a fresh one between RUnlock and Lock.
		c.mu.Lock()
		if current, ok := c.entries[url]; ok && time.Since(current.fetchedAt) > c.ttl {
			delete(c.entries, url)
		}
		c.mu.Unlock()
		return "", false
	}

	return entry.content, true
}

// Set stores content with the current timestamp.
func (c *Cache) Set(url string, content string) {
	c.mu.Lock()
	c.entries[url] = &cacheEntry{
		content:   content,
		fetchedAt: time.Now(),
	}
	c.mu.Unlock()
}

// GetOrMiss returns cached content along with whether the cached entry
// (if any) represents a remembered not-found result.
func (c *Cache) GetOrMiss(url string) (content string, found bool, isMiss bool) {
	c.mu.RLock()
	entry, ok := c.entries[url]
	c.mu.RUnlock()

	if !ok {
		return "", false, false
	}
	if time.Since(entry.fetchedAt) > c.ttl {
		c.mu.Lock()
		if current, ok := c.entries[url]; ok && time.Since(current.fetchedAt) > c.ttl {
			delete(c.entries, url)
		}
		c.mu.Unlock()
		return "", false, false
	}

	return entry.content, true, entry.missing
}

// SetMiss remembers that url was not found on the most recent fetch.
func (c *Cache) SetMiss(url string) {
	c.mu.Lock()
	c.entries[url] = &cacheEntry{
		fetchedAt: time.Now(),
		missing:   true,
	}
	c.mu.Unlock()
}
