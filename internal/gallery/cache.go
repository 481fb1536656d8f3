package gallery

import (
	"sync"
	"time"
)

// templateCache is a TTL cache for per-source gallery results, so the
// sign-in warm actually saves the later session-creation fetch.
type templateCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration

	stopCleanup chan struct{}
	stopOnce    sync.Once
}

type cacheEntry struct {
	templates []Template
	expiresAt time.Time
}

func newTemplateCache(ttl time.Duration) *templateCache {
	c := &templateCache{
		entries:     make(map[string]cacheEntry),
		ttl:         ttl,
		stopCleanup: make(chan struct{}),
	}
	go c.cleanupLoop()
	return c
}

func (c *templateCache) Get(key string) ([]Template, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.templates, true
}

func (c *templateCache) Set(key string, templates []Template) {
	c.mu.Lock()
	c.entries[key] = cacheEntry{
		templates: templates,
		expiresAt: time.Now().Add(c.ttl),
	}
	c.mu.Unlock()
}

func (c *templateCache) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			now := time.Now()
			for key, entry := range c.entries {
				if now.After(entry.expiresAt) {
					delete(c.entries, key)
				}
			}
			c.mu.Unlock()
		case <-c.stopCleanup:
			return
		}
	}
}

// Stop stops the background cleanup goroutine. Safe to call multiple times.
func (c *templateCache) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCleanup)
	})
}
