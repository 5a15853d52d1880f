package application

import (
	"strings"
	"sync"
	"time"

	"github.com/example/governance-console/internal/document"
)

// documentCache stores recently rendered documents to avoid re-running the
// PDF generator for identical requests while a session remains unchanged.
type documentCache struct {
	mu         sync.RWMutex
	now        func() time.Time
	ttl        time.Duration
	maxEntries int
	entries    map[string]documentCacheEntry
}

type documentCacheEntry struct {
	file      document.File
	expiresAt time.Time
}

func newDocumentCache(ttl time.Duration, maxEntries int, now func() time.Time) *documentCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if maxEntries <= 0 {
		maxEntries = 64
	}
	if now == nil {
		now = time.Now
	}
	return &documentCache{
		now:        now,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]documentCacheEntry),
	}
}

func (c *documentCache) Get(key string) (document.File, bool) {
	if c == nil {
		return document.File{}, false
	}
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return document.File{}, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return document.File{}, false
	}
	return entry.file, true
}

func (c *documentCache) Store(key string, file document.File) {
	if c == nil {
		return
	}
	expiry := c.now().Add(c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cleanupLocked()
	if len(c.entries) >= c.maxEntries {
		c.evictOneLocked()
	}
	c.entries[key] = documentCacheEntry{file: file, expiresAt: expiry}
}

// InvalidateSession drops every cached document for the given session.
func (c *documentCache) InvalidateSession(sessionID string) {
	if c == nil {
		return
	}
	prefix := sessionID + "|"
	c.mu.Lock()
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
	c.mu.Unlock()
}

func (c *documentCache) cleanupLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

func (c *documentCache) evictOneLocked() {
	for key := range c.entries {
		delete(c.entries, key)
		return
	}
}

func documentCacheKey(sessionID, kind, updatedAt string) string {
	builder := strings.Builder{}
	builder.WriteString(sessionID)
	builder.WriteString("|")
	builder.WriteString(kind)
	builder.WriteString("|")
	builder.WriteString(updatedAt)
	return builder.String()
}
