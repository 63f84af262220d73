package cache

import (
	"sync"
	"time"
)

// SemanticCache remembers which item a raw query resolved to through semantic
// search, so repeated queries skip the embedding call. Entries live for the
// process lifetime; only results that passed the acceptance threshold are stored.
type SemanticCache struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// Entry is a cached semantic resolution.
type Entry struct {
	ID         string
	Similarity float64
	StoredAt   time.Time
}

func NewSemanticCache() *SemanticCache {
	return &SemanticCache{
		entries: make(map[string]Entry),
	}
}

// Get returns the entry stored for the exact query string.
func (c *SemanticCache) Get(query string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[query]
	return entry, ok
}

// Put stores the resolution for query. A concurrent Put for the same query
// overwrites; the last writer wins.
func (c *SemanticCache) Put(query, id string, similarity float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[query] = Entry{
		ID:         id,
		Similarity: similarity,
		StoredAt:   time.Now(),
	}
}

// Invalidate drops every entry, e.g. after the vector index is rebuilt.
func (c *SemanticCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]Entry)
}

func (c *SemanticCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
