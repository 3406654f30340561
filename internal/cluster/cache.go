package cluster

import (
	"strings"
	"sync"
	"time"
)

// Cache is a TTL cache for kubectl results keyed by the full argument
// list. It is created per invocation and handed to the runner explicitly;
// there is no process-wide cache.
type Cache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	at  time.Time
	res Result
}

// NewCache creates a cache whose entries expire after ttl.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
}

// Get returns the cached result for args if present and not expired.
func (c *Cache) Get(args []string) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[cacheKey(args)]
	if !ok || c.now().Sub(e.at) >= c.ttl {
		return Result{}, false
	}
	return e.res, true
}

// Set stores a result for args.
func (c *Cache) Set(args []string, res Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey(args)] = cacheEntry{at: c.now(), res: res}
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

// cacheKey joins args with a separator that cannot appear in shell words.
func cacheKey(args []string) string {
	return strings.Join(args, "\x1f")
}
