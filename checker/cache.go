// ABOUTME: Expiring LRU cache of check results keyed by file identity
// ABOUTME: A changed size or modification time makes the cached result unreachable

package checker

import (
	"fmt"
	"os"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	// DefaultCacheSize is the number of results kept when no size is given
	DefaultCacheSize = 1024

	// DefaultCacheTTL is how long a result stays cached when no TTL is given
	DefaultCacheTTL = 10 * time.Minute
)

// Cache holds check results for files that have not changed since they were checked
type Cache struct {
	entries *lru.LRU[string, Result]
}

// NewCache creates a cache of up to size results that expire after ttl.
// Non-positive arguments select the defaults.
func NewCache(size int, ttl time.Duration) *Cache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{
		entries: lru.NewLRU[string, Result](size, nil, ttl),
	}
}

// cacheKey identifies a file's contents by path, size, and modification time
func cacheKey(path string, info os.FileInfo) string {
	return fmt.Sprintf("%s|%d|%d", path, info.Size(), info.ModTime().UnixNano())
}

// Get returns the cached result for the file, if any
func (c *Cache) Get(path string, info os.FileInfo) (Result, bool) {
	return c.entries.Get(cacheKey(path, info))
}

// Add stores a result for the file
func (c *Cache) Add(path string, info os.FileInfo, r Result) {
	c.entries.Add(cacheKey(path, info), r)
}

// Len returns the number of cached results
func (c *Cache) Len() int {
	return c.entries.Len()
}

// Purge drops every cached result
func (c *Cache) Purge() {
	c.entries.Purge()
}
