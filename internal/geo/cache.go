package geo

import "sync"

// RegionCache memoizes branch-code -> region resolutions for the lifetime
// of the process. Keys are full branch codes, never prefixes, so repeated
// exact codes resolve without any table or network work. Entries are never
// evicted; the branch-code space is small enough that unbounded growth is
// acceptable.
type RegionCache struct {
	mu      sync.RWMutex
	regions map[string]string
}

// NewRegionCache creates an empty cache. One instance is shared process-wide
// and injected into the resolver so tests can start fresh.
func NewRegionCache() *RegionCache {
	return &RegionCache{
		regions: make(map[string]string),
	}
}

// Get returns the cached region for a full branch code.
func (c *RegionCache) Get(code string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	region, ok := c.regions[code]
	return region, ok
}

// Put stores a resolution outcome. Failed resolutions are stored too, so a
// bad code is never retried within the process lifetime.
func (c *RegionCache) Put(code, region string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.regions[code] = region
}

// Len returns the number of memoized codes.
func (c *RegionCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.regions)
}
