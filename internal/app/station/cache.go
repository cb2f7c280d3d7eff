package station

import (
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/farecard/farecard/internal/domain"
)

// CachedLookup memoises another StationLookup. Misses are cached too, so a
// history full of the same unknown key hits the backing store once.
type CachedLookup struct {
	next  domain.StationLookup
	cache *cache.Cache
}

type cachedEntry struct {
	entry domain.StationEntry
	found bool
}

// NewCachedLookup wraps next with an expiring cache.
func NewCachedLookup(next domain.StationLookup, ttl time.Duration) *CachedLookup {
	return &CachedLookup{
		next:  next,
		cache: cache.New(ttl, 2*ttl),
	}
}

// LookupStation implements domain.StationLookup.
func (c *CachedLookup) LookupStation(key domain.StationKey) (domain.StationEntry, bool) {
	k := key.String()
	if v, ok := c.cache.Get(k); ok {
		ce := v.(cachedEntry)
		return ce.entry, ce.found
	}
	entry, found := c.next.LookupStation(key)
	c.cache.SetDefault(k, cachedEntry{entry: entry, found: found})
	return entry, found
}

// Flush drops every cached lookup.
func (c *CachedLookup) Flush() { c.cache.Flush() }

// ItemCount returns the number of cached keys.
func (c *CachedLookup) ItemCount() int { return c.cache.ItemCount() }
