package spatial

import (
	"math"
	"strconv"
	"sync/atomic"

	"github.com/patrickmn/go-cache"
)

// CachedIndexer memoizes another Indexer per exact (lat, lon, level).
// Occurrence data repeats coordinates heavily (survey sites, roost
// boxes), so most lookups after the first pass are hits.
type CachedIndexer struct {
	next   Indexer
	cache  *cache.Cache
	hits   atomic.Int64
	misses atomic.Int64
}

// NewCachedIndexer wraps next. Entries never expire; call Purge between
// runs to release memory.
func NewCachedIndexer(next Indexer) *CachedIndexer {
	return &CachedIndexer{
		next:  next,
		cache: cache.New(cache.NoExpiration, 0),
	}
}

// CellID returns the wrapped indexer's answer, from cache when possible.
// Errors are not cached.
func (c *CachedIndexer) CellID(lat, lon float64, level int) (int64, error) {
	key := cacheKey(lat, lon, level)
	if v, found := c.cache.Get(key); found {
		if id, ok := v.(int64); ok {
			c.hits.Add(1)
			return id, nil
		}
	}

	c.misses.Add(1)
	id, err := c.next.CellID(lat, lon, level)
	if err != nil {
		return 0, err
	}
	c.cache.Set(key, id, cache.NoExpiration)
	return id, nil
}

// Stats returns cumulative hit and miss counts.
func (c *CachedIndexer) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Len returns the number of cached entries.
func (c *CachedIndexer) Len() int {
	return c.cache.ItemCount()
}

// Purge drops all cached entries and resets the counters.
func (c *CachedIndexer) Purge() {
	c.cache.Flush()
	c.hits.Store(0)
	c.misses.Store(0)
}

// cacheKey uses the raw float bits so that distinct coordinates never
// collide through formatting.
func cacheKey(lat, lon float64, level int) string {
	b := make([]byte, 0, 40)
	b = strconv.AppendInt(b, int64(level), 10)
	b = append(b, ':')
	b = strconv.AppendUint(b, math.Float64bits(lat), 16)
	b = append(b, ':')
	b = strconv.AppendUint(b, math.Float64bits(lon), 16)
	return string(b)
}
