package query

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// DefaultTTL is how long a settled value is served without refetching.
const DefaultTTL = 15 * time.Second

// Cache holds successful fetch results keyed by query key. It is shared by
// every query of a process so that a remount within the TTL renders
// immediately.
type Cache struct {
	store *cache.Cache
	ttl   time.Duration
}

func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		store: cache.New(ttl, 2*ttl),
		ttl:   ttl,
	}
}

func (c *Cache) Get(key string) (any, bool) {
	if c == nil {
		return nil, false
	}
	return c.store.Get(key)
}

func (c *Cache) Set(key string, v any) {
	if c == nil {
		return
	}
	c.store.Set(key, v, c.ttl)
}

func (c *Cache) Invalidate(key string) {
	if c == nil {
		return
	}
	c.store.Delete(key)
}

func (c *Cache) Flush() {
	if c == nil {
		return
	}
	c.store.Flush()
}
