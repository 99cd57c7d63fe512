package templates

import (
	"context"
	"time"

	"github.com/dmitrymomot/notifyhub/pkg/cache"
)

// Cached memoises successful lookups. Misses and errors are not cached.
type Cached struct {
	next Store
	lru  *cache.LRUCache[string, Template]
}

const defaultCacheSize = 256

func NewCached(next Store, size int, ttl time.Duration, opts ...cache.Option) *Cached {
	if size <= 0 {
		size = defaultCacheSize
	}
	return &Cached{
		next: next,
		lru:  cache.NewLRUCache[string, Template](size, append([]cache.Option{cache.WithTTL(ttl)}, opts...)...),
	}
}

func (c *Cached) Get(ctx context.Context, code string) (Template, error) {
	if t, ok := c.lru.Get(code); ok {
		return t, nil
	}
	t, err := c.next.Get(ctx, code)
	if err != nil {
		return Template{}, err
	}
	c.lru.Put(code, t)
	return t, nil
}

// Invalidate drops code from the cache.
func (c *Cached) Invalidate(code string) {
	c.lru.Remove(code)
}
