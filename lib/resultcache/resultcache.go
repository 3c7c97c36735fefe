package resultcache

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultTTL  = time.Hour
	DefaultSize = 256
)

type Options struct {
	TTL  time.Duration
	Size int
}

type Stats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Entries int   `json:"entries"`
}

// Cache is a time-boxed memo of load results. Failed loads are not cached
// and concurrent loads of one key share a single call.
type Cache[V any] struct {
	lru   *expirable.LRU[string, V]
	group singleflight.Group

	hits   atomic.Int64
	misses atomic.Int64
}

func New[V any](opts Options) *Cache[V] {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Size <= 0 {
		opts.Size = DefaultSize
	}
	return &Cache[V]{
		lru: expirable.NewLRU[string, V](opts.Size, nil, opts.TTL),
	}
}

// GetOrLoad returns the cached value for key or calls load. The load runs
// detached from the caller's cancellation so that one impatient caller
// cannot fail the callers waiting on the same key.
func (c *Cache[V]) GetOrLoad(ctx context.Context, key string, load func(ctx context.Context) (V, error)) (V, error) {
	if cached, hit := c.lru.Get(key); hit {
		c.hits.Add(1)
		return cached, nil
	}
	c.misses.Add(1)

	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		// another caller may have filled the key while this one waited
		if cached, hit := c.lru.Get(key); hit {
			return cached, nil
		}
		value, err := load(loadCtx)
		if err != nil {
			return nil, err
		}
		c.lru.Add(key, value)
		return value, nil
	})

	var zero V
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		value, ok := res.Val.(V)
		if !ok {
			return zero, fmt.Errorf("resultcache: unexpected value type %T", res.Val)
		}
		return value, nil
	}
}

func (c *Cache[V]) Invalidate(key string) {
	c.lru.Remove(key)
}

func (c *Cache[V]) Purge() {
	c.lru.Purge()
}

func (c *Cache[V]) Stats() Stats {
	return Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Entries: c.lru.Len(),
	}
}

// Key joins parts into a cache key.
func Key(parts ...any) string {
	key := ""
	for i, p := range parts {
		if i > 0 {
			key += "|"
		}
		key += fmt.Sprint(p)
	}
	return key
}
