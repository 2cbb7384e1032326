package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Loader fetches a value on a cache miss.
type Loader[T any] func(ctx context.Context) (T, error)

// DefaultLoadTimeout bounds a shared load once it is detached from its callers.
const DefaultLoadTimeout = 30 * time.Second

type entry[T any] struct {
	key     string
	value   T
	expires time.Time
}

// LRUCache is a size-bounded cache whose entries also expire after a fixed
// TTL. The front of order is the most recently used entry.
type LRUCache[T any] struct {
	mu          sync.Mutex
	capacity    int
	ttl         time.Duration
	loadTimeout time.Duration
	index       map[string]*list.Element
	order       *list.List
	now         func() time.Time
	flight      singleflight.Group
}

// NewLRUCache returns a cache holding at most capacity entries (minimum 1).
func NewLRUCache[T any](capacity int, ttl time.Duration) *LRUCache[T] {
	return &LRUCache[T]{
		capacity:    max(capacity, 1),
		ttl:         ttl,
		loadTimeout: DefaultLoadTimeout,
		index:       make(map[string]*list.Element),
		order:       list.New(),
		now:         time.Now,
	}
}

func (c *LRUCache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.index[key]
	if !ok {
		var zero T
		return zero, false
	}
	e := el.Value.(*entry[T])
	if c.now().After(e.expires) {
		c.drop(el)
		var zero T
		return zero, false
	}
	c.order.MoveToFront(el)
	return e.value, true
}

func (c *LRUCache[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := &entry[T]{key: key, value: value, expires: c.now().Add(c.ttl)}
	if el, ok := c.index[key]; ok {
		el.Value = e
		c.order.MoveToFront(el)
		return
	}
	c.index[key] = c.order.PushFront(e)
	for c.order.Len() > c.capacity {
		c.drop(c.order.Back())
	}
}

// Load returns the cached value for key, calling load on a miss. Concurrent
// misses for the same key share one call; failed loads are not cached.
//
// The shared call keeps the first caller's context values but not its
// cancellation, and is bounded by DefaultLoadTimeout. Each caller stops
// waiting when its own ctx is done, without failing the others.
func (c *LRUCache[T]) Load(ctx context.Context, key string, load Loader[T]) (T, error) {
	var zero T
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	ch := c.flight.DoChan(key, func() (any, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.loadTimeout)
		defer cancel()
		v, err := load(lctx)
		if err != nil {
			return nil, err
		}
		c.Set(key, v)
		return v, nil
	})
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

// drop must be called with mu held.
func (c *LRUCache[T]) drop(el *list.Element) {
	delete(c.index, el.Value.(*entry[T]).key)
	c.order.Remove(el)
}

// CleanExpired removes expired entries and reports how many went.
func (c *LRUCache[T]) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for el := c.order.Back(); el != nil; {
		prev := el.Prev()
		if now.After(el.Value.(*entry[T]).expires) {
			c.drop(el)
			removed++
		}
		el = prev
	}
	return removed
}

func (c *LRUCache[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
