package cache

import (
	"context"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"
)

// LoadFunc computes the value for a missing key.
type LoadFunc[T any] func(ctx context.Context) (T, error)

// Loader fronts an LRUCache with a singleflight group so that concurrent
// misses for the same key run the load once.
//
// Every Invalidate starts a new generation. A load started in an older
// generation still answers the callers that joined it but never writes to
// the cache, and callers arriving after Invalidate start a fresh load.
type Loader[T any] struct {
	cache *LRUCache[T]
	group singleflight.Group

	mu         sync.Mutex
	generation uint64
}

func NewLoader[T any](c *LRUCache[T]) *Loader[T] {
	return &Loader[T]{cache: c}
}

// Cache returns the underlying cache.
func (l *Loader[T]) Cache() *LRUCache[T] {
	return l.cache
}

func (l *Loader[T]) currentGeneration() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.generation
}

// store caches v unless the cache was invalidated after gen began.
func (l *Loader[T]) store(gen uint64, key string, v T) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if gen == l.generation {
		l.cache.Set(key, v)
	}
}

// GetOrLoad returns the cached value for key or runs load and caches its
// result. Errors are not cached. The boolean reports a cache hit.
//
// The shared load is detached from ctx cancellation so one caller giving up
// does not fail the others; a cancelled caller returns ctx.Err() without
// waiting for the load.
func (l *Loader[T]) GetOrLoad(ctx context.Context, key string, load LoadFunc[T]) (T, bool, error) {
	var zero T
	if v, ok := l.cache.Get(key); ok {
		return v, true, nil
	}

	gen := l.currentGeneration()
	loadCtx := context.WithoutCancel(ctx)
	ch := l.group.DoChan(strconv.FormatUint(gen, 10)+"/"+key, func() (interface{}, error) {
		if v, ok := l.cache.Get(key); ok {
			return v, nil
		}
		v, err := load(loadCtx)
		if err != nil {
			return nil, err
		}
		l.store(gen, key, v)
		return v, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return zero, false, res.Err
		}
		return res.Val.(T), false, nil
	case <-ctx.Done():
		return zero, false, ctx.Err()
	}
}

// Invalidate drops every cached value. Loads already running when it is
// called do not repopulate the cache.
func (l *Loader[T]) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.generation++
	l.cache.Purge()
}
