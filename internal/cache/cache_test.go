package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestCache(size int, ttl time.Duration) (*LRUCache[int], *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[int](size, ttl)
	c.now = clock.now
	return c, clock
}

func TestLRUCache_Eviction(t *testing.T) {
	c, _ := newTestCache(2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	_, _ = c.Get("a")
	c.Set("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok, "least recently used entry is evicted")
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 2, c.Size())
	assert.Equal(t, uint64(1), c.Stats().Evictions)
}

func TestLRUCache_TTL(t *testing.T) {
	c, clock := newTestCache(10, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)

	clock.advance(30 * time.Second)
	c.Set("b", 3)
	clock.advance(45 * time.Second)

	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, c.CleanExpired(), "a was already dropped by Get")

	v, ok := c.Get("b")
	require.True(t, ok)
	assert.Equal(t, 3, v)

	clock.advance(time.Minute)
	assert.Equal(t, 1, c.CleanExpired())
	assert.Equal(t, 0, c.Size())
}

func TestLRUCache_ZeroTTLNeverExpires(t *testing.T) {
	c, clock := newTestCache(10, 0)
	c.Set("a", 1)
	clock.advance(24 * time.Hour)
	_, ok := c.Get("a")
	assert.True(t, ok)
}

func TestLRUCache_PurgeAndStats(t *testing.T) {
	c, _ := newTestCache(10, time.Minute)
	c.Set("a", 1)
	_, _ = c.Get("a")
	_, _ = c.Get("missing")
	c.Purge()

	assert.Equal(t, Stats{Size: 0, Hits: 1, Misses: 1}, c.Stats())
	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestLoader_GetOrLoad(t *testing.T) {
	l := NewLoader(NewLRUCache[int](10, time.Minute))
	ctx := context.Background()

	var calls int32
	load := func(context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		return 42, nil
	}

	v, hit, err := l.GetOrLoad(ctx, "k", load)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 42, v)

	v, hit, err = l.GetOrLoad(ctx, "k", load)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 42, v)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	l.Invalidate()
	_, hit, _ = l.GetOrLoad(ctx, "k", load)
	assert.False(t, hit)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestLoader_ErrorsAreNotCached(t *testing.T) {
	l := NewLoader(NewLRUCache[int](10, time.Minute))
	boom := errors.New("boom")

	_, _, err := l.GetOrLoad(context.Background(), "k", func(context.Context) (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, l.Cache().Size())
}

func TestLoader_ConcurrentMissesLoadOnce(t *testing.T) {
	l := NewLoader(NewLRUCache[int](10, time.Minute))
	release := make(chan struct{})
	var calls int32

	load := func(context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return 7, nil
	}

	var wg sync.WaitGroup
	results := make([]int, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, _, err := l.GetOrLoad(context.Background(), "k", load)
			if err == nil {
				results[i] = v
			}
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, v := range results {
		assert.Equal(t, 7, v)
	}
	assert.LessOrEqual(t, atomic.LoadInt32(&calls), int32(2))
}

func TestLoader_InvalidateDuringLoadDropsStaleResult(t *testing.T) {
	l := NewLoader(NewLRUCache[int](10, time.Minute))
	ctx := context.Background()

	var stored atomic.Int64
	stored.Store(1)
	started := make(chan struct{})
	release := make(chan struct{})

	slow := func(context.Context) (int, error) {
		v := int(stored.Load())
		close(started)
		<-release
		return v, nil
	}

	done := make(chan int)
	go func() {
		v, _, _ := l.GetOrLoad(ctx, "k", slow)
		done <- v
	}()
	<-started

	// a write lands while the first load is still running
	stored.Store(2)
	l.Invalidate()

	fresh := func(context.Context) (int, error) { return int(stored.Load()), nil }
	v, hit, err := l.GetOrLoad(ctx, "k", fresh)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, v)

	close(release)
	assert.Equal(t, 1, <-done)

	v, hit, err = l.GetOrLoad(ctx, "k", fresh)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 2, v)
}

func TestLoader_CancelledCallerDoesNotFailOthers(t *testing.T) {
	l := NewLoader(NewLRUCache[int](10, time.Minute))
	started := make(chan struct{})
	release := make(chan struct{})

	var once sync.Once
	load := func(ctx context.Context) (int, error) {
		once.Do(func() { close(started) })
		<-release
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		return 9, nil
	}

	first, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error)
	go func() {
		_, _, err := l.GetOrLoad(first, "k", load)
		firstErr <- err
	}()
	<-started

	second := make(chan int)
	go func() {
		v, _, err := l.GetOrLoad(context.Background(), "k", load)
		if err != nil {
			v = -1
		}
		second <- v
	}()

	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(release)
	assert.Equal(t, 9, <-second)
}

func TestManager_Sweep(t *testing.T) {
	c, clock := newTestCache(10, time.Minute)
	c.Set("a", 1)
	m := NewManager(nil)
	m.Register(c)

	assert.Equal(t, 0, m.Sweep())
	clock.advance(2 * time.Minute)
	assert.Equal(t, 1, m.Sweep())

	m.StartCleanup(time.Hour)
	m.Stop()
	m.Stop()
}
