package atoms_test

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"goflare.io/atoms"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type eventLog struct {
	mu     sync.Mutex
	events []atoms.Event
}

func (l *eventLog) Observe(ev atoms.Event) error {
	l.mu.Lock()
	l.events = append(l.events, ev)
	l.mu.Unlock()
	return nil
}

func (l *eventLog) Kinds() []atoms.EventKind {
	l.mu.Lock()
	defer l.mu.Unlock()
	kinds := make([]atoms.EventKind, 0, len(l.events))
	for _, ev := range l.events {
		kinds = append(kinds, ev.Kind)
	}
	return kinds
}

func newCache(t *testing.T, opts ...atoms.Option) (*atoms.Cache, *clock, *eventLog) {
	t.Helper()
	clk := &clock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	log := &eventLog{}
	base := []atoms.Option{
		atoms.WithNow(clk.Now),
		atoms.WithSweepInterval(0),
		atoms.WithObservers(atoms.ObserverFunc(log.Observe)),
	}
	c, err := atoms.New(context.Background(), "test", append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Destroy(context.Background()) })
	return c, clk, log
}

func keys(t *testing.T, c *atoms.Cache) []string {
	t.Helper()
	ks, err := c.Keys(context.Background())
	require.NoError(t, err)
	sort.Strings(ks)
	return ks
}

func TestCache_LRU(t *testing.T) {
	ctx := context.Background()
	c, _, log := newCache(t, atoms.WithCapacity(2), atoms.WithPolicy(atoms.LRU))

	require.NoError(t, c.Put(ctx, "a", 1))
	require.NoError(t, c.Put(ctx, "b", 2))
	v, ok, err := c.Get(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, v)
	require.NoError(t, c.Put(ctx, "c", 3))

	assert.Equal(t, []string{"a", "c"}, keys(t, c))
	assert.Equal(t, "test", c.Name())
	assert.Equal(t, []atoms.EventKind{atoms.EventPut, atoms.EventPut, atoms.EventEvicted, atoms.EventPut}, log.Kinds())
}

func TestCache_TTL(t *testing.T) {
	ctx := context.Background()
	c, clk, log := newCache(t, atoms.WithDefaultTTL(time.Minute))

	require.NoError(t, c.Put(ctx, "short", 1, time.Second))
	require.NoError(t, c.Put(ctx, "default", 2))
	require.NoError(t, c.Put(ctx, "forever", 3, atoms.NoExpiration))

	clk.Advance(2 * time.Second)
	_, ok, err := c.Get(ctx, "short")
	require.NoError(t, err)
	assert.False(t, ok)

	clk.Advance(time.Hour)
	n, err := c.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"forever"}, keys(t, c))

	assert.Equal(t, []atoms.EventKind{
		atoms.EventPut, atoms.EventPut, atoms.EventPut, atoms.EventExpired, atoms.EventExpired,
	}, log.Kinds())
}

func TestCache_TTLOnlyRejects(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newCache(t, atoms.WithCapacity(1), atoms.WithPolicy(atoms.TTLOnly))

	require.NoError(t, c.Put(ctx, "a", 1))
	assert.ErrorIs(t, c.Put(ctx, "b", 2), atoms.ErrCapacityExceeded)
	assert.Equal(t, int64(1), c.Stats().Rejections)
}

func TestCache_EvictAndClear(t *testing.T) {
	ctx := context.Background()
	c, _, log := newCache(t)

	require.NoError(t, c.Evict(ctx, "missing"))
	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, c.Put(ctx, k, k))
	}
	require.NoError(t, c.Evict(ctx, "a"))
	n, err := c.EvictAll(ctx, []string{"b", "x"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = c.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 0, c.Len())

	assert.Equal(t, []atoms.EventKind{
		atoms.EventPut, atoms.EventPut, atoms.EventPut,
		atoms.EventRemoved, atoms.EventRemoved, atoms.EventClearedAll,
	}, log.Kinds())
}

func TestCache_Destroy(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newCache(t)
	require.NoError(t, c.Put(ctx, "a", 1))

	require.NoError(t, c.Destroy(ctx))
	assert.True(t, c.Destroyed())

	_, _, err := c.Get(ctx, "a")
	assert.ErrorIs(t, err, atoms.ErrCacheUnusable)
	assert.ErrorIs(t, c.Put(ctx, "a", 1), atoms.ErrCacheUnusable)
	assert.ErrorIs(t, c.Evict(ctx, "a"), atoms.ErrCacheUnusable)
	_, err = c.Clear(ctx)
	assert.ErrorIs(t, err, atoms.ErrCacheUnusable)
	_, err = c.Keys(ctx)
	assert.ErrorIs(t, err, atoms.ErrCacheUnusable)
	assert.ErrorIs(t, c.Destroy(ctx), atoms.ErrCacheUnusable)
}

func TestCache_StrictKeys(t *testing.T) {
	c, _, _ := newCache(t, atoms.WithStrictKeys(true))
	assert.ErrorIs(t, c.Put(context.Background(), "", 1), atoms.ErrInvalidKey)
}

func TestCache_GetOrLoad(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newCache(t)

	calls := 0
	loader := func(_ context.Context, key string) (any, error) {
		calls++
		return "value-" + key, nil
	}
	for range 3 {
		v, err := c.GetOrLoad(ctx, "k", loader)
		require.NoError(t, err)
		assert.Equal(t, "value-k", v)
	}
	assert.Equal(t, 1, calls)

	stats := c.Stats()
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 1, stats.Size)
}

type putCounter struct {
	atoms.NopObserver
	puts int
}

func (p *putCounter) OnPut(string, string, any) error {
	p.puts++
	return nil
}

func TestCache_RegisterObserver(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newCache(t)

	counter := &putCounter{}
	id, err := c.RegisterObserver(counter)
	require.NoError(t, err)

	require.NoError(t, c.Put(ctx, "a", 1))
	require.NoError(t, c.Evict(ctx, "a"))
	assert.True(t, c.UnregisterObserver(id))
	require.NoError(t, c.Put(ctx, "b", 1))
	assert.Equal(t, 1, counter.puts)
}

func TestCache_LogsLifecycle(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	c, err := atoms.New(context.Background(), "logged", atoms.WithLogger(zap.New(core)), atoms.WithSweepInterval(0))
	require.NoError(t, err)
	require.NoError(t, c.Destroy(context.Background()))

	assert.Equal(t, 1, logs.FilterMessage("Cache created").Len())
	destroyed := logs.FilterMessage("Cache destroyed").All()
	require.Len(t, destroyed, 1)
	assert.Equal(t, "logged", destroyed[0].ContextMap()["cache"])
}

func TestNew_InvalidOptions(t *testing.T) {
	_, err := atoms.New(context.Background(), "")
	assert.Error(t, err)

	_, err = atoms.New(context.Background(), "c", atoms.WithPolicy("random"))
	assert.Error(t, err)
}
