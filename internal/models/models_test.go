package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestEntry_ExpireAfterWrite(t *testing.T) {
	e := NewEntry("k", "v", time.Second, t0)

	assert.Equal(t, t0.Add(time.Second), e.ExpiresAt(ExpireAfterWrite))
	assert.False(t, e.IsExpired(ExpireAfterWrite, t0.Add(999*time.Millisecond)))
	assert.True(t, e.IsExpired(ExpireAfterWrite, t0.Add(time.Second)))

	e.IncrementAccess(t0.Add(900 * time.Millisecond))
	assert.True(t, e.IsExpired(ExpireAfterWrite, t0.Add(time.Second)))
}

func TestEntry_ExpireAfterAccess(t *testing.T) {
	e := NewEntry("k", "v", time.Second, t0)
	e.IncrementAccess(t0.Add(900 * time.Millisecond))

	assert.Equal(t, int64(1), e.AccessCount.Load())
	assert.False(t, e.IsExpired(ExpireAfterAccess, t0.Add(1500*time.Millisecond)))
	assert.True(t, e.IsExpired(ExpireAfterAccess, t0.Add(1900*time.Millisecond)))
}

func TestEntry_NoTTL(t *testing.T) {
	e := NewEntry("k", "v", 0, t0)
	assert.True(t, e.ExpiresAt(ExpireAfterWrite).IsZero())
	assert.False(t, e.IsExpired(ExpireAfterWrite, t0.Add(100*365*24*time.Hour)))
}

func TestEventKind_String(t *testing.T) {
	assert.Equal(t, "put", EventPut.String())
	assert.Equal(t, "removed", EventRemoved.String())
	assert.Equal(t, "evicted", EventEvicted.String())
	assert.Equal(t, "expired", EventExpired.String())
	assert.Equal(t, "cleared_all", EventClearedAll.String())
	assert.Equal(t, "EventKind(42)", EventKind(42).String())
}

func TestEventConstructors(t *testing.T) {
	assert.Equal(t, Event{Kind: EventPut, Cache: "c", Key: "k", Value: 1}, PutEvent("c", "k", 1))
	assert.Equal(t, Event{Kind: EventEvicted, Cache: "c", Key: "k", Value: 1}, EvictedEvent("c", "k", 1))
	assert.Equal(t, Event{Kind: EventRemoved, Cache: "c", Key: "k"}, RemovedEvent("c", "k"))
	assert.Equal(t, Event{Kind: EventExpired, Cache: "c", Key: "k"}, ExpiredEvent("c", "k"))
	assert.Equal(t, Event{Kind: EventClearedAll, Cache: "c"}, ClearedAllEvent("c"))
}

func TestMetrics_Snapshot(t *testing.T) {
	m := NewMetrics()
	m.Hits.Add(3)
	m.Misses.Inc()
	m.Rejections.Inc()

	assert.Equal(t, Stats{Hits: 3, Misses: 1, Rejections: 1, Size: 7}, m.Snapshot(7))
}
