package notify

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"goflare.io/atoms/internal/models"
)

type recorder struct {
	mu     sync.Mutex
	events []models.Event
}

func (r *recorder) observer() ObserverFunc {
	return func(ev models.Event) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events = append(r.events, ev)
		return nil
	}
}

func (r *recorder) Events() []models.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Event(nil), r.events...)
}

func TestNotifier_RegistrationOrder(t *testing.T) {
	n := New(0, zap.NewNop())
	var order []int
	for i := range 3 {
		n.Register(ObserverFunc(func(models.Event) error {
			order = append(order, i)
			return nil
		}))
	}

	n.Notify(models.PutEvent("c", "k", 1))
	assert.Equal(t, []int{0, 1, 2}, order)
}

func TestNotifier_FailuresAreIsolated(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	n := New(0, zap.New(core))
	rec := &recorder{}

	n.Register(ObserverFunc(func(models.Event) error { return errors.New("boom") }))
	n.Register(ObserverFunc(func(models.Event) error { panic("kaboom") }))
	n.Register(rec.observer())

	n.Notify(models.RemovedEvent("c", "k"))

	require.Len(t, rec.Events(), 1)
	assert.Equal(t, models.EventRemoved, rec.Events()[0].Kind)
	assert.Equal(t, 2, logs.FilterMessage("Observer failed").Len())
}

func TestNotifier_Unregister(t *testing.T) {
	n := New(0, zap.NewNop())
	rec := &recorder{}
	id := n.Register(rec.observer())
	require.Equal(t, 1, n.Len())

	assert.True(t, n.Unregister(id))
	assert.False(t, n.Unregister(id))
	n.Notify(models.ClearedAllEvent("c"))
	assert.Empty(t, rec.Events())
}

func TestNotifier_TimeoutBoundsSlowObserver(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	n := New(20*time.Millisecond, zap.New(core))
	release := make(chan struct{})
	defer close(release)
	rec := &recorder{}

	n.Register(ObserverFunc(func(models.Event) error {
		<-release
		return nil
	}))
	n.Register(rec.observer())

	start := time.Now()
	n.Notify(models.ExpiredEvent("c", "k"))

	assert.Less(t, time.Since(start), time.Second)
	assert.Len(t, rec.Events(), 1)
	entries := logs.FilterMessage("Observer failed").All()
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].ContextMap()["error"], ErrObserverTimeout.Error())
}

func TestNotifier_TimedOutCallFinishesInBackground(t *testing.T) {
	n := New(10*time.Millisecond, zap.NewNop())
	release := make(chan struct{})
	finished := make(chan string, 2)
	var mu sync.Mutex
	var started []string

	n.Register(ObserverFunc(func(ev models.Event) error {
		mu.Lock()
		started = append(started, ev.Key)
		mu.Unlock()
		if ev.Key == "slow" {
			<-release
		}
		finished <- ev.Key
		return nil
	}))

	n.Notify(models.PutEvent("c", "slow", 1))
	n.Notify(models.PutEvent("c", "fast", 2))

	assert.Equal(t, "fast", <-finished)
	close(release)
	assert.Equal(t, "slow", <-finished)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"slow", "fast"}, started)
}

type evictionsOnly struct {
	NopObserver
	keys []string
}

func (e *evictionsOnly) OnEvicted(_, key string, _ any) error {
	e.keys = append(e.keys, key)
	return nil
}

func TestDispatch(t *testing.T) {
	obs := &evictionsOnly{}
	events := []models.Event{
		models.PutEvent("c", "a", 1),
		models.EvictedEvent("c", "b", 2),
		models.RemovedEvent("c", "c"),
		models.ExpiredEvent("c", "d"),
		models.ClearedAllEvent("c"),
		{Kind: models.EventKind(99)},
	}
	for _, ev := range events {
		require.NoError(t, Dispatch(obs, ev))
	}
	assert.Equal(t, []string{"b"}, obs.keys)
}

func TestObserverFunc_BuildsEvents(t *testing.T) {
	rec := &recorder{}
	f := rec.observer()

	require.NoError(t, f.OnPut("c", "a", 1))
	require.NoError(t, f.OnEvicted("c", "b", 2))
	require.NoError(t, f.OnClearAll("c"))

	got := rec.Events()
	require.Len(t, got, 3)
	assert.Equal(t, models.Event{Kind: models.EventPut, Cache: "c", Key: "a", Value: 1}, got[0])
	assert.Equal(t, models.Event{Kind: models.EventEvicted, Cache: "c", Key: "b", Value: 2}, got[1])
	assert.Equal(t, models.Event{Kind: models.EventClearedAll, Cache: "c"}, got[2])
}
