package notify

import "goflare.io/atoms/internal/models"

// Observer receives cache lifecycle events. Returned errors are logged by the
// notifier and never reach the caller whose operation raised the event.
type Observer interface {
	OnPut(cache, key string, value any) error
	OnRemoved(cache, key string) error
	OnEvicted(cache, key string, value any) error
	OnExpired(cache, key string) error
	OnClearAll(cache string) error
}

// ObserverFunc adapts a single function to the Observer interface.
type ObserverFunc func(models.Event) error

func (f ObserverFunc) OnPut(cache, key string, value any) error {
	return f(models.PutEvent(cache, key, value))
}

func (f ObserverFunc) OnRemoved(cache, key string) error {
	return f(models.RemovedEvent(cache, key))
}

func (f ObserverFunc) OnEvicted(cache, key string, value any) error {
	return f(models.EvictedEvent(cache, key, value))
}

func (f ObserverFunc) OnExpired(cache, key string) error {
	return f(models.ExpiredEvent(cache, key))
}

func (f ObserverFunc) OnClearAll(cache string) error {
	return f(models.ClearedAllEvent(cache))
}

// NopObserver ignores every event. Embed it to implement only some methods.
type NopObserver struct{}

func (NopObserver) OnPut(string, string, any) error     { return nil }
func (NopObserver) OnRemoved(string, string) error      { return nil }
func (NopObserver) OnEvicted(string, string, any) error { return nil }
func (NopObserver) OnExpired(string, string) error      { return nil }
func (NopObserver) OnClearAll(string) error             { return nil }

// Dispatch calls the Observer method matching ev.Kind.
func Dispatch(obs Observer, ev models.Event) error {
	switch ev.Kind {
	case models.EventPut:
		return obs.OnPut(ev.Cache, ev.Key, ev.Value)
	case models.EventRemoved:
		return obs.OnRemoved(ev.Cache, ev.Key)
	case models.EventEvicted:
		return obs.OnEvicted(ev.Cache, ev.Key, ev.Value)
	case models.EventExpired:
		return obs.OnExpired(ev.Cache, ev.Key)
	case models.EventClearedAll:
		return obs.OnClearAll(ev.Cache)
	default:
		return nil
	}
}
