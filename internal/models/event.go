package models

import "fmt"

// EventKind identifies a cache lifecycle event.
type EventKind int

const (
	EventPut EventKind = iota + 1
	EventRemoved
	EventEvicted
	EventExpired
	EventClearedAll
)

func (k EventKind) String() string {
	switch k {
	case EventPut:
		return "put"
	case EventRemoved:
		return "removed"
	case EventEvicted:
		return "evicted"
	case EventExpired:
		return "expired"
	case EventClearedAll:
		return "cleared_all"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event describes one committed cache mutation. Key is empty for
// EventClearedAll and Value is only set for EventPut and EventEvicted.
type Event struct {
	Kind  EventKind
	Cache string
	Key   string
	Value any
}

// PutEvent builds an EventPut.
func PutEvent(cache, key string, value any) Event {
	return Event{Kind: EventPut, Cache: cache, Key: key, Value: value}
}

// RemovedEvent builds an EventRemoved.
func RemovedEvent(cache, key string) Event {
	return Event{Kind: EventRemoved, Cache: cache, Key: key}
}

// EvictedEvent builds an EventEvicted.
func EvictedEvent(cache, key string, value any) Event {
	return Event{Kind: EventEvicted, Cache: cache, Key: key, Value: value}
}

// ExpiredEvent builds an EventExpired.
func ExpiredEvent(cache, key string) Event {
	return Event{Kind: EventExpired, Cache: cache, Key: key}
}

// ClearedAllEvent builds an EventClearedAll.
func ClearedAllEvent(cache string) Event {
	return Event{Kind: EventClearedAll, Cache: cache}
}
