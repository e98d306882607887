package atoms

import (
	"goflare.io/atoms/internal/cache/engine"
	"goflare.io/atoms/internal/cache/eviction"
	"goflare.io/atoms/internal/models"
	"goflare.io/atoms/internal/notify"
)

// Policy names an eviction policy.
type Policy = eviction.Type

const (
	LRU  Policy = eviction.LRU
	LFU  Policy = eviction.LFU
	FIFO Policy = eviction.FIFO
	// TTLOnly never evicts; a full cache rejects new keys once expired
	// entries have been reclaimed.
	TTLOnly Policy = eviction.TTL
)

// ExpiryMode selects which timestamp a TTL is measured from.
type ExpiryMode = models.ExpiryMode

const (
	ExpireAfterWrite  ExpiryMode = models.ExpireAfterWrite
	ExpireAfterAccess ExpiryMode = models.ExpireAfterAccess
)

type (
	// Observer receives cache lifecycle events after the change is visible.
	Observer = notify.Observer
	// ObserverFunc adapts a single function to Observer.
	ObserverFunc = notify.ObserverFunc
	// NopObserver can be embedded to implement only some Observer methods.
	NopObserver = notify.NopObserver

	Event     = models.Event
	EventKind = models.EventKind
	Stats     = models.Stats

	// LoaderFunc produces the value for a missing key in GetOrLoad.
	LoaderFunc = engine.LoaderFunc
)

const (
	EventPut        = models.EventPut
	EventRemoved    = models.EventRemoved
	EventEvicted    = models.EventEvicted
	EventExpired    = models.EventExpired
	EventClearedAll = models.EventClearedAll
)
