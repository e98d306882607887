// Package eviction decides which key leaves a full cache.
package eviction

import "fmt"

// Policy tracks keys and selects eviction victims. Implementations are not
// safe for concurrent use; the cache engine serializes every call.
type Policy interface {
	// OnAdmit is called after a new key has been stored.
	OnAdmit(key string)
	// OnAccess is called after a successful read or an in-place update.
	OnAccess(key string)
	// OnRemove is called when a key leaves the cache for any reason other
	// than being selected by SelectVictim.
	OnRemove(key string)
	// SelectVictim picks the next key to evict and stops tracking it.
	// ok is false when the policy has nothing to offer.
	SelectVictim() (key string, ok bool)
	// Reset forgets every tracked key.
	Reset()
	// Len returns the number of tracked keys.
	Len() int
}

// Type identifies an eviction policy.
type Type string

const (
	// LRU evicts the least recently accessed key.
	LRU Type = "lru"
	// LFU evicts the least frequently accessed key, oldest first on ties.
	LFU Type = "lfu"
	// FIFO evicts the oldest inserted key.
	FIFO Type = "fifo"
	// TTL never evicts for capacity; entries leave only by expiring.
	TTL Type = "ttl"
)

// New creates the policy for t.
func New(t Type) (Policy, error) {
	switch t {
	case LRU:
		return NewLRU(), nil
	case LFU:
		return NewLFU(), nil
	case FIFO:
		return NewFIFO(), nil
	case TTL:
		return NewTTLOnly(), nil
	default:
		return nil, fmt.Errorf("unknown eviction policy %q", t)
	}
}
