package models

import (
	"time"

	"go.uber.org/atomic"
)

// ExpiryMode selects which timestamp a TTL is measured from.
type ExpiryMode string

const (
	// ExpireAfterWrite measures TTL from the time the entry was written.
	ExpireAfterWrite ExpiryMode = "write"
	// ExpireAfterAccess measures TTL from the last successful read or write.
	ExpireAfterAccess ExpiryMode = "access"
)

// Entry represents a cache entry.
type Entry struct {
	Key            string
	Value          any
	CreatedAt      time.Time
	TTL            time.Duration
	AccessCount    *atomic.Int64
	LastAccessTime *atomic.Time
}

// NewEntry creates a new Entry written at now.
func NewEntry(key string, value any, ttl time.Duration, now time.Time) *Entry {
	return &Entry{
		Key:            key,
		Value:          value,
		CreatedAt:      now,
		TTL:            ttl,
		AccessCount:    atomic.NewInt64(0),
		LastAccessTime: atomic.NewTime(now),
	}
}

// ExpiresAt returns the instant the entry stops being visible. The zero time
// means the entry never expires.
func (e *Entry) ExpiresAt(mode ExpiryMode) time.Time {
	if e.TTL <= 0 {
		return time.Time{}
	}
	if mode == ExpireAfterAccess {
		return e.LastAccessTime.Load().Add(e.TTL)
	}
	return e.CreatedAt.Add(e.TTL)
}

// IsExpired checks if the entry has expired at now.
func (e *Entry) IsExpired(mode ExpiryMode, now time.Time) bool {
	deadline := e.ExpiresAt(mode)
	return !deadline.IsZero() && !now.Before(deadline)
}

// IncrementAccess increments the access count and updates the last access time.
func (e *Entry) IncrementAccess(now time.Time) {
	e.AccessCount.Inc()
	e.LastAccessTime.Store(now)
}
