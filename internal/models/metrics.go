package models

import "go.uber.org/atomic"

// Metrics stores cache statistics
type Metrics struct {
	Hits        *atomic.Int64
	Misses      *atomic.Int64
	Evictions   *atomic.Int64
	Expirations *atomic.Int64
	Rejections  *atomic.Int64
}

func NewMetrics() *Metrics {
	return &Metrics{
		Hits:        atomic.NewInt64(0),
		Misses:      atomic.NewInt64(0),
		Evictions:   atomic.NewInt64(0),
		Expirations: atomic.NewInt64(0),
		Rejections:  atomic.NewInt64(0),
	}
}

// Stats is a point-in-time copy of Metrics plus the current entry count.
type Stats struct {
	Hits        int64
	Misses      int64
	Evictions   int64
	Expirations int64
	Rejections  int64
	Size        int
}

// Snapshot copies the counters into a Stats value.
func (m *Metrics) Snapshot(size int) Stats {
	return Stats{
		Hits:        m.Hits.Load(),
		Misses:      m.Misses.Load(),
		Evictions:   m.Evictions.Load(),
		Expirations: m.Expirations.Load(),
		Rejections:  m.Rejections.Load(),
		Size:        size,
	}
}
