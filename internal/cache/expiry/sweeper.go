// Package expiry runs the periodic removal of expired cache entries.
package expiry

import (
	"context"
	"errors"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"goflare.io/atoms/internal/models"
)

// Target is the cache the sweeper maintains.
type Target interface {
	// SweepExpired removes expired entries without blocking and returns how
	// many were removed. It returns models.ErrBusy when the cache is locked.
	SweepExpired(ctx context.Context) (int, error)
}

// Sweeper removes expired entries on a fixed interval.
type Sweeper struct {
	target   Target
	interval time.Duration
	logger   *zap.Logger

	cycles  *atomic.Int64
	skipped *atomic.Int64
	removed *atomic.Int64
}

// NewSweeper creates a new Sweeper instance.
func NewSweeper(target Target, interval time.Duration, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		target:   target,
		interval: interval,
		logger:   logger,
		cycles:   atomic.NewInt64(0),
		skipped:  atomic.NewInt64(0),
		removed:  atomic.NewInt64(0),
	}
}

// Run starts the sweep routine and returns when ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	if s.interval <= 0 {
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Cycle(ctx)
		case <-ctx.Done():
			s.logger.Debug("Stopping expiration sweeper")
			return
		}
	}
}

// Cycle runs one sweep. Failures are logged and left to the next cycle.
func (s *Sweeper) Cycle(ctx context.Context) {
	s.cycles.Inc()

	n, err := s.target.SweepExpired(ctx)
	switch {
	case err == nil:
		s.removed.Add(int64(n))
		if n > 0 {
			s.logger.Debug("Swept expired entries", zap.Int("removed", n))
		}
	case errors.Is(err, models.ErrBusy):
		s.skipped.Inc()
		s.logger.Debug("Cache busy, skipping sweep cycle")
	case errors.Is(err, context.Canceled), errors.Is(err, models.ErrCacheUnusable):
	default:
		s.skipped.Inc()
		s.logger.Warn("Sweep cycle failed", zap.Error(err))
	}
}

// Cycles returns how many cycles ran.
func (s *Sweeper) Cycles() int64 { return s.cycles.Load() }

// Skipped returns how many cycles did not complete.
func (s *Sweeper) Skipped() int64 { return s.skipped.Load() }

// Removed returns how many entries the sweeper removed in total.
func (s *Sweeper) Removed() int64 { return s.removed.Load() }
