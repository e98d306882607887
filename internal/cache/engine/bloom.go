package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"go.uber.org/zap"

	"goflare.io/atoms/internal/config"
	"goflare.io/atoms/internal/models"
)

// KeyFilter answers "definitely not cached" without touching the store.
// Removed keys stay in the filter until the next rebuild, which only costs
// a store lookup on a false positive.
type KeyFilter struct {
	mu       sync.RWMutex
	filter   *bloom.BloomFilter
	settings config.BloomFilterConfig
	logger   *zap.Logger
}

// NewKeyFilter creates a new KeyFilter instance.
func NewKeyFilter(settings config.BloomFilterConfig, logger *zap.Logger) *KeyFilter {
	return &KeyFilter{
		filter:   bloom.NewWithEstimates(settings.ExpectedItems, settings.FalsePositiveRate),
		settings: settings,
		logger:   logger,
	}
}

// Add adds a key to the bloom filter.
func (kf *KeyFilter) Add(key string) {
	kf.mu.Lock()
	kf.filter.AddString(key)
	kf.mu.Unlock()
}

// Test checks if a key might be in the bloom filter.
func (kf *KeyFilter) Test(key string) bool {
	kf.mu.RLock()
	defer kf.mu.RUnlock()
	return kf.filter.TestString(key)
}

// Reset empties the filter.
func (kf *KeyFilter) Reset() {
	kf.mu.Lock()
	kf.filter.ClearAll()
	kf.mu.Unlock()
}

// Rebuild replaces the filter with one holding exactly keys.
func (kf *KeyFilter) Rebuild(keys []string) {
	expected := kf.settings.ExpectedItems
	if n := uint(len(keys)); n > expected {
		expected = n
	}
	next := bloom.NewWithEstimates(expected, kf.settings.FalsePositiveRate)
	for _, key := range keys {
		next.AddString(key)
	}

	kf.mu.Lock()
	kf.filter = next
	kf.mu.Unlock()

	kf.logger.Debug("Rebuilt key filter", zap.Int("keys", len(keys)))
}

// PeriodicRebuild periodically rebuilds the filter through rebuild until ctx
// is done.
func (kf *KeyFilter) PeriodicRebuild(ctx context.Context, rebuild func(context.Context) error) {
	if kf.settings.RebuildInterval <= 0 {
		return
	}

	ticker := time.NewTicker(kf.settings.RebuildInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := rebuild(ctx); err != nil {
				if errors.Is(err, models.ErrCacheUnusable) {
					return
				}
				kf.logger.Error("Failed to rebuild key filter", zap.Error(err))
			}
		case <-ctx.Done():
			return
		}
	}
}
