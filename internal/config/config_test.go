package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"goflare.io/atoms/internal/cache/eviction"
	"goflare.io/atoms/internal/models"
	"goflare.io/atoms/internal/notify"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg, err := NewConfig(WithName("users"))
	require.NoError(t, err)

	assert.Equal(t, "users", cfg.Name)
	assert.Equal(t, eviction.LRU, cfg.Policy)
	assert.Equal(t, models.ExpireAfterWrite, cfg.ExpiryMode)
	assert.Equal(t, time.Minute, cfg.SweepInterval)
	assert.Equal(t, CalculateStripeCount(), cfg.StripeCount)
	assert.Zero(t, cfg.Capacity)
	assert.Zero(t, cfg.DefaultTTL)
	assert.False(t, cfg.StrictKeys)
	assert.False(t, cfg.BloomFilterSettings.Enabled)
	assert.NotNil(t, cfg.Logger)
	assert.NotNil(t, cfg.Now)
}

func TestNewConfig_Options(t *testing.T) {
	logger := zap.NewExample()
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	cfg, err := NewConfig(
		WithName("sessions"),
		WithLogger(logger),
		WithCapacity(100),
		WithPolicy(eviction.LFU),
		WithDefaultTTL(time.Hour),
		WithExpiryMode(models.ExpireAfterAccess),
		WithSweepInterval(0),
		WithStripeCount(8),
		WithObserverTimeout(time.Second),
		WithStrictKeys(true),
		WithBloomFilter(500, 0.05, time.Minute),
		WithObservers(notify.NopObserver{}, notify.NopObserver{}),
		WithNow(func() time.Time { return fixed }),
	)
	require.NoError(t, err)

	assert.Same(t, logger, cfg.Logger)
	assert.Equal(t, uint64(100), cfg.Capacity)
	assert.Equal(t, eviction.LFU, cfg.Policy)
	assert.Equal(t, time.Hour, cfg.DefaultTTL)
	assert.Equal(t, models.ExpireAfterAccess, cfg.ExpiryMode)
	assert.Zero(t, cfg.SweepInterval)
	assert.Equal(t, uint64(8), cfg.StripeCount)
	assert.Equal(t, time.Second, cfg.ObserverTimeout)
	assert.True(t, cfg.StrictKeys)
	assert.Equal(t, BloomFilterConfig{Enabled: true, ExpectedItems: 500, FalsePositiveRate: 0.05, RebuildInterval: time.Minute}, cfg.BloomFilterSettings)
	assert.Len(t, cfg.Observers, 2)
	assert.Equal(t, fixed, cfg.Now())
}

func TestNewConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
	}{
		{"missing name", nil},
		{"unknown policy", []Option{WithName("c"), WithPolicy("random")}},
		{"unknown expiry mode", []Option{WithName("c"), WithExpiryMode("never")}},
		{"negative sweep interval", []Option{WithName("c"), WithSweepInterval(-time.Second)}},
		{"negative default ttl", []Option{WithName("c"), WithDefaultTTL(-time.Second)}},
		{"zero stripes", []Option{WithName("c"), WithStripeCount(0)}},
		{"bloom without items", []Option{WithName("c"), WithBloomFilter(0, 0.01, 0)}},
		{"bloom rate out of range", []Option{WithName("c"), WithBloomFilter(10, 1.5, 0)}},
		{"nil clock", []Option{WithName("c"), WithNow(nil)}},
		{"nil observer", []Option{WithName("c"), WithObservers(nil)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewConfig(tt.opts...)
			assert.Error(t, err)
		})
	}
}

func TestWithLogger_IgnoresNil(t *testing.T) {
	cfg, err := NewConfig(WithName("c"), WithLogger(nil))
	require.NoError(t, err)
	assert.NotNil(t, cfg.Logger)
}
