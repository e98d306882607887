// Package engine implements a bounded in-memory cache with pluggable eviction,
// time-based expiry and lifecycle events.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"goflare.io/atoms/internal/cache/eviction"
	"goflare.io/atoms/internal/cache/expiry"
	"goflare.io/atoms/internal/cache/store"
	"goflare.io/atoms/internal/config"
	"goflare.io/atoms/internal/models"
	"goflare.io/atoms/internal/notify"
	"goflare.io/atoms/internal/utils"
)

// LoaderFunc produces the value for a missing key.
type LoaderFunc func(ctx context.Context, key string) (any, error)

// CacheOperations defines the interface for cache operations.
type CacheOperations interface {
	Name() string
	Get(ctx context.Context, key string) (any, bool, error)
	GetOrLoad(ctx context.Context, key string, loader LoaderFunc, ttl ...time.Duration) (any, error)
	Put(ctx context.Context, key string, value any, ttl ...time.Duration) error
	Evict(ctx context.Context, key string) error
	EvictAll(ctx context.Context, keys []string) (int, error)
	Clear(ctx context.Context) (int, error)
	Destroy(ctx context.Context) error
	Keys(ctx context.Context) ([]string, error)
	Len() int
	PurgeExpired(ctx context.Context) (int, error)
	Stats() models.Stats
	RegisterObserver(obs notify.Observer) (uuid.UUID, error)
	UnregisterObserver(id uuid.UUID) bool
	Destroyed() bool
}

// Cache composes an entry store, an eviction policy and an event notifier.
//
// mu serializes every mutation so policy bookkeeping never diverges from the
// store. Reads only take store locks and record policy access afterwards.
// Lock order is mu, then the store-wide lock, then a stripe lock. Events are
// delivered after every lock is released.
type Cache struct {
	name   string
	config *config.Config

	mu           sync.Mutex
	store        store.Store
	policy       eviction.Policy
	tracksAccess bool
	filter       *KeyFilter

	notifier *notify.Notifier
	metrics  *models.Metrics
	sweeper  *expiry.Sweeper
	sf       *singleflight.Group

	destroyed *atomic.Bool
	cancel    context.CancelFunc
	onDestroy func(name string)

	now    func() time.Time
	tracer trace.Tracer
	logger *zap.Logger
}

// New creates a Cache from cfg. Background work (sweeping, filter rebuilds)
// lives until ctx is done or the cache is destroyed. onDestroy, when set, is
// called once after a successful Destroy.
func New(ctx context.Context, cfg *config.Config, onDestroy func(name string)) (*Cache, error) {
	policy, err := eviction.New(cfg.Policy)
	if err != nil {
		return nil, fmt.Errorf("failed to create eviction policy: %w", err)
	}

	logger := cfg.Logger.With(zap.String("cache", cfg.Name))
	bgCtx, cancel := context.WithCancel(ctx)

	c := &Cache{
		name:         cfg.Name,
		config:       cfg,
		store:        store.NewStriped(cfg.StripeCount, logger),
		policy:       policy,
		tracksAccess: cfg.Policy == eviction.LRU || cfg.Policy == eviction.LFU,
		notifier:     notify.New(cfg.ObserverTimeout, logger),
		metrics:      models.NewMetrics(),
		sf:           &singleflight.Group{},
		destroyed:    atomic.NewBool(false),
		cancel:       cancel,
		onDestroy:    onDestroy,
		now:          cfg.Now,
		tracer:       otel.Tracer("atoms"),
		logger:       logger,
	}

	for _, obs := range cfg.Observers {
		c.notifier.Register(obs)
	}

	if cfg.BloomFilterSettings.Enabled {
		c.filter = NewKeyFilter(cfg.BloomFilterSettings, logger)
		go c.filter.PeriodicRebuild(bgCtx, c.rebuildFilter)
	}

	c.sweeper = expiry.NewSweeper(c, cfg.SweepInterval, logger)
	go c.sweeper.Run(bgCtx)

	logger.Info("Cache created",
		zap.Uint64("capacity", cfg.Capacity),
		zap.String("policy", string(cfg.Policy)),
		zap.Duration("default_ttl", cfg.DefaultTTL),
		zap.Duration("sweep_interval", cfg.SweepInterval))

	return c, nil
}

// Name returns the cache name.
func (c *Cache) Name() string {
	return c.name
}

// Destroyed reports whether Destroy has completed.
func (c *Cache) Destroyed() bool {
	return c.destroyed.Load()
}

func (c *Cache) startSpan(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("cache", c.name))
	return c.tracer.Start(ctx, "Cache."+op, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// storeError maps a store failure onto the cache error kinds.
func storeError(err error) error {
	if errors.Is(err, models.ErrStoreClosed) {
		return models.ErrCacheUnusable
	}
	return fmt.Errorf("%w: %w", models.ErrStoreFailure, err)
}

// invalidKey reports the lenient or strict outcome for an empty key.
func (c *Cache) invalidKey() error {
	if c.config.StrictKeys {
		return models.ErrInvalidKey
	}
	return nil
}

func (c *Cache) expired(now time.Time) func(*models.Entry) bool {
	return func(e *models.Entry) bool {
		return e.IsExpired(c.config.ExpiryMode, now)
	}
}

// Get returns the value stored under key. An expired entry is removed on
// the spot, raising an Expired event, and reported as absent.
func (c *Cache) Get(ctx context.Context, key string) (value any, found bool, err error) {
	ctx, span := c.startSpan(ctx, "Get", attribute.String("key", key))
	defer func() { endSpan(span, err) }()

	if c.destroyed.Load() {
		return nil, false, models.ErrCacheUnusable
	}
	if key == "" {
		return nil, false, c.invalidKey()
	}

	if c.filter != nil && !c.filter.Test(key) {
		c.metrics.Misses.Inc()
		return nil, false, nil
	}

	entry, ok, err := c.store.Get(ctx, key)
	if err != nil {
		return nil, false, storeError(err)
	}
	if !ok {
		c.metrics.Misses.Inc()
		return nil, false, nil
	}

	now := c.now()
	if entry.IsExpired(c.config.ExpiryMode, now) {
		c.metrics.Misses.Inc()
		if err := c.expireEntry(ctx, entry); err != nil {
			return nil, false, err
		}
		return nil, false, nil
	}

	entry.IncrementAccess(now)
	if c.tracksAccess {
		c.mu.Lock()
		c.policy.OnAccess(key)
		c.mu.Unlock()
	}

	c.metrics.Hits.Inc()
	return entry.Value, true, nil
}

// expireEntry removes entry if it is still the stored one. Concurrent
// readers of the same stale entry race here and only one of them wins.
func (c *Cache) expireEntry(ctx context.Context, entry *models.Entry) error {
	c.mu.Lock()
	_, removed, err := c.store.RemoveIf(ctx, entry.Key, func(e *models.Entry) bool { return e == entry })
	if removed {
		c.policy.OnRemove(entry.Key)
		c.metrics.Expirations.Inc()
	}
	c.mu.Unlock()

	if err != nil {
		return storeError(err)
	}
	if removed {
		c.notifier.Notify(models.ExpiredEvent(c.name, entry.Key))
	}
	return nil
}

// GetOrLoad returns the cached value or, on a miss, calls loader once per key
// across concurrent callers and stores its result.
func (c *Cache) GetOrLoad(ctx context.Context, key string, loader LoaderFunc, ttl ...time.Duration) (any, error) {
	if c.destroyed.Load() {
		return nil, models.ErrCacheUnusable
	}
	if key == "" {
		return nil, c.invalidKey()
	}

	value, found, err := c.Get(ctx, key)
	if err != nil || found {
		return value, err
	}

	v, err, shared := c.sf.Do(key, func() (any, error) {
		loaded, err := loader(ctx, key)
		if err != nil {
			return nil, err
		}
		if err := c.Put(ctx, key, loaded, ttl...); err != nil {
			return nil, err
		}
		return loaded, nil
	})
	if shared {
		c.logger.Debug("Shared load result", zap.String("key", key))
	}
	return v, err
}

// Put stores value under key, evicting as many entries as the policy selects
// to stay within capacity before admitting the new key. Replacing an existing
// key raises a single Put event.
func (c *Cache) Put(ctx context.Context, key string, value any, ttl ...time.Duration) (err error) {
	ctx, span := c.startSpan(ctx, "Put", attribute.String("key", key))
	defer func() { endSpan(span, err) }()

	if c.destroyed.Load() {
		return models.ErrCacheUnusable
	}
	if key == "" {
		return c.invalidKey()
	}

	c.mu.Lock()
	if c.destroyed.Load() {
		c.mu.Unlock()
		return models.ErrCacheUnusable
	}
	now := c.now()
	entry := models.NewEntry(key, value, utils.ResolveTTL(c.config.DefaultTTL, ttl...), now)
	events, err := c.admitLocked(ctx, entry, now)
	c.mu.Unlock()

	c.notifier.NotifyAll(events)
	return err
}

func (c *Cache) admitLocked(ctx context.Context, entry *models.Entry, now time.Time) ([]models.Event, error) {
	var events []models.Event

	exists, err := c.store.Contains(ctx, entry.Key)
	if err != nil {
		return nil, storeError(err)
	}

	if !exists && c.config.Capacity > 0 {
		for uint64(c.store.Len()) >= c.config.Capacity {
			victim, ok := c.policy.SelectVictim()
			if !ok {
				reclaimed, err := c.purgeLocked(ctx, now, true)
				events = append(events, reclaimed...)
				if err != nil {
					return events, err
				}
				if len(reclaimed) == 0 {
					c.metrics.Rejections.Inc()
					c.logger.Warn("Cache full, rejecting new key",
						zap.String("key", entry.Key),
						zap.Uint64("capacity", c.config.Capacity))
					return events, models.ErrCapacityExceeded
				}
				continue
			}

			removed, ok, err := c.store.Remove(ctx, victim)
			if err != nil {
				return events, storeError(err)
			}
			if ok {
				c.metrics.Evictions.Inc()
				events = append(events, models.EvictedEvent(c.name, victim, removed.Value))
			}
		}
	}

	if c.filter != nil {
		c.filter.Add(entry.Key)
	}

	_, replaced, err := c.store.Put(ctx, entry)
	if err != nil {
		return events, storeError(err)
	}
	if replaced {
		c.policy.OnAccess(entry.Key)
	} else {
		c.policy.OnAdmit(entry.Key)
	}

	return append(events, models.PutEvent(c.name, entry.Key, entry.Value)), nil
}

// Evict removes key. Evicting an absent key is a no-op.
func (c *Cache) Evict(ctx context.Context, key string) (err error) {
	ctx, span := c.startSpan(ctx, "Evict", attribute.String("key", key))
	defer func() { endSpan(span, err) }()

	if c.destroyed.Load() {
		return models.ErrCacheUnusable
	}
	if key == "" {
		return c.invalidKey()
	}

	c.mu.Lock()
	if c.destroyed.Load() {
		c.mu.Unlock()
		return models.ErrCacheUnusable
	}
	_, removed, err := c.store.Remove(ctx, key)
	if removed {
		c.policy.OnRemove(key)
	}
	c.mu.Unlock()

	if err != nil {
		return storeError(err)
	}
	if removed {
		c.notifier.Notify(models.RemovedEvent(c.name, key))
	}
	return nil
}

// EvictAll removes every present key and returns how many were removed.
func (c *Cache) EvictAll(ctx context.Context, keys []string) (n int, err error) {
	ctx, span := c.startSpan(ctx, "EvictAll", attribute.Int("keyCount", len(keys)))
	defer func() { endSpan(span, err) }()

	if c.destroyed.Load() {
		return 0, models.ErrCacheUnusable
	}

	valid := make([]string, 0, len(keys))
	for _, key := range keys {
		if key == "" {
			if err := c.invalidKey(); err != nil {
				return 0, err
			}
			continue
		}
		valid = append(valid, key)
	}

	c.mu.Lock()
	if c.destroyed.Load() {
		c.mu.Unlock()
		return 0, models.ErrCacheUnusable
	}
	removed, err := c.store.RemoveAll(ctx, valid)
	for _, e := range removed {
		c.policy.OnRemove(e.Key)
	}
	c.mu.Unlock()

	if err != nil {
		return 0, storeError(err)
	}

	events := make([]models.Event, 0, len(removed))
	for _, e := range removed {
		events = append(events, models.RemovedEvent(c.name, e.Key))
	}
	c.notifier.NotifyAll(events)
	return len(removed), nil
}

// Clear removes every entry and raises exactly one ClearedAll event.
func (c *Cache) Clear(ctx context.Context) (n int, err error) {
	ctx, span := c.startSpan(ctx, "Clear")
	defer func() { endSpan(span, err) }()

	c.mu.Lock()
	if c.destroyed.Load() {
		c.mu.Unlock()
		return 0, models.ErrCacheUnusable
	}
	n, err = c.store.Clear(ctx)
	if err == nil {
		c.policy.Reset()
		if c.filter != nil {
			c.filter.Reset()
		}
	}
	c.mu.Unlock()

	if err != nil {
		return 0, storeError(err)
	}
	c.notifier.Notify(models.ClearedAllEvent(c.name))
	return n, nil
}

// Destroy clears the cache, stops its background work and makes every later
// operation fail with models.ErrCacheUnusable.
func (c *Cache) Destroy(ctx context.Context) (err error) {
	_, span := c.startSpan(ctx, "Destroy")
	defer func() { endSpan(span, err) }()

	c.mu.Lock()
	if !c.destroyed.CompareAndSwap(false, true) {
		c.mu.Unlock()
		return models.ErrCacheUnusable
	}
	n := c.store.Len()
	if err := c.store.Close(); err != nil {
		c.logger.Warn("Failed to close store", zap.Error(err))
	}
	c.policy.Reset()
	if c.filter != nil {
		c.filter.Reset()
	}
	c.mu.Unlock()

	c.cancel()
	c.notifier.Notify(models.ClearedAllEvent(c.name))
	if c.onDestroy != nil {
		c.onDestroy(c.name)
	}

	c.logger.Info("Cache destroyed", zap.Int("cleared_entries", n))
	return nil
}

// Keys returns a snapshot of the keys of live entries.
func (c *Cache) Keys(ctx context.Context) (keys []string, err error) {
	ctx, span := c.startSpan(ctx, "Keys")
	defer func() { endSpan(span, err) }()

	if c.destroyed.Load() {
		return nil, models.ErrCacheUnusable
	}

	isExpired := c.expired(c.now())
	keys, err = c.store.Keys(ctx, func(e *models.Entry) bool { return !isExpired(e) })
	if err != nil {
		return nil, storeError(err)
	}
	return keys, nil
}

// Len returns the number of stored entries, including expired entries that
// have not been removed yet.
func (c *Cache) Len() int {
	return c.store.Len()
}

// PurgeExpired removes every expired entry, waiting for the store if needed.
func (c *Cache) PurgeExpired(ctx context.Context) (n int, err error) {
	ctx, span := c.startSpan(ctx, "PurgeExpired")
	defer func() { endSpan(span, err) }()

	c.mu.Lock()
	if c.destroyed.Load() {
		c.mu.Unlock()
		return 0, models.ErrCacheUnusable
	}
	events, err := c.purgeLocked(ctx, c.now(), true)
	c.mu.Unlock()

	c.notifier.NotifyAll(events)
	return len(events), err
}

// SweepExpired is the non-blocking variant of PurgeExpired used by the
// sweeper. It returns models.ErrBusy instead of waiting for locks.
func (c *Cache) SweepExpired(ctx context.Context) (int, error) {
	if c.destroyed.Load() {
		return 0, models.ErrCacheUnusable
	}
	if !c.mu.TryLock() {
		return 0, models.ErrBusy
	}
	if c.destroyed.Load() {
		c.mu.Unlock()
		return 0, models.ErrCacheUnusable
	}
	events, err := c.purgeLocked(ctx, c.now(), false)
	c.mu.Unlock()

	c.notifier.NotifyAll(events)
	return len(events), err
}

// purgeLocked removes the entries expired at now and returns one Expired
// event per removal. With wait false the key scan never blocks.
func (c *Cache) purgeLocked(ctx context.Context, now time.Time, wait bool) ([]models.Event, error) {
	isExpired := c.expired(now)

	var (
		keys []string
		err  error
	)
	if wait {
		keys, err = c.store.Keys(ctx, isExpired)
	} else {
		keys, err = c.store.Scan(ctx, isExpired)
	}
	if err != nil {
		if errors.Is(err, models.ErrBusy) {
			return nil, err
		}
		return nil, storeError(err)
	}

	events := make([]models.Event, 0, len(keys))
	for _, key := range keys {
		_, removed, err := c.store.RemoveIf(ctx, key, isExpired)
		if err != nil {
			return events, storeError(err)
		}
		if removed {
			c.policy.OnRemove(key)
			c.metrics.Expirations.Inc()
			events = append(events, models.ExpiredEvent(c.name, key))
		}
	}
	return events, nil
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() models.Stats {
	return c.metrics.Snapshot(c.store.Len())
}

// RegisterObserver adds obs to the end of the delivery order.
func (c *Cache) RegisterObserver(obs notify.Observer) (uuid.UUID, error) {
	if obs == nil {
		return uuid.Nil, errors.New("observer must not be nil")
	}
	if c.destroyed.Load() {
		return uuid.Nil, models.ErrCacheUnusable
	}
	return c.notifier.Register(obs), nil
}

// UnregisterObserver removes the observer registered under id.
func (c *Cache) UnregisterObserver(id uuid.UUID) bool {
	return c.notifier.Unregister(id)
}

// rebuildFilter replaces the key filter with one built from the current keys.
func (c *Cache) rebuildFilter(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.destroyed.Load() {
		return models.ErrCacheUnusable
	}
	keys, err := c.store.Keys(ctx, nil)
	if err != nil {
		return storeError(err)
	}
	c.filter.Rebuild(keys)
	return nil
}
