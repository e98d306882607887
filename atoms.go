// Package atoms provides bounded in-memory caches with pluggable eviction
// (LRU, LFU, FIFO or TTL-only), per-entry expiration and lifecycle events.
package atoms

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"goflare.io/atoms/internal/cache/engine"
	"goflare.io/atoms/internal/config"
)

// Option 定義初始化快取的選項
type Option func(*config.Config) error

// WithLogger 設置自定義的日誌記錄器
func WithLogger(logger *zap.Logger) Option {
	return Option(config.WithLogger(logger))
}

// WithCapacity 設置最大項目數，0 表示不限制
func WithCapacity(capacity uint64) Option {
	return Option(config.WithCapacity(capacity))
}

// WithPolicy 設置淘汰策略
func WithPolicy(policy Policy) Option {
	return Option(config.WithPolicy(policy))
}

// WithDefaultTTL 設置默認的過期時間，0 表示不過期
func WithDefaultTTL(ttl time.Duration) Option {
	return Option(config.WithDefaultTTL(ttl))
}

// WithExpiryMode 設置 TTL 從寫入或最後存取時間起算
func WithExpiryMode(mode ExpiryMode) Option {
	return Option(config.WithExpiryMode(mode))
}

// WithSweepInterval 設置背景清理過期項目的間隔，0 表示停用
func WithSweepInterval(interval time.Duration) Option {
	return Option(config.WithSweepInterval(interval))
}

// WithStripeCount 設置分段鎖數量
func WithStripeCount(count uint64) Option {
	return Option(config.WithStripeCount(count))
}

// WithObserverTimeout 設置單一觀察者的最長等待時間。
// A call that times out keeps running in the background, so the same observer
// may receive later events before that call returns.
func WithObserverTimeout(timeout time.Duration) Option {
	return Option(config.WithObserverTimeout(timeout))
}

// WithStrictKeys 空鍵回傳 ErrInvalidKey
func WithStrictKeys(strict bool) Option {
	return Option(config.WithStrictKeys(strict))
}

// WithBloomFilter 啟用布隆過濾器以快速排除不存在的鍵
func WithBloomFilter(expectedItems uint, falsePositiveRate float64, rebuildInterval time.Duration) Option {
	return Option(config.WithBloomFilter(expectedItems, falsePositiveRate, rebuildInterval))
}

// WithObservers 建立時註冊觀察者
func WithObservers(observers ...Observer) Option {
	return Option(config.WithObservers(observers...))
}

// WithNow 設置時間來源，測試時可注入假時鐘
func WithNow(now func() time.Time) Option {
	return Option(config.WithNow(now))
}

// Cache is a named in-memory cache. It is safe for concurrent use.
type Cache struct {
	ops engine.CacheOperations
}

// New 創建一個不屬於任何 Manager 的快取
func New(ctx context.Context, name string, opts ...Option) (*Cache, error) {
	return newCache(ctx, name, nil, opts...)
}

func newCache(ctx context.Context, name string, onDestroy func(string), opts ...Option) (*Cache, error) {
	options := make([]config.Option, 0, len(opts)+1)
	options = append(options, config.WithName(name))
	for _, opt := range opts {
		options = append(options, config.Option(opt))
	}

	cfg, err := config.NewConfig(options...)
	if err != nil {
		return nil, fmt.Errorf("failed to create config: %w", err)
	}

	ops, err := engine.New(ctx, cfg, onDestroy)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cache %q: %w", name, err)
	}

	return &Cache{ops: ops}, nil
}

// Name 返回快取名稱
func (c *Cache) Name() string {
	return c.ops.Name()
}

// Get 獲取快取項目，過期的項目視為不存在
func (c *Cache) Get(ctx context.Context, key string) (any, bool, error) {
	return c.ops.Get(ctx, key)
}

// GetOrLoad 獲取快取項目，不存在時以 loader 載入並寫入，同一個鍵同時只會載入一次
func (c *Cache) GetOrLoad(ctx context.Context, key string, loader LoaderFunc, ttl ...time.Duration) (any, error) {
	return c.ops.GetOrLoad(ctx, key, loader, ttl...)
}

// Put 設置快取項目。ttl 省略或為 0 時使用默認值，NoExpiration 表示永不過期
func (c *Cache) Put(ctx context.Context, key string, value any, ttl ...time.Duration) error {
	return c.ops.Put(ctx, key, value, ttl...)
}

// Evict 刪除快取項目，不存在時不做任何事
func (c *Cache) Evict(ctx context.Context, key string) error {
	return c.ops.Evict(ctx, key)
}

// EvictAll 刪除多個快取項目，返回實際刪除的數量
func (c *Cache) EvictAll(ctx context.Context, keys []string) (int, error) {
	return c.ops.EvictAll(ctx, keys)
}

// Clear 清空所有快取
func (c *Cache) Clear(ctx context.Context) (int, error) {
	return c.ops.Clear(ctx)
}

// Destroy 清空並關閉快取，之後的所有操作都會返回 ErrCacheUnusable
func (c *Cache) Destroy(ctx context.Context) error {
	return c.ops.Destroy(ctx)
}

// Destroyed reports whether the cache has been destroyed.
func (c *Cache) Destroyed() bool {
	return c.ops.Destroyed()
}

// Keys 返回未過期項目的鍵
func (c *Cache) Keys(ctx context.Context) ([]string, error) {
	return c.ops.Keys(ctx)
}

// Len 返回目前項目數量，包含尚未清理的過期項目
func (c *Cache) Len() int {
	return c.ops.Len()
}

// PurgeExpired 立即清理所有過期項目
func (c *Cache) PurgeExpired(ctx context.Context) (int, error) {
	return c.ops.PurgeExpired(ctx)
}

// Stats 返回命中率等統計
func (c *Cache) Stats() Stats {
	return c.ops.Stats()
}

// RegisterObserver 註冊觀察者，返回的 ID 可用於取消註冊
func (c *Cache) RegisterObserver(obs Observer) (uuid.UUID, error) {
	return c.ops.RegisterObserver(obs)
}

// UnregisterObserver 取消註冊觀察者
func (c *Cache) UnregisterObserver(id uuid.UUID) bool {
	return c.ops.UnregisterObserver(id)
}
