package config

import (
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"goflare.io/atoms/internal/cache/eviction"
	"goflare.io/atoms/internal/models"
	"goflare.io/atoms/internal/notify"
)

// Config 用於單一快取實例的配置
type Config struct {
	Name            string            `validate:"required"`
	Capacity        uint64            `validate:"gte=0"`
	Policy          eviction.Type     `validate:"required,oneof=lru lfu fifo ttl"`
	DefaultTTL      time.Duration     `validate:"gte=0"`
	ExpiryMode      models.ExpiryMode `validate:"required,oneof=write access"`
	SweepInterval   time.Duration     `validate:"gte=0"`
	StripeCount     uint64            `validate:"min=1"`
	ObserverTimeout time.Duration     `validate:"gte=0"`
	StrictKeys      bool

	BloomFilterSettings BloomFilterConfig
	Observers           []notify.Observer
	Logger              *zap.Logger      `validate:"required"`
	Now                 func() time.Time `validate:"required"`
}

// BloomFilterConfig 用於布隆過濾器的配置
type BloomFilterConfig struct {
	Enabled           bool
	ExpectedItems     uint          `validate:"required_if=Enabled true"`
	FalsePositiveRate float64       `validate:"required_if=Enabled true,gte=0,lt=1"`
	RebuildInterval   time.Duration `validate:"gte=0"`
}

// Option 函數類型
type Option func(*Config) error

var (
	ErrStripeCountZero = errors.New("stripe count must be at least 1")

	validate = validator.New(validator.WithRequiredStructEnabled())
)

// NewConfig 創建一個默認的 Config，允許覆蓋特定參數
func NewConfig(options ...Option) (*Config, error) {
	cfg := &Config{
		Policy:        eviction.LRU,
		ExpiryMode:    models.ExpireAfterWrite,
		SweepInterval: time.Minute,
		StripeCount:   CalculateStripeCount(),
		BloomFilterSettings: BloomFilterConfig{
			ExpectedItems:     10000,
			FalsePositiveRate: 0.01,
			RebuildInterval:   10 * time.Minute,
		},
		Logger: zap.NewNop(),
		Now:    time.Now,
	}

	for _, option := range options {
		if err := option(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.StripeCount == 0 {
		return nil, ErrStripeCountZero
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid cache config: %w", err)
	}

	return cfg, nil
}

// WithName 設置快取名稱
func WithName(name string) Option {
	return func(c *Config) error {
		c.Name = name
		return nil
	}
}

// WithLogger 設置自定義 Logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Config) error {
		if logger != nil {
			c.Logger = logger
		}
		return nil
	}
}

// WithCapacity 設置最大項目數，0 表示不限制
func WithCapacity(capacity uint64) Option {
	return func(c *Config) error {
		c.Capacity = capacity
		return nil
	}
}

// WithPolicy 設置淘汰策略
func WithPolicy(policy eviction.Type) Option {
	return func(c *Config) error {
		c.Policy = policy
		return nil
	}
}

// WithDefaultTTL 設置默認的過期時間
func WithDefaultTTL(ttl time.Duration) Option {
	return func(c *Config) error {
		if ttl < 0 {
			return errors.New("default ttl must not be negative")
		}
		c.DefaultTTL = ttl
		return nil
	}
}

// WithExpiryMode 設置 TTL 的計算基準
func WithExpiryMode(mode models.ExpiryMode) Option {
	return func(c *Config) error {
		c.ExpiryMode = mode
		return nil
	}
}

// WithSweepInterval 設置清理過期項目的時間間隔，0 表示停用
func WithSweepInterval(interval time.Duration) Option {
	return func(c *Config) error {
		c.SweepInterval = interval
		return nil
	}
}

// WithStripeCount 設置分段數量
func WithStripeCount(count uint64) Option {
	return func(c *Config) error {
		if count == 0 {
			return ErrStripeCountZero
		}
		c.StripeCount = count
		return nil
	}
}

// WithObserverTimeout 設置單一觀察者的最長執行時間，0 表示不限制。
// A call that times out keeps running in the background, so the same observer
// may receive later events before that call returns.
func WithObserverTimeout(timeout time.Duration) Option {
	return func(c *Config) error {
		c.ObserverTimeout = timeout
		return nil
	}
}

// WithStrictKeys 空鍵時回傳錯誤而非忽略
func WithStrictKeys(strict bool) Option {
	return func(c *Config) error {
		c.StrictKeys = strict
		return nil
	}
}

// WithBloomFilter 啟用布隆過濾器
func WithBloomFilter(expectedItems uint, falsePositiveRate float64, rebuildInterval time.Duration) Option {
	return func(c *Config) error {
		c.BloomFilterSettings = BloomFilterConfig{
			Enabled:           true,
			ExpectedItems:     expectedItems,
			FalsePositiveRate: falsePositiveRate,
			RebuildInterval:   rebuildInterval,
		}
		return nil
	}
}

// WithObservers 建立時即註冊的觀察者，依序接收事件
func WithObservers(observers ...notify.Observer) Option {
	return func(c *Config) error {
		for _, obs := range observers {
			if obs == nil {
				return errors.New("observer must not be nil")
			}
		}
		c.Observers = append(c.Observers, observers...)
		return nil
	}
}

// WithNow 設置時間來源
func WithNow(now func() time.Time) Option {
	return func(c *Config) error {
		if now == nil {
			return errors.New("time source must not be nil")
		}
		c.Now = now
		return nil
	}
}

// CalculateStripeCount 計算默認分段數量
func CalculateStripeCount() uint64 {
	// 限制分段數量不超過 CPU 核心數的 4 倍
	stripes := uint64(runtime.NumCPU() * 4)
	if stripes == 0 {
		stripes = 1
	}
	return stripes
}
