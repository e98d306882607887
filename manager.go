package atoms

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"goflare.io/atoms/internal/config"
)

// Manager is a registry of named caches. Options passed to NewManager apply
// to every cache it creates before the per-cache options.
type Manager struct {
	mu       sync.RWMutex
	caches   map[string]*Cache
	defaults []Option
	closed   bool
	logger   *zap.Logger
}

// NewManager 創建快取管理器，opts 為所有快取共用的默認選項
func NewManager(opts ...Option) (*Manager, error) {
	options := []config.Option{config.WithName("manager")}
	for _, opt := range opts {
		options = append(options, config.Option(opt))
	}
	cfg, err := config.NewConfig(options...)
	if err != nil {
		return nil, fmt.Errorf("invalid default options: %w", err)
	}

	return &Manager{
		caches:   make(map[string]*Cache),
		defaults: opts,
		logger:   cfg.Logger,
	}, nil
}

// Create 創建並登記一個新的快取，名稱重複時返回 ErrCacheExists
func (m *Manager) Create(ctx context.Context, name string, opts ...Option) (*Cache, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrCacheUnusable
	}
	if _, ok := m.caches[name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrCacheExists, name)
	}

	all := make([]Option, 0, len(m.defaults)+len(opts))
	all = append(all, m.defaults...)
	all = append(all, opts...)

	var c *Cache
	c, err := newCache(ctx, name, func(string) { m.remove(name, c) }, all...)
	if err != nil {
		return nil, err
	}
	m.caches[name] = c

	m.logger.Debug("Registered cache", zap.String("cache", name))
	return c, nil
}

// Lookup 依名稱取得快取
func (m *Manager) Lookup(name string) (*Cache, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.caches[name]
	return c, ok
}

// Destroy 銷毀並移除指定快取，不存在時返回 ErrCacheNotFound
func (m *Manager) Destroy(ctx context.Context, name string) error {
	c, ok := m.Lookup(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrCacheNotFound, name)
	}
	return c.Destroy(ctx)
}

// Names 返回所有已登記快取的名稱（已排序）
func (m *Manager) Names() []string {
	m.mu.RLock()
	names := make([]string, 0, len(m.caches))
	for name := range m.caches {
		names = append(names, name)
	}
	m.mu.RUnlock()

	sort.Strings(names)
	return names
}

// Close 銷毀所有快取，之後 Create 返回 ErrCacheUnusable
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	caches := make([]*Cache, 0, len(m.caches))
	for _, c := range m.caches {
		caches = append(caches, c)
	}
	m.mu.Unlock()

	var errs []error
	for _, c := range caches {
		if err := c.Destroy(ctx); err != nil && !errors.Is(err, ErrCacheUnusable) {
			errs = append(errs, fmt.Errorf("failed to destroy cache %q: %w", c.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// remove drops name from the registry when it still maps to c. Called by the
// cache itself once it is destroyed.
func (m *Manager) remove(name string, c *Cache) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if current, ok := m.caches[name]; ok && current == c {
		delete(m.caches, name)
		m.logger.Debug("Unregistered cache", zap.String("cache", name))
	}
}
