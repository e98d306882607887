// Package store holds cache entries in a striped, concurrency-safe map.
package store

import (
	"context"
	"runtime"
	"sync"

	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"goflare.io/atoms/internal/models"
	"goflare.io/atoms/internal/utils"
)

// Store defines the interface for entry storage.
type Store interface {
	Get(ctx context.Context, key string) (*models.Entry, bool, error)
	Contains(ctx context.Context, key string) (bool, error)
	Put(ctx context.Context, entry *models.Entry) (*models.Entry, bool, error)
	Remove(ctx context.Context, key string) (*models.Entry, bool, error)
	RemoveIf(ctx context.Context, key string, pred func(*models.Entry) bool) (*models.Entry, bool, error)
	RemoveAll(ctx context.Context, keys []string) ([]*models.Entry, error)
	Clear(ctx context.Context) (int, error)
	Keys(ctx context.Context, filter func(*models.Entry) bool) ([]string, error)
	Scan(ctx context.Context, match func(*models.Entry) bool) ([]string, error)
	Len() int
	Close() error
}

type stripe struct {
	sync.RWMutex
	entries map[string]*models.Entry
}

// Striped implements Store with one lock per stripe and a store-wide lock
// that whole-store operations take exclusively.
type Striped struct {
	mu      sync.RWMutex
	closed  bool
	stripes []*stripe
	count   *atomic.Int64
	logger  *zap.Logger
}

// NewStriped creates a new Striped store with stripeCount stripes.
func NewStriped(stripeCount uint64, logger *zap.Logger) *Striped {
	if stripeCount == 0 {
		stripeCount = 1
	}
	s := &Striped{
		stripes: make([]*stripe, stripeCount),
		count:   atomic.NewInt64(0),
		logger:  logger,
	}
	for i := range s.stripes {
		s.stripes[i] = &stripe{entries: make(map[string]*models.Entry)}
	}
	return s
}

func (s *Striped) stripeFor(key string) *stripe {
	return s.stripes[utils.StripeIndex(uint64(len(s.stripes)), key)]
}

// readLock takes the store-wide read lock and fails fast on a done context
// or a closed store.
func (s *Striped) readLock(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return models.ErrStoreClosed
	}
	return nil
}

func (s *Striped) writeLock(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return models.ErrStoreClosed
	}
	return nil
}

// Get retrieves an entry.
func (s *Striped) Get(ctx context.Context, key string) (*models.Entry, bool, error) {
	if err := s.readLock(ctx); err != nil {
		return nil, false, err
	}
	defer s.mu.RUnlock()

	st := s.stripeFor(key)
	st.RLock()
	entry, ok := st.entries[key]
	st.RUnlock()
	return entry, ok, nil
}

// Contains reports whether key is stored, expired or not.
func (s *Striped) Contains(ctx context.Context, key string) (bool, error) {
	_, ok, err := s.Get(ctx, key)
	return ok, err
}

// Put stores entry and returns the entry it replaced.
func (s *Striped) Put(ctx context.Context, entry *models.Entry) (*models.Entry, bool, error) {
	if err := s.readLock(ctx); err != nil {
		return nil, false, err
	}
	defer s.mu.RUnlock()

	st := s.stripeFor(entry.Key)
	st.Lock()
	defer st.Unlock()

	prev, replaced := st.entries[entry.Key]
	st.entries[entry.Key] = entry
	if !replaced {
		s.count.Inc()
	}
	return prev, replaced, nil
}

// Remove deletes key and returns the removed entry.
func (s *Striped) Remove(ctx context.Context, key string) (*models.Entry, bool, error) {
	return s.RemoveIf(ctx, key, nil)
}

// RemoveIf deletes key only when pred accepts the stored entry. A nil pred
// accepts every entry.
func (s *Striped) RemoveIf(ctx context.Context, key string, pred func(*models.Entry) bool) (*models.Entry, bool, error) {
	if err := s.readLock(ctx); err != nil {
		return nil, false, err
	}
	defer s.mu.RUnlock()

	st := s.stripeFor(key)
	st.Lock()
	defer st.Unlock()

	return s.removeLocked(st, key, pred)
}

func (s *Striped) removeLocked(st *stripe, key string, pred func(*models.Entry) bool) (*models.Entry, bool, error) {
	entry, ok := st.entries[key]
	if !ok || (pred != nil && !pred(entry)) {
		return nil, false, nil
	}
	delete(st.entries, key)
	s.count.Dec()
	return entry, true, nil
}

// RemoveAll deletes every present key and returns the removed entries in
// the order of keys.
func (s *Striped) RemoveAll(ctx context.Context, keys []string) ([]*models.Entry, error) {
	if err := s.readLock(ctx); err != nil {
		return nil, err
	}
	defer s.mu.RUnlock()

	removed := make([]*models.Entry, 0, len(keys))
	for _, key := range keys {
		st := s.stripeFor(key)
		st.Lock()
		entry, ok, _ := s.removeLocked(st, key, nil)
		st.Unlock()
		if ok {
			removed = append(removed, entry)
		}
	}
	return removed, nil
}

// Clear removes every entry and returns how many were removed.
func (s *Striped) Clear(ctx context.Context) (int, error) {
	if err := s.writeLock(ctx); err != nil {
		return 0, err
	}
	defer s.mu.Unlock()

	return s.clearLocked(), nil
}

func (s *Striped) clearLocked() int {
	n := 0
	for _, st := range s.stripes {
		n += len(st.entries)
		st.entries = make(map[string]*models.Entry)
	}
	s.count.Store(0)
	return n
}

// Keys returns a consistent snapshot of the stored keys accepted by filter.
// A nil filter accepts every entry.
func (s *Striped) Keys(ctx context.Context, filter func(*models.Entry) bool) ([]string, error) {
	if err := s.writeLock(ctx); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	keys := make([]string, 0, s.count.Load())
	for _, st := range s.stripes {
		for key, entry := range st.entries {
			if filter == nil || filter(entry) {
				keys = append(keys, key)
			}
		}
	}
	return keys, nil
}

// Scan collects the keys accepted by match without blocking. It returns
// models.ErrBusy when the store-wide lock is held and skips stripes that are
// locked; skipped keys are picked up by a later scan.
func (s *Striped) Scan(ctx context.Context, match func(*models.Entry) bool) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !s.mu.TryRLock() {
		return nil, models.ErrBusy
	}
	defer s.mu.RUnlock()
	if s.closed {
		return nil, models.ErrStoreClosed
	}

	found := make([][]string, len(s.stripes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, st := range s.stripes {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if !st.TryRLock() {
				s.logger.Debug("Skipping busy stripe", zap.Int("stripe", i))
				return nil
			}
			defer st.RUnlock()
			for key, entry := range st.entries {
				if match(entry) {
					found[i] = append(found[i], key)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var keys []string
	for _, part := range found {
		keys = append(keys, part...)
	}
	return keys, nil
}

// Len returns the number of stored entries.
func (s *Striped) Len() int {
	return int(s.count.Load())
}

// Close drops every entry and makes later operations fail with
// models.ErrStoreClosed.
func (s *Striped) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return models.ErrStoreClosed
	}
	s.clearLocked()
	s.closed = true
	return nil
}
