package models

import "errors"

// 定義常見錯誤
var (
	// ErrCacheUnusable is returned by every operation on a destroyed cache.
	ErrCacheUnusable = errors.New("cache is unusable")
	// ErrInvalidKey is returned for empty keys when strict key checking is on.
	ErrInvalidKey = errors.New("invalid cache key")
	// ErrStoreFailure wraps failures of the underlying entry store.
	ErrStoreFailure = errors.New("cache store failure")
	// ErrCapacityExceeded is returned when a put cannot make room for a new key.
	ErrCapacityExceeded = errors.New("cache capacity exceeded")
	// ErrStoreClosed is returned by a store after Close.
	ErrStoreClosed = errors.New("store is closed")
	// ErrBusy is returned when a non-blocking maintenance pass finds the store locked.
	ErrBusy = errors.New("cache is busy")
	// ErrCacheExists is returned when a manager already holds a cache with the same name.
	ErrCacheExists = errors.New("cache already exists")
	// ErrCacheNotFound is returned when a manager has no cache with the given name.
	ErrCacheNotFound = errors.New("cache not found")
)
