package atoms

import (
	"time"

	"goflare.io/atoms/internal/models"
)

// NoExpiration passed as a ttl stores an entry that never expires, whatever
// the default TTL.
const NoExpiration time.Duration = -1

var (
	ErrCacheUnusable    = models.ErrCacheUnusable
	ErrInvalidKey       = models.ErrInvalidKey
	ErrStoreFailure     = models.ErrStoreFailure
	ErrCapacityExceeded = models.ErrCapacityExceeded
	ErrCacheExists      = models.ErrCacheExists
	ErrCacheNotFound    = models.ErrCacheNotFound
)
