package utils

import (
	"time"

	"github.com/dgraph-io/ristretto/z"
)

// StripeIndex 計算分段索引
func StripeIndex(totalStripes uint64, key string) uint64 {
	if totalStripes <= 1 {
		return 0
	}
	return z.MemHashString(key) % totalStripes
}

// ResolveTTL picks the per-call TTL when one is given and positive, the
// default otherwise. A negative per-call TTL disables expiry.
func ResolveTTL(defaultTTL time.Duration, ttl ...time.Duration) time.Duration {
	if len(ttl) == 0 || ttl[0] == 0 {
		return defaultTTL
	}
	if ttl[0] < 0 {
		return 0
	}
	return ttl[0]
}
