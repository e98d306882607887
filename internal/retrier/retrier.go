// Package retrier runs an operation again after temporary failures, waiting
// between attempts according to a backoff strategy.
package retrier

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"
)

const (
	minMaxAttempts = 1
	minBaseDelay   = time.Millisecond
	minFactor      = 1.0
	maxJitter      = 1.0
	delayCeiling   = time.Hour
)

// ExponentialBackoff represents a backoff strategy where intervals exponentially increase.
// LinearBackoff represents a backoff strategy where intervals increase linearly.
// FibonacciBackoff represents a backoff strategy where intervals increase based on the Fibonacci sequence.
const (
	ExponentialBackoff BackoffStrategy = iota
	LinearBackoff
	FibonacciBackoff
)

var (
	// ErrInvalidMaxAttempts is returned when the max attempts parameter is invalid.
	ErrInvalidMaxAttempts = errors.New("max attempts must be at least 1")
	// ErrInvalidBaseDelay is returned when the base delay parameter is invalid.
	ErrInvalidBaseDelay = errors.New("base delay must be at least 1ms")
	// ErrInvalidFactor is returned when the factor parameter is invalid.
	ErrInvalidFactor = errors.New("factor must be at least 1.0")
	// ErrInvalidJitter is returned when the jitter parameter is invalid.
	ErrInvalidJitter = errors.New("jitter must be between 0 and 1")
	// ErrMaxAttempts wraps the last error once every attempt has failed.
	ErrMaxAttempts = errors.New("max retry attempts reached")
)

// BackoffStrategy defines the strategy used for calculating backoff intervals in retry mechanisms.
type BackoffStrategy int

// Settings configures a Retrier.
type Settings struct {
	MaxAttempts int
	BaseDelay   time.Duration
	// MaxDelay caps a single wait before jitter. Zero means BaseDelay.
	MaxDelay time.Duration
	Factor   float64
	Jitter   float64
	Strategy BackoffStrategy
	// Retryable decides whether an error is worth another attempt. Nil
	// falls back to IsTemporary.
	Retryable func(error) bool
}

// DefaultSettings returns three exponential attempts starting at 10ms.
func DefaultSettings() Settings {
	return Settings{
		MaxAttempts: 3,
		BaseDelay:   10 * time.Millisecond,
		MaxDelay:    time.Second,
		Factor:      2,
		Jitter:      0.1,
		Strategy:    ExponentialBackoff,
	}
}

// Retrier provides functionality to execute a function with retry logic based on different backoff strategies.
type Retrier struct {
	settings Settings
	randPool *sync.Pool

	fibMu          sync.Mutex
	fibonacciCache []time.Duration
}

// New creates a Retrier after validating s.
func New(s Settings) (*Retrier, error) {
	if s.MaxAttempts < minMaxAttempts {
		return nil, ErrInvalidMaxAttempts
	}
	if s.BaseDelay < minBaseDelay {
		return nil, ErrInvalidBaseDelay
	}
	if s.Factor < minFactor {
		return nil, ErrInvalidFactor
	}
	if s.Jitter < 0 || s.Jitter > maxJitter {
		return nil, ErrInvalidJitter
	}
	if s.MaxDelay < s.BaseDelay {
		s.MaxDelay = s.BaseDelay
	}
	if s.Retryable == nil {
		s.Retryable = IsTemporary
	}

	return &Retrier{
		settings: s,
		randPool: &sync.Pool{
			New: func() any {
				return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
			},
		},
		fibonacciCache: []time.Duration{s.BaseDelay, s.BaseDelay},
	}, nil
}

// Run executes fn until it succeeds, returns a non-retryable error, the
// attempts run out or ctx is done.
func (r *Retrier) Run(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < r.settings.MaxAttempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if !r.settings.Retryable(err) {
			return err
		}
		if attempt == r.settings.MaxAttempts-1 {
			break
		}

		timer := time.NewTimer(r.Delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return fmt.Errorf("%w: %w", ErrMaxAttempts, err)
}

// Delay computes the wait after the given zero-based attempt.
func (r *Retrier) Delay(attempt int) time.Duration {
	var delay float64

	switch r.settings.Strategy {
	case LinearBackoff:
		delay = float64(r.settings.BaseDelay) * float64(attempt+1)
	case FibonacciBackoff:
		delay = float64(r.fibonacciDelay(attempt))
	default:
		delay = float64(r.settings.BaseDelay) * math.Pow(r.settings.Factor, float64(attempt))
	}

	if delay > float64(r.settings.MaxDelay) {
		delay = float64(r.settings.MaxDelay)
	}

	if r.settings.Jitter > 0 {
		rng := r.randPool.Get().(*rand.Rand)
		delay += rng.Float64() * r.settings.Jitter * delay
		r.randPool.Put(rng)
	}

	if delay > float64(delayCeiling) {
		delay = float64(delayCeiling)
	}
	return time.Duration(delay)
}

func (r *Retrier) fibonacciDelay(attempt int) time.Duration {
	r.fibMu.Lock()
	defer r.fibMu.Unlock()

	for len(r.fibonacciCache) <= attempt {
		n := len(r.fibonacciCache)
		next := r.fibonacciCache[n-1] + r.fibonacciCache[n-2]
		if next > r.settings.MaxDelay {
			next = r.settings.MaxDelay
		}
		r.fibonacciCache = append(r.fibonacciCache, next)
	}
	return r.fibonacciCache[attempt]
}
