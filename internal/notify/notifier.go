// Package notify delivers cache events to registered observers.
package notify

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"goflare.io/atoms/internal/models"
)

// ErrObserverTimeout is logged when an observer exceeds the delivery bound.
var ErrObserverTimeout = errors.New("observer timed out")

type registration struct {
	id       uuid.UUID
	observer Observer
}

// Notifier delivers events synchronously, in registration order, on the
// goroutine that raised them.
type Notifier struct {
	mu        sync.RWMutex
	observers []registration
	timeout   time.Duration
	logger    *zap.Logger
}

// New creates a Notifier. A positive timeout bounds how long a single
// observer call may hold up delivery. A timed-out call is abandoned, not
// cancelled, so per-observer ordering no longer holds for it.
func New(timeout time.Duration, logger *zap.Logger) *Notifier {
	return &Notifier{
		timeout: timeout,
		logger:  logger,
	}
}

// Register appends obs and returns the handle needed to unregister it.
func (n *Notifier) Register(obs Observer) uuid.UUID {
	id := uuid.New()
	n.mu.Lock()
	n.observers = append(n.observers, registration{id: id, observer: obs})
	n.mu.Unlock()
	return id
}

// Unregister removes the observer registered under id.
func (n *Notifier) Unregister(id uuid.UUID) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	for i, r := range n.observers {
		if r.id == id {
			n.observers = append(n.observers[:i:i], n.observers[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of registered observers.
func (n *Notifier) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.observers)
}

// Notify delivers ev to every observer registered at the time of the call.
func (n *Notifier) Notify(ev models.Event) {
	n.mu.RLock()
	observers := n.observers
	n.mu.RUnlock()

	for _, r := range observers {
		if err := n.deliver(r.observer, ev); err != nil {
			n.logger.Error("Observer failed",
				zap.String("cache", ev.Cache),
				zap.Stringer("event", ev.Kind),
				zap.String("key", ev.Key),
				zap.String("observer", r.id.String()),
				zap.Error(err))
		}
	}
}

// NotifyAll delivers events in order.
func (n *Notifier) NotifyAll(events []models.Event) {
	for _, ev := range events {
		n.Notify(ev)
	}
}

func (n *Notifier) deliver(obs Observer, ev models.Event) error {
	if n.timeout <= 0 {
		return safeDispatch(obs, ev)
	}

	done := make(chan error, 1)
	go func() {
		done <- safeDispatch(obs, ev)
	}()

	timer := time.NewTimer(n.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("%w after %s", ErrObserverTimeout, n.timeout)
	}
}

func safeDispatch(obs Observer, ev models.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("observer panicked: %v", r)
		}
	}()
	return Dispatch(obs, ev)
}
