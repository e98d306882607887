// Package redispub forwards cache events to a Redis pub/sub channel.
package redispub

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"goflare.io/atoms/internal/models"
	"goflare.io/atoms/internal/notify"
	"goflare.io/atoms/internal/retrier"
	"goflare.io/atoms/pkg/serialization"
)

// DefaultChannel is used when Config.Channel is empty.
const DefaultChannel = "atoms:events"

// Client is the part of a go-redis client the observer needs. *redis.Client,
// *redis.ClusterClient and redis.UniversalClient all satisfy it.
type Client interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// Message is the payload published for every event.
type Message struct {
	ID    string    `json:"id"`
	Cache string    `json:"cache"`
	Kind  string    `json:"kind"`
	Key   string    `json:"key,omitempty"`
	Value any       `json:"value,omitempty"`
	At    time.Time `json:"at"`
}

// Config 用於 Redis 事件發布的配置
type Config struct {
	Channel string
	// Serialization 為 serialization.JSONType 或 serialization.GobType
	Serialization string
	// IncludeValues 發布 Put/Evicted 事件時附帶值
	IncludeValues bool
	// PublishTimeout 單一事件（含重試）的最長時間
	PublishTimeout time.Duration
	Breaker        gobreaker.Settings
	Retry          retrier.Settings
	Logger         *zap.Logger
	Now            func() time.Time
}

// DefaultConfig returns the settings used by New for zero fields.
func DefaultConfig() Config {
	return Config{
		Channel:        DefaultChannel,
		Serialization:  serialization.JSONType,
		PublishTimeout: time.Second,
		Breaker: gobreaker.Settings{
			Name:        "redispub",
			MaxRequests: 3,
			Interval:    60 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures > 5
			},
		},
		Retry:  defaultRetry(),
		Logger: zap.NewNop(),
		Now:    time.Now,
	}
}

func defaultRetry() retrier.Settings {
	s := retrier.DefaultSettings()
	s.Retryable = IsRetryable
	return s
}

// IsRetryable reports whether a publish failure is worth another attempt:
// network errors (refused or reset connections, timeouts), connections closed
// mid-reply and errors that declare themselves temporary. Context expiry and
// Redis error replies are not.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return retrier.IsTemporary(err)
}

// Observer publishes every cache event it receives. Publishing goes through a
// circuit breaker wrapping a retrier, so a Redis outage costs one fast
// failure per event once the breaker opens.
type Observer struct {
	client  Client
	config  Config
	codec   *serialization.Codec
	breaker *gobreaker.CircuitBreaker
	retrier *retrier.Retrier
	logger  *zap.Logger
}

var _ notify.Observer = (*Observer)(nil)

// New creates an Observer publishing through client.
func New(client Client, cfg Config) (*Observer, error) {
	if client == nil {
		return nil, errors.New("redis client must not be nil")
	}

	def := DefaultConfig()
	if cfg.Channel == "" {
		cfg.Channel = def.Channel
	}
	if cfg.Serialization == "" {
		cfg.Serialization = def.Serialization
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = def.PublishTimeout
	}
	if cfg.Breaker.Name == "" {
		cfg.Breaker = def.Breaker
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = def.Retry
	}
	if cfg.Retry.Retryable == nil {
		cfg.Retry.Retryable = IsRetryable
	}
	if cfg.Logger == nil {
		cfg.Logger = def.Logger
	}
	if cfg.Now == nil {
		cfg.Now = def.Now
	}

	codec, err := serialization.NewCodec(cfg.Serialization)
	if err != nil {
		return nil, err
	}
	r, err := retrier.New(cfg.Retry)
	if err != nil {
		return nil, fmt.Errorf("invalid retry settings: %w", err)
	}

	logger := cfg.Logger.With(zap.String("channel", cfg.Channel))
	settings := cfg.Breaker
	onStateChange := settings.OnStateChange
	settings.OnStateChange = func(name string, from, to gobreaker.State) {
		logger.Warn("Circuit breaker state changed",
			zap.String("breaker", name),
			zap.String("from", from.String()),
			zap.String("to", to.String()))
		if onStateChange != nil {
			onStateChange(name, from, to)
		}
	}

	return &Observer{
		client:  client,
		config:  cfg,
		codec:   codec,
		breaker: gobreaker.NewCircuitBreaker(settings),
		retrier: r,
		logger:  logger,
	}, nil
}

// State returns the circuit breaker state.
func (o *Observer) State() gobreaker.State {
	return o.breaker.State()
}

func (o *Observer) OnPut(cache, key string, value any) error {
	return o.publish(models.PutEvent(cache, key, value))
}

func (o *Observer) OnRemoved(cache, key string) error {
	return o.publish(models.RemovedEvent(cache, key))
}

func (o *Observer) OnEvicted(cache, key string, value any) error {
	return o.publish(models.EvictedEvent(cache, key, value))
}

func (o *Observer) OnExpired(cache, key string) error {
	return o.publish(models.ExpiredEvent(cache, key))
}

func (o *Observer) OnClearAll(cache string) error {
	return o.publish(models.ClearedAllEvent(cache))
}

func (o *Observer) message(ev models.Event) Message {
	msg := Message{
		ID:    uuid.NewString(),
		Cache: ev.Cache,
		Kind:  ev.Kind.String(),
		Key:   ev.Key,
		At:    o.config.Now(),
	}
	if o.config.IncludeValues {
		msg.Value = ev.Value
	}
	return msg
}

func (o *Observer) publish(ev models.Event) error {
	payload, err := o.codec.Marshal(o.message(ev))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), o.config.PublishTimeout)
	defer cancel()

	_, err = o.breaker.Execute(func() (any, error) {
		return nil, o.retrier.Run(ctx, func() error {
			return o.client.Publish(ctx, o.config.Channel, payload).Err()
		})
	})
	if err != nil {
		o.logger.Error("Failed to publish cache event",
			zap.String("cache", ev.Cache),
			zap.Stringer("kind", ev.Kind),
			zap.String("key", ev.Key),
			zap.Error(err))
		return fmt.Errorf("failed to publish %s event: %w", ev.Kind, err)
	}
	return nil
}
