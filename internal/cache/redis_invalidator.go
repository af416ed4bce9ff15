package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultChannel      = "dashboard:views:invalidate"
	defaultCloseTimeout = 5 * time.Second
)

// ErrSubscriptionRunning is returned by a second concurrent Subscribe.
var ErrSubscriptionRunning = errors.New("cache: subscription already running")

type invalidationMessage struct {
	ViewKey string `json:"view_key"`
	Origin  string `json:"origin"`
}

// RedisInvalidator drops stale views locally and publishes the view key so
// every other instance drops its copy too.
type RedisInvalidator struct {
	client     *redis.Client
	ownsClient bool
	local      *ViewCache
	channel    string
	origin     string
	logger     *zap.Logger

	mu        sync.Mutex
	cancelFn  context.CancelFunc
	doneCh    chan struct{}
	isRunning bool
}

// RedisOption configures a RedisInvalidator.
type RedisOption func(*RedisInvalidator)

// WithChannel sets the Pub/Sub channel name.
func WithChannel(channel string) RedisOption {
	return func(i *RedisInvalidator) {
		if channel != "" {
			i.channel = channel
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) RedisOption {
	return func(i *RedisInvalidator) { i.logger = l }
}

// RedisConfig is the connection used by NewRedisInvalidator.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisInvalidator connects to Redis and checks it answers.
func NewRedisInvalidator(ctx context.Context, cfg RedisConfig, local *ViewCache, opts ...RedisOption) (*RedisInvalidator, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", cfg.Addr, err)
	}

	i := NewRedisInvalidatorWithClient(client, local, opts...)
	i.ownsClient = true
	return i, nil
}

// NewRedisInvalidatorWithClient uses an existing client; the caller keeps
// ownership of it.
func NewRedisInvalidatorWithClient(client *redis.Client, local *ViewCache, opts ...RedisOption) *RedisInvalidator {
	i := &RedisInvalidator{
		client:  client,
		local:   local,
		channel: defaultChannel,
		origin:  uuid.NewString(),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Invalidate drops viewKey locally, then publishes it. The local drop
// always happens; the returned error only reports the publish.
func (i *RedisInvalidator) Invalidate(ctx context.Context, viewKey string) error {
	_ = i.local.Invalidate(ctx, viewKey)

	data, err := json.Marshal(invalidationMessage{ViewKey: viewKey, Origin: i.origin})
	if err != nil {
		return fmt.Errorf("marshal invalidation: %w", err)
	}
	if err := i.client.Publish(ctx, i.channel, data).Err(); err != nil {
		return fmt.Errorf("publish invalidation for %s: %w", viewKey, err)
	}
	i.logger.Debug("published view invalidation",
		zap.String("view_key", viewKey),
		zap.String("channel", i.channel))
	return nil
}

// Subscribe blocks, applying invalidations published by other instances,
// until ctx is cancelled or Close is called. Run it in a goroutine.
func (i *RedisInvalidator) Subscribe(ctx context.Context) error {
	i.mu.Lock()
	if i.isRunning {
		i.mu.Unlock()
		return ErrSubscriptionRunning
	}
	subCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	i.isRunning = true
	i.cancelFn = cancel
	i.doneCh = done
	i.mu.Unlock()

	defer func() {
		cancel()
		i.mu.Lock()
		i.isRunning = false
		i.mu.Unlock()
		close(done)
	}()

	pubsub := i.client.Subscribe(subCtx, i.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(subCtx); err != nil {
		return fmt.Errorf("subscribe %s: %w", i.channel, err)
	}
	i.logger.Info("subscribed to view invalidation channel", zap.String("channel", i.channel))

	ch := pubsub.Channel()
	for {
		select {
		case <-subCtx.Done():
			return subCtx.Err()
		case msg, ok := <-ch:
			if !ok {
				i.logger.Warn("view invalidation channel closed")
				return nil
			}
			i.handle(subCtx, msg.Payload)
		}
	}
}

func (i *RedisInvalidator) handle(ctx context.Context, payload string) {
	var m invalidationMessage
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		i.logger.Error("bad invalidation message", zap.String("payload", payload), zap.Error(err))
		return
	}
	if m.Origin == i.origin || m.ViewKey == "" {
		return
	}
	_ = i.local.Invalidate(ctx, m.ViewKey)
	i.logger.Debug("applied remote view invalidation", zap.String("view_key", m.ViewKey))
}

// Close stops the subscription and closes the client if this invalidator
// created it.
func (i *RedisInvalidator) Close() error {
	i.mu.Lock()
	cancelFn, done, running := i.cancelFn, i.doneCh, i.isRunning
	i.mu.Unlock()

	if running {
		cancelFn()
		select {
		case <-done:
		case <-time.After(defaultCloseTimeout):
			i.logger.Warn("timeout waiting for invalidation subscription to stop")
		}
	}
	if i.ownsClient {
		return i.client.Close()
	}
	return nil
}

var _ Invalidator = (*RedisInvalidator)(nil)
