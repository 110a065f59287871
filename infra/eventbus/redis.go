package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/amirasaad/banking/pkg/domain/events"
	"github.com/amirasaad/banking/pkg/eventbus"

	"github.com/redis/go-redis/v9"
)

// RedisEventBus publishes events to a Redis stream and consumes them through
// a consumer group. One consumer loop per bus dispatches every message to the
// handlers registered for its type; failed messages go to "<stream>-DLQ".
type RedisEventBus struct {
	client        *redis.Client
	stream        string
	group         string
	consumer      string
	typeFactories map[string]func() events.Event
	logger        *slog.Logger
	readBackoff   time.Duration

	mu       sync.RWMutex
	handlers map[string][]eventbus.HandlerFunc

	start  sync.Once
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWithRedis creates a new Redis-backed event bus.
// url: Redis connection URL (e.g., "redis://localhost:6379")
// stream: Name of the Redis stream to use
// group: Consumer group name for event processing
func NewWithRedis(
	url, stream, group string,
	types map[string]func() events.Event,
	logger *slog.Logger,
) (*RedisEventBus, error) {
	if url == "" || stream == "" || group == "" {
		return nil, fmt.Errorf("redis event bus: url, stream, and group are required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis event bus: invalid URL: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis event bus: connection failed: %w", err)
	}

	err = client.XGroupCreateMkStream(context.Background(), stream, group, "0").Err()
	if err != nil && !isBusyGroup(err) {
		_ = client.Close()
		return nil, fmt.Errorf("redis event bus: create group: %w", err)
	}

	host, _ := os.Hostname()
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisEventBus{
		client:        client,
		stream:        stream,
		group:         group,
		consumer:      fmt.Sprintf("%s-%d", host, time.Now().UnixNano()),
		typeFactories: types,
		logger:        logger.With("bus", "redis", "stream", stream),
		readBackoff:   time.Second,
		handlers:      make(map[string][]eventbus.HandlerFunc),
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

func isBusyGroup(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "BUSYGROUP")
}

// Emit publishes an event to the Redis stream.
func (b *RedisEventBus) Emit(ctx context.Context, event events.Event) error {
	if b.client == nil {
		return fmt.Errorf("redis event bus: client not initialized")
	}
	envBytes, err := encodeEnvelope(event)
	if err != nil {
		return fmt.Errorf("redis event bus: %w", err)
	}

	if err := b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: b.stream,
		Values: map[string]any{"event": string(envBytes)},
	}).Err(); err != nil {
		b.logger.Error("failed to emit event", "error", err, "type", event.Type())
		return fmt.Errorf("redis event bus: emit failed: %w", err)
	}
	b.logger.Debug("event emitted", "type", event.Type())
	return nil
}

// Register adds a handler and starts the consumer loop on first use.
func (b *RedisEventBus) Register(eventType string, handler eventbus.HandlerFunc) {
	b.mu.Lock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
	b.mu.Unlock()

	b.start.Do(func() {
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			b.consume(b.ctx)
		}()
	})
	b.logger.Info("handler registered", "event_type", eventType, "consumer", b.consumer)
}

// Close stops the consumer loop and closes the client.
func (b *RedisEventBus) Close() error {
	b.cancel()
	b.wg.Wait()
	return b.client.Close()
}

func (b *RedisEventBus) consume(ctx context.Context) {
	for ctx.Err() == nil {
		res, err := b.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    b.group,
			Consumer: b.consumer,
			Streams:  []string{b.stream, ">"},
			Count:    10,
			Block:    2 * time.Second,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			b.logger.Error("error reading from stream", "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(b.readBackoff):
			}
			continue
		}

		for _, stream := range res {
			for _, msg := range stream.Messages {
				b.handle(ctx, msg)
				if err := b.client.XAck(ctx, b.stream, b.group, msg.ID).Err(); err != nil {
					b.logger.Error("failed to acknowledge message", "error", err, "msg_id", msg.ID)
				}
			}
		}
	}
}

func (b *RedisEventBus) handle(ctx context.Context, msg redis.XMessage) {
	raw, ok := msg.Values["event"].(string)
	if !ok {
		b.pushToDLQ(ctx, msg.Values, "missing event field")
		return
	}
	evt, err := decodeEnvelope([]byte(raw), b.typeFactories)
	if err != nil {
		b.pushToDLQ(ctx, msg.Values, err.Error())
		return
	}

	b.mu.RLock()
	handlers := append([]eventbus.HandlerFunc(nil), b.handlers[evt.Type()]...)
	b.mu.RUnlock()

	for _, h := range handlers {
		if err := b.run(ctx, h, evt); err != nil {
			b.logger.Error("handler error", "error", err, "event_type", evt.Type(), "msg_id", msg.ID)
			b.pushToDLQ(ctx, msg.Values, err.Error())
		}
	}
}

func (b *RedisEventBus) run(ctx context.Context, h eventbus.HandlerFunc, evt events.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(ctx, evt)
}

// pushToDLQ copies the raw message to the dead-letter stream for inspection or reprocessing.
func (b *RedisEventBus) pushToDLQ(ctx context.Context, values map[string]any, reason string) {
	dlqStream := b.stream + "-DLQ"
	out := make(map[string]any, len(values)+1)
	for k, v := range values {
		out[k] = v
	}
	out["reason"] = reason
	if err := b.client.XAdd(ctx, &redis.XAddArgs{Stream: dlqStream, Values: out}).Err(); err != nil {
		b.logger.Error("failed to push to DLQ", "error", err, "stream", dlqStream)
		return
	}
	b.logger.Warn("event pushed to DLQ", "stream", dlqStream, "reason", reason)
}

var _ eventbus.Bus = (*RedisEventBus)(nil)
