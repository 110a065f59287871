package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/amirasaad/banking/pkg/domain/events"
	"github.com/amirasaad/banking/pkg/eventbus"
	"github.com/segmentio/kafka-go"
)

// KafkaEventBus publishes every event to one topic keyed by event type and
// consumes it through a consumer group. Messages whose handlers fail are
// copied to "<topic>.dlq" before the offset is committed.
type KafkaEventBus struct {
	brokers []string
	topic   string
	groupID string
	writer  *kafka.Writer
	dialer  *kafka.Dialer
	types   map[string]func() events.Event
	logger  *slog.Logger

	mu       sync.RWMutex
	handlers map[string][]eventbus.HandlerFunc

	start  sync.Once
	reader *kafka.Reader
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWithKafka creates a new Kafka-backed event bus.
func NewWithKafka(
	brokers []string,
	topic, groupID string,
	types map[string]func() events.Event,
	logger *slog.Logger,
) (*KafkaEventBus, error) {
	brokers = cleanBrokers(brokers)
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka event bus: brokers are required")
	}
	if topic == "" || groupID == "" {
		return nil, fmt.Errorf("kafka event bus: topic and group are required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	dialer := &kafka.Dialer{Timeout: 5 * time.Second}
	ctx, cancel := context.WithCancel(context.Background())
	bus := &KafkaEventBus{
		brokers: brokers,
		topic:   topic,
		groupID: groupID,
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			AllowAutoTopicCreation: true,
			RequiredAcks:           kafka.RequireOne,
			Balancer:               &kafka.Hash{},
		},
		dialer:   dialer,
		types:    types,
		logger:   logger.With("bus", "kafka", "topic", topic),
		handlers: make(map[string][]eventbus.HandlerFunc),
		ctx:      ctx,
		cancel:   cancel,
	}

	for _, t := range []string{topic, bus.dlqTopic()} {
		if err := bus.ensureTopic(ctx, t); err != nil {
			_ = bus.Close()
			return nil, err
		}
	}
	bus.logger.Info("Kafka event bus initialized", "group_id", groupID, "brokers", brokers)
	return bus, nil
}

// Emit publishes an event to Kafka.
func (b *KafkaEventBus) Emit(ctx context.Context, event events.Event) error {
	envBytes, err := encodeEnvelope(event)
	if err != nil {
		return fmt.Errorf("kafka event bus: %w", err)
	}
	msg := kafka.Message{
		Topic: b.topic,
		Key:   []byte(event.Type()),
		Value: envBytes,
		Time:  time.Now(),
	}
	if err := b.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka event bus: publish failed: %w", err)
	}
	return nil
}

// Register adds a handler and starts the consumer on first use.
func (b *KafkaEventBus) Register(eventType string, handler eventbus.HandlerFunc) {
	b.mu.Lock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
	b.mu.Unlock()

	b.start.Do(func() {
		b.reader = kafka.NewReader(kafka.ReaderConfig{
			Brokers:     b.brokers,
			GroupID:     b.groupID,
			Topic:       b.topic,
			StartOffset: kafka.FirstOffset,
			MinBytes:    1,
			MaxBytes:    10e6,
			MaxWait:     time.Second,
			Dialer:      b.dialer,
		})
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			b.consume(b.ctx)
		}()
	})
}

// Close stops the consumer and flushes the writer.
func (b *KafkaEventBus) Close() error {
	b.cancel()
	var errs []error
	if b.reader != nil {
		errs = append(errs, b.reader.Close())
	}
	b.wg.Wait()
	errs = append(errs, b.writer.Close())
	return errors.Join(errs...)
}

func (b *KafkaEventBus) consume(ctx context.Context) {
	for {
		msg, err := b.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			b.logger.Error("kafka consume error", "error", err)
			time.Sleep(500 * time.Millisecond)
			continue
		}

		if err := b.process(ctx, msg); err != nil {
			b.logger.Error("kafka message left uncommitted", "error", err, "offset", msg.Offset)
			time.Sleep(500 * time.Millisecond)
			continue
		}
		if err := b.reader.CommitMessages(ctx, msg); err != nil {
			b.logger.Error("kafka commit error", "error", err, "partition", msg.Partition, "offset", msg.Offset)
		}
	}
}

// process returns an error only when the message could not be parked in the
// DLQ, in which case the offset is not committed and the message is refetched.
func (b *KafkaEventBus) process(ctx context.Context, msg kafka.Message) error {
	evt, err := decodeEnvelope(msg.Value, b.types)
	if err != nil {
		return b.publishToDLQ(ctx, msg, err.Error())
	}

	b.mu.RLock()
	handlers := append([]eventbus.HandlerFunc(nil), b.handlers[evt.Type()]...)
	b.mu.RUnlock()

	var errs []error
	for _, h := range handlers {
		if err := h(ctx, evt); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		b.logger.Error("handler error", "error", err, "event_type", evt.Type(), "offset", msg.Offset)
		return b.publishToDLQ(ctx, msg, err.Error())
	}
	return nil
}

func (b *KafkaEventBus) publishToDLQ(ctx context.Context, msg kafka.Message, reason string) error {
	err := b.writer.WriteMessages(ctx, kafka.Message{
		Topic:   b.dlqTopic(),
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: []kafka.Header{{Key: "reason", Value: []byte(reason)}},
		Time:    time.Now(),
	})
	if err != nil {
		return fmt.Errorf("kafka event bus: dlq publish failed: %w", err)
	}
	b.logger.Warn("message sent to DLQ", "dlq_topic", b.dlqTopic(), "reason", reason)
	return nil
}

func (b *KafkaEventBus) dlqTopic() string {
	return b.topic + ".dlq"
}

func (b *KafkaEventBus) ensureTopic(ctx context.Context, topic string) error {
	conn, err := b.dialer.DialContext(ctx, "tcp", b.brokers[0])
	if err != nil {
		return fmt.Errorf("kafka event bus: dial failed: %w", err)
	}
	defer func() { _ = conn.Close() }()

	err = conn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
	if err != nil && !errors.Is(err, kafka.TopicAlreadyExists) {
		return fmt.Errorf("kafka event bus: create topic failed: %w", err)
	}
	return nil
}

func cleanBrokers(brokers []string) []string {
	out := make([]string, 0, len(brokers))
	for _, b := range brokers {
		for _, p := range strings.Split(b, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

var _ eventbus.Bus = (*KafkaEventBus)(nil)
