//go:build integration

package eventbus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/amirasaad/banking/pkg/domain/events"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

func setupKafkaBus(t *testing.T) *KafkaEventBus {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)

	bus, err := NewWithKafka(brokers, "test.events", "test-group", testTypes, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = bus.Close() })
	return bus
}

func TestKafkaBusHandlerReceivesEvent(t *testing.T) {
	bus := setupKafkaBus(t)

	received := make(chan string, 1)
	bus.Register("test.event", func(_ context.Context, e events.Event) error {
		received <- e.(*testEvent).Message
		return nil
	})
	require.NoError(t, bus.Emit(context.Background(), &testEvent{Message: "hello"}))

	select {
	case msg := <-received:
		require.Equal(t, "hello", msg)
	case <-time.After(20 * time.Second):
		t.Fatal("handler did not receive event in time")
	}
}

func TestKafkaBusDLQ(t *testing.T) {
	bus := setupKafkaBus(t)
	bus.Register("test.event", func(context.Context, events.Event) error {
		return errors.New("simulated failure")
	})
	require.NoError(t, bus.Emit(context.Background(), &testEvent{Message: "dead"}))

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     bus.brokers,
		Topic:       bus.dlqTopic(),
		StartOffset: kafka.FirstOffset,
		MaxWait:     500 * time.Millisecond,
	})
	defer func() { _ = reader.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	msg, err := reader.FetchMessage(ctx)
	require.NoError(t, err)
	require.Equal(t, "test.event", string(msg.Key))
}
