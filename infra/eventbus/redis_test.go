//go:build integration

package eventbus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/amirasaad/banking/pkg/domain/events"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

// setupRedisBus starts a Redis container and returns a bus connected to it.
func setupRedisBus(t *testing.T) *RedisEventBus {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	url, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	bus, err := NewWithRedis(url, "test:events", "test-group", testTypes, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = bus.Close() })
	return bus
}

func TestRedisBusHandlerReceivesEvent(t *testing.T) {
	bus := setupRedisBus(t)

	received := make(chan string, 3)
	bus.Register("test.event", func(_ context.Context, e events.Event) error {
		received <- e.(*testEvent).Message
		return nil
	})

	for _, m := range []string{"a", "b", "c"} {
		require.NoError(t, bus.Emit(context.Background(), &testEvent{Message: m}))
	}

	for _, want := range []string{"a", "b", "c"} {
		select {
		case got := <-received:
			require.Equal(t, want, got)
		case <-time.After(5 * time.Second):
			t.Fatal("handler did not receive event in time")
		}
	}
}

func TestRedisBusDLQ(t *testing.T) {
	bus := setupRedisBus(t)
	bus.Register("test.event", func(context.Context, events.Event) error {
		return errors.New("simulated failure")
	})

	require.NoError(t, bus.Emit(context.Background(), &testEvent{Message: "dead"}))

	require.Eventually(t, func() bool {
		res, err := bus.client.XRange(context.Background(), "test:events-DLQ", "-", "+").Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return false
		}
		return len(res) == 1 && res[0].Values["reason"] == "simulated failure"
	}, 10*time.Second, 100*time.Millisecond)
}
