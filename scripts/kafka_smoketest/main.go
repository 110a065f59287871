package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"time"

	infraeventbus "github.com/amirasaad/banking/infra/eventbus"
	"github.com/amirasaad/banking/pkg/config"
	"github.com/amirasaad/banking/pkg/domain/events"
	"github.com/amirasaad/banking/pkg/money"
	"github.com/google/uuid"
)

// RunSmokeTest emits a deposit notification through the Kafka event bus and
// waits for the consumer group to hand it back, verifying a local broker
// works end to end with the service's envelope format.
func RunSmokeTest() error {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	brokers := strings.Split(config.GetEnv("KAFKA_BROKERS", "localhost:9093,localhost:9092"), ",")
	topic := config.GetEnv("KAFKA_TOPIC", "banking.events.smoketest")
	groupID := config.GetEnv("KAFKA_GROUP_ID", "banking-smoketest")
	timeout := config.GetEnvAsDuration("SMOKETEST_TIMEOUT", 30*time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	bus, err := infraeventbus.NewWithKafka(brokers, topic, groupID, events.EventTypes, logger)
	if err != nil {
		logger.Error("kafka bus unavailable", "error", err)
		return err
	}
	defer func() { _ = bus.Close() }()

	sent := &events.TransactionPosted{
		FlowEvent: events.FlowEvent{
			ID:            uuid.New(),
			FlowType:      "deposit",
			UserID:        uuid.New(),
			AccountID:     uuid.New(),
			CorrelationID: uuid.New(),
			Timestamp:     time.Now().UTC(),
		},
		EventType:     events.EventTypeDepositPosted,
		TransactionID: uuid.New(),
		AccountNumber: "1000000001",
		Amount:        money.MustParse("1.00", money.USD),
		Balance:       money.MustParse("1.00", money.USD),
	}

	received := make(chan *events.TransactionPosted, 1)
	bus.Register(events.EventTypeDepositPosted.String(), func(_ context.Context, e events.Event) error {
		if posted, ok := e.(*events.TransactionPosted); ok && posted.ID == sent.ID {
			select {
			case received <- posted:
			default:
			}
		}
		return nil
	})

	if err := bus.Emit(ctx, sent); err != nil {
		logger.Error("emit failed", "error", err)
		return err
	}
	logger.Info("produced", "topic", topic, "event_id", sent.ID)

	select {
	case got := <-received:
		logger.Info("consumed", "topic", topic, "event_id", got.ID, "amount", got.Amount.String())
	case <-ctx.Done():
		logger.Error("event was not consumed in time", "timeout", timeout)
		return errors.New("kafka smoke test timed out")
	}

	logger.Info("kafka smoke test passed")
	return nil
}

// main runs the smoke test and exits non-zero on failure.
func main() {
	if err := RunSmokeTest(); err != nil {
		os.Exit(1)
	}
}
