package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/amirasaad/banking/pkg/domain/events"
	"github.com/amirasaad/banking/pkg/repository"
	"github.com/google/uuid"
)

// OutboxWriter serializes events into outbox rows. It is used inside the
// unit of work that performs the ledger change, so the row commits with it.
type OutboxWriter struct {
	now func() time.Time
}

// NewOutboxWriter returns a writer stamping rows with now.
func NewOutboxWriter(now func() time.Time) *OutboxWriter {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &OutboxWriter{now: now}
}

// Write stores event as a PENDING outbox row for aggregateID.
func (w *OutboxWriter) Write(
	ctx context.Context,
	repo repository.OutboxRepository,
	event events.Event,
	aggregateID uuid.UUID,
) (*repository.OutboxEvent, error) {
	if v, ok := event.(events.Validatable); ok {
		if err := v.Validate(); err != nil {
			return nil, fmt.Errorf("invalid %s event: %w", event.Type(), err)
		}
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal %s event: %w", event.Type(), err)
	}
	now := w.now()
	row := &repository.OutboxEvent{
		ID:          uuid.New(),
		EventType:   event.Type(),
		AggregateID: aggregateID,
		Payload:     payload,
		Status:      repository.OutboxStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := repo.Create(ctx, row); err != nil {
		return nil, err
	}
	return row, nil
}
