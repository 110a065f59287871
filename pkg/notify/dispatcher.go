package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/amirasaad/banking/pkg/config"
	"github.com/amirasaad/banking/pkg/domain/events"
	"github.com/amirasaad/banking/pkg/eventbus"
	"github.com/amirasaad/banking/pkg/repository"
	"github.com/google/uuid"
)

// Dispatcher publishes outbox rows to the event bus and records the outcome
// on each row.
type Dispatcher struct {
	uow         repository.UnitOfWork
	bus         eventbus.Bus
	types       map[string]func() events.Event
	interval    time.Duration
	batchSize   int
	maxAttempts int
	now         func() time.Time
	logger      *slog.Logger
}

// NewDispatcher returns a Dispatcher. A nil cfg uses the OUTBOX_* defaults.
func NewDispatcher(
	uow repository.UnitOfWork,
	bus eventbus.Bus,
	cfg *config.Outbox,
	logger *slog.Logger,
) *Dispatcher {
	if cfg == nil {
		cfg = &config.Outbox{PollInterval: 5 * time.Second, BatchSize: 100, MaxAttempts: 5}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		uow:         uow,
		bus:         bus,
		types:       events.EventTypes,
		interval:    cfg.PollInterval,
		batchSize:   cfg.BatchSize,
		maxAttempts: cfg.MaxAttempts,
		now:         func() time.Time { return time.Now().UTC() },
		logger:      logger.With("component", "outbox-dispatcher"),
	}
}

// Deliver publishes the given rows. Rows already published are skipped.
// The returned error joins the failure of every row that could not be
// delivered; each such row is marked FAILED with its attempt count raised.
func (d *Dispatcher) Deliver(ctx context.Context, ids ...uuid.UUID) error {
	repo, err := d.uow.OutboxRepository()
	if err != nil {
		return err
	}
	rows, err := repo.GetByIDs(ctx, ids)
	if err != nil {
		return err
	}
	return d.publish(ctx, repo, rows)
}

// DispatchPending retries up to limit PENDING or FAILED rows that still have
// attempts left. It returns how many rows were published.
func (d *Dispatcher) DispatchPending(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = d.batchSize
	}
	repo, err := d.uow.OutboxRepository()
	if err != nil {
		return 0, err
	}
	rows, err := repo.ListPending(ctx, d.maxAttempts, limit)
	if err != nil {
		return 0, err
	}
	err = d.publish(ctx, repo, rows)
	failed := 0
	if err != nil {
		if j, ok := err.(interface{ Unwrap() []error }); ok {
			failed = len(j.Unwrap())
		} else {
			failed = 1
		}
	}
	return len(rows) - failed, err
}

// Run polls for undelivered rows until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	d.logger.Info("outbox dispatcher started", "interval", d.interval, "batch", d.batchSize)
	for {
		select {
		case <-ctx.Done():
			d.logger.Info("outbox dispatcher stopped")
			return nil
		case <-ticker.C:
			n, err := d.DispatchPending(ctx, d.batchSize)
			if err != nil {
				d.logger.Warn("outbox dispatch incomplete", "published", n, "error", err)
				continue
			}
			if n > 0 {
				d.logger.Debug("outbox dispatched", "published", n)
			}
		}
	}
}

func (d *Dispatcher) publish(ctx context.Context, repo repository.OutboxRepository, rows []*repository.OutboxEvent) error {
	var errs []error
	for _, row := range rows {
		if row.Status == repository.OutboxStatusPublished {
			continue
		}
		if err := d.publishOne(ctx, row); err != nil {
			errs = append(errs, fmt.Errorf("event %s (%s): %w", row.ID, row.EventType, err))
			if markErr := repo.MarkFailed(ctx, row.ID, err.Error()); markErr != nil {
				d.logger.Error("failed to mark outbox event", "id", row.ID, "error", markErr)
			}
			continue
		}
		if err := repo.MarkPublished(ctx, row.ID, d.now()); err != nil {
			d.logger.Error("failed to mark outbox event", "id", row.ID, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (d *Dispatcher) publishOne(ctx context.Context, row *repository.OutboxEvent) error {
	factory, ok := d.types[row.EventType]
	if !ok {
		return fmt.Errorf("unknown event type %q", row.EventType)
	}
	evt := factory()
	if err := json.Unmarshal(row.Payload, evt); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return d.bus.Emit(ctx, evt)
}
