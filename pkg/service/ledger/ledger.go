// Package ledger owns every change to account balances. A mutation runs under
// the per-account process lock, inside one unit of work holding the account
// row locks, and is retried when a versioned balance update loses a race.
// Notification events are written to the outbox in the same unit of work and
// delivered after commit; a delivery failure is reported as a warning.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/amirasaad/banking/pkg/config"
	"github.com/amirasaad/banking/pkg/domain"
	"github.com/amirasaad/banking/pkg/domain/account"
	"github.com/amirasaad/banking/pkg/domain/events"
	"github.com/amirasaad/banking/pkg/notify"
	"github.com/amirasaad/banking/pkg/repository"
	"github.com/google/uuid"
)

// Deliverer publishes committed outbox rows.
type Deliverer interface {
	Deliver(ctx context.Context, ids ...uuid.UUID) error
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock replaces the time source used for entry timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithDeliverer enables immediate delivery of notifications after commit.
// Without one, events wait in the outbox for the dispatcher.
func WithDeliverer(d Deliverer) Option {
	return func(l *Ledger) { l.deliverer = d }
}

// WithLocker shares a process lock table between ledgers.
func WithLocker(locker *Locker) Option {
	return func(l *Ledger) { l.locker = locker }
}

// Ledger runs balance mutations.
type Ledger struct {
	uow       repository.UnitOfWork
	locker    *Locker
	retry     RetryPolicy
	outbox    *notify.OutboxWriter
	deliverer Deliverer
	now       func() time.Time
	logger    *slog.Logger
}

// New returns a Ledger over uow.
func New(uow repository.UnitOfWork, cfg *config.Ledger, logger *slog.Logger, opts ...Option) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Ledger{
		uow:    uow,
		locker: NewLocker(),
		retry:  RetryPolicyFrom(cfg),
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger.With("component", "ledger"),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.outbox = notify.NewOutboxWriter(l.now)
	return l
}

// UnitOfWork returns the unit of work the ledger writes through.
func (l *Ledger) UnitOfWork() repository.UnitOfWork { return l.uow }

// Now returns the ledger clock reading in UTC.
func (l *Ledger) Now() time.Time { return l.now().UTC() }

// Run locks accountIDs, then calls fn inside a unit of work in which those
// accounts are already row-locked and available through Batch.Account. fn is
// called again from scratch when the commit loses an optimistic concurrency
// race. After commit the events fn queued are delivered; a delivery failure
// is returned as warning wrapping domain.ErrDeliveryFailed.
func (l *Ledger) Run(
	ctx context.Context,
	accountIDs []uuid.UUID,
	fn func(b *Batch) error,
) (warning error, err error) {
	unlock := l.locker.Lock(accountIDs...)
	defer unlock()

	var queued []uuid.UUID
	err = Retry(ctx, l.retry, func() error {
		queued = nil
		return l.uow.Do(ctx, func(tx repository.UnitOfWork) error {
			b, err := l.begin(ctx, tx, accountIDs)
			if err != nil {
				return err
			}
			if err := fn(b); err != nil {
				return err
			}
			if err := b.flush(ctx); err != nil {
				return err
			}
			queued = b.queued
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return l.deliver(ctx, queued), nil
}

func (l *Ledger) deliver(ctx context.Context, ids []uuid.UUID) error {
	if l.deliverer == nil || len(ids) == 0 {
		return nil
	}
	if err := l.deliverer.Deliver(ctx, ids...); err != nil {
		l.logger.Warn("notification delivery failed", "events", len(ids), "error", err)
		return fmt.Errorf("%w: %w", domain.ErrDeliveryFailed, err)
	}
	return nil
}

func (l *Ledger) begin(ctx context.Context, tx repository.UnitOfWork, ids []uuid.UUID) (*Batch, error) {
	accounts, err := tx.AccountRepository()
	if err != nil {
		return nil, err
	}
	txs, err := tx.TransactionRepository()
	if err != nil {
		return nil, err
	}
	outbox, err := tx.OutboxRepository()
	if err != nil {
		return nil, err
	}
	b := &Batch{
		ledger:       l,
		accounts:     accounts,
		transactions: txs,
		outbox:       outbox,
		now:          l.Now(),
		locked:       make(map[uuid.UUID]*lockedAccount, len(ids)),
	}
	for _, id := range SortIDs(ids) {
		acc, err := accounts.GetForUpdate(ctx, id)
		if err != nil {
			return nil, err
		}
		b.locked[id] = &lockedAccount{acc: acc, version: acc.Version}
	}
	return b, nil
}

// Batch is the view of the ledger inside one Run attempt.
type Batch struct {
	ledger       *Ledger
	accounts     repository.AccountRepository
	transactions repository.TransactionRepository
	outbox       repository.OutboxRepository
	now          time.Time
	locked       map[uuid.UUID]*lockedAccount
	queued       []uuid.UUID
}

type lockedAccount struct {
	acc     *account.Account
	version int64
}

// Now is the timestamp shared by every entry of the batch.
func (b *Batch) Now() time.Time { return b.now }

// Account returns a row-locked account of this batch.
func (b *Batch) Account(id uuid.UUID) (*account.Account, error) {
	la, ok := b.locked[id]
	if !ok {
		return nil, fmt.Errorf("account %s is not part of this batch", id)
	}
	return la.acc, nil
}

// Transactions gives read access to the ledger inside the unit of work.
func (b *Batch) Transactions() repository.TransactionRepository { return b.transactions }

// Append inserts a new ledger entry.
func (b *Batch) Append(ctx context.Context, tx *account.Transaction) error {
	return b.transactions.Create(ctx, tx)
}

// Update stores a changed ledger entry.
func (b *Batch) Update(ctx context.Context, tx *account.Transaction) error {
	return b.transactions.Update(ctx, tx)
}

// Notify queues the notification for tx in the outbox.
func (b *Batch) Notify(
	ctx context.Context,
	acc *account.Account,
	tx *account.Transaction,
	opts ...events.TransactionPostedOpt,
) error {
	evt, err := events.NewTransactionPosted(acc, tx, opts...)
	if err != nil {
		return err
	}
	row, err := b.ledger.outbox.Write(ctx, b.outbox, evt, acc.ID)
	if err != nil {
		return err
	}
	b.queued = append(b.queued, row.ID)
	return nil
}

// flush persists the balances of accounts whose version moved, checking each
// against the version read under the row lock.
func (b *Batch) flush(ctx context.Context) error {
	for _, id := range SortIDs(keys(b.locked)) {
		la := b.locked[id]
		if la.acc.Version == la.version {
			continue
		}
		if err := b.accounts.UpdateBalance(ctx, la.acc, la.version); err != nil {
			if errors.Is(err, domain.ErrConcurrentModification) {
				b.ledger.logger.Debug("version conflict, retrying", "account_id", id)
			}
			return err
		}
	}
	return nil
}

func keys(m map[uuid.UUID]*lockedAccount) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
