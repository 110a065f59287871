package ledger

import (
	"context"
	"fmt"

	"github.com/amirasaad/banking/pkg/domain"
	"github.com/amirasaad/banking/pkg/domain/account"
	"github.com/amirasaad/banking/pkg/money"
	"github.com/google/uuid"
)

// Result is a committed ledger entry. Warning is set when the entry committed
// but its notification could not be delivered.
type Result struct {
	Transaction *account.Transaction
	Balance     money.Money
	Warning     error
}

// Mutator applies single-account balance changes.
type Mutator struct {
	ledger *Ledger
	store  *Store
}

// NewMutator returns a Mutator writing through l.
func NewMutator(l *Ledger) *Mutator {
	return &Mutator{ledger: l, store: NewStore(l)}
}

// ApplyDelta posts signedAmount of the given kind to the account and queues
// its notification in the same unit of work. Credits are positive, debits
// negative. A debit that would overdraw fails with domain.ErrInsufficientFunds
// and writes nothing.
func (m *Mutator) ApplyDelta(
	ctx context.Context,
	accountNumber string,
	signedAmount money.Money,
	kind account.Kind,
) (Result, error) {
	if !kind.IsValid() {
		return Result{}, fmt.Errorf("%w: unknown transaction kind %q", domain.ErrValidation, kind)
	}
	if !kind.IsDirect() {
		return Result{}, fmt.Errorf("%w: %s entries cannot be posted directly", domain.ErrValidation, kind)
	}
	if signedAmount.IsZero() {
		return Result{}, fmt.Errorf("%w: amount must be non-zero", domain.ErrInvalidAmount)
	}
	acc, err := m.store.GetAccount(ctx, accountNumber)
	if err != nil {
		return Result{}, err
	}

	var res Result
	warning, err := m.ledger.Run(ctx, []uuid.UUID{acc.ID}, func(b *Batch) error {
		locked, err := b.Account(acc.ID)
		if err != nil {
			return err
		}
		tx, err := locked.Post(signedAmount, kind, b.Now())
		if err != nil {
			return err
		}
		if err := b.Append(ctx, tx); err != nil {
			return err
		}
		res = Result{Transaction: tx, Balance: locked.Balance}
		return b.Notify(ctx, locked, tx)
	})
	if err != nil {
		m.ledger.logger.Debug("ApplyDelta rejected",
			"account", accountNumber, "kind", kind, "amount", signedAmount.String(), "error", err)
		return Result{}, err
	}
	res.Warning = warning
	m.ledger.logger.Info("ApplyDelta committed",
		"account", accountNumber, "kind", kind, "amount", signedAmount.String(),
		"balance", res.Balance.String(), "transaction_id", res.Transaction.ID)
	return res, nil
}

// ApplyKind posts a positive magnitude with the sign its kind implies.
func (m *Mutator) ApplyKind(
	ctx context.Context,
	accountNumber string,
	magnitude money.Money,
	kind account.Kind,
) (Result, error) {
	if !magnitude.IsPositive() {
		return Result{}, fmt.Errorf("%w: amount must be positive", domain.ErrInvalidAmount)
	}
	return m.ApplyDelta(ctx, accountNumber, kind.Signed(magnitude), kind)
}
