package ledger

import (
	"context"
	"fmt"

	"github.com/amirasaad/banking/pkg/domain"
	"github.com/amirasaad/banking/pkg/domain/account"
	"github.com/amirasaad/banking/pkg/money"
	"github.com/amirasaad/banking/pkg/repository"
	"github.com/google/uuid"
)

// Store is the read and append facade over the ledger tables.
type Store struct {
	ledger *Ledger
}

// NewStore returns a Store writing through l.
func NewStore(l *Ledger) *Store {
	return &Store{ledger: l}
}

// GetAccount returns the account with the given number.
func (s *Store) GetAccount(ctx context.Context, number string) (*account.Account, error) {
	repo, err := s.ledger.uow.AccountRepository()
	if err != nil {
		return nil, err
	}
	return repo.GetByNumber(ctx, number)
}

// GetAccountByID returns the account with the given id.
func (s *Store) GetAccountByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	repo, err := s.ledger.uow.AccountRepository()
	if err != nil {
		return nil, err
	}
	return repo.Get(ctx, id)
}

// AppendTransaction posts a signed amount to the account and returns the new
// entry. The balance update and the entry insert commit together. No
// notification is queued; callers that notify go through Mutator.
func (s *Store) AppendTransaction(
	ctx context.Context,
	accountID uuid.UUID,
	amount money.Money,
	kind account.Kind,
) (*account.Transaction, error) {
	if !kind.IsDirect() {
		return nil, fmt.Errorf("%w: %s entries cannot be posted directly", domain.ErrValidation, kind)
	}
	var posted *account.Transaction
	_, err := s.ledger.Run(ctx, []uuid.UUID{accountID}, func(b *Batch) error {
		acc, err := b.Account(accountID)
		if err != nil {
			return err
		}
		tx, err := acc.Post(amount, kind, b.Now())
		if err != nil {
			return err
		}
		posted = tx
		return b.Append(ctx, tx)
	})
	if err != nil {
		return nil, err
	}
	return posted, nil
}

// QueryTransactions lists the account's entries ordered by (created_at, seq).
func (s *Store) QueryTransactions(
	ctx context.Context,
	accountID uuid.UUID,
	filter repository.TransactionFilter,
) ([]*account.Transaction, error) {
	repo, err := s.ledger.uow.TransactionRepository()
	if err != nil {
		return nil, err
	}
	return repo.List(ctx, accountID, filter)
}

// SumTransactions adds the posted entries matching filter.
func (s *Store) SumTransactions(
	ctx context.Context,
	acc *account.Account,
	filter repository.TransactionFilter,
) (money.Money, error) {
	repo, err := s.ledger.uow.TransactionRepository()
	if err != nil {
		return money.Money{}, err
	}
	filter.PostedOnly = true
	return repo.Sum(ctx, acc.ID, acc.Currency(), filter)
}
