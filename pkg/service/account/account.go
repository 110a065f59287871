// Package account provides the customer-facing account operations: opening
// accounts, looking them up with an ownership check, and the deposit and
// withdraw wrappers over the ledger.
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/amirasaad/banking/pkg/domain"
	"github.com/amirasaad/banking/pkg/domain/account"
	"github.com/amirasaad/banking/pkg/money"
	"github.com/amirasaad/banking/pkg/repository"
	"github.com/amirasaad/banking/pkg/service/ledger"
	"github.com/amirasaad/banking/pkg/utils"
	"github.com/google/uuid"
)

// NumberLength is the number of digits in an account number.
const NumberLength = 10

const maxNumberAttempts = 5

// Service provides business logic for account operations.
type Service struct {
	uow     repository.UnitOfWork
	ledger  *ledger.Ledger
	mutator *ledger.Mutator
	logger  *slog.Logger
}

// NewService creates a new Service writing balances through l.
func NewService(l *ledger.Ledger, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		uow:     l.UnitOfWork(),
		ledger:  l,
		mutator: ledger.NewMutator(l),
		logger:  logger.With("service", "account"),
	}
}

// OpenAccount creates an empty account with a fresh unique number for userID.
func (s *Service) OpenAccount(ctx context.Context, userID uuid.UUID) (*account.Account, error) {
	log := s.logger.With("userID", userID)
	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		number, err := utils.RandomDigits(NumberLength)
		if err != nil {
			return nil, err
		}
		acc, err := account.New().
			WithUserID(userID).
			WithNumber(number).
			WithCurrency(money.DefaultCurrency).
			WithCreatedAt(s.ledger.Now()).
			Build()
		if err != nil {
			return nil, err
		}
		err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
			users, err := uow.UserRepository()
			if err != nil {
				return err
			}
			if _, err := users.Get(ctx, userID); err != nil {
				return err
			}
			accounts, err := uow.AccountRepository()
			if err != nil {
				return err
			}
			return accounts.Create(ctx, acc)
		})
		if errors.Is(err, domain.ErrAlreadyExists) {
			log.Debug("Account number taken, retrying", "attempt", attempt)
			continue
		}
		if err != nil {
			log.Error("OpenAccount failed", "error", err)
			return nil, err
		}
		log.Info("Account opened", "number", acc.Number, "accountID", acc.ID)
		return acc, nil
	}
	return nil, fmt.Errorf("%w: could not allocate an account number", domain.ErrAlreadyExists)
}

// GetAccount returns the account if userID owns it.
func (s *Service) GetAccount(ctx context.Context, userID uuid.UUID, number string) (*account.Account, error) {
	repo, err := s.uow.AccountRepository()
	if err != nil {
		return nil, err
	}
	acc, err := repo.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if err := acc.ValidateOwner(userID); err != nil {
		return nil, err
	}
	return acc, nil
}

// ListAccounts returns the accounts owned by userID.
func (s *Service) ListAccounts(ctx context.Context, userID uuid.UUID) ([]*account.Account, error) {
	repo, err := s.uow.AccountRepository()
	if err != nil {
		return nil, err
	}
	return repo.ListByUser(ctx, userID)
}

// Deposit credits a positive amount to an account owned by userID.
func (s *Service) Deposit(
	ctx context.Context,
	userID uuid.UUID,
	number string,
	amount money.Money,
) (ledger.Result, error) {
	return s.post(ctx, userID, number, amount, account.KindDeposit)
}

// Withdraw debits a positive amount from an account owned by userID.
func (s *Service) Withdraw(
	ctx context.Context,
	userID uuid.UUID,
	number string,
	amount money.Money,
) (ledger.Result, error) {
	return s.post(ctx, userID, number, amount, account.KindWithdrawal)
}

func (s *Service) post(
	ctx context.Context,
	userID uuid.UUID,
	number string,
	amount money.Money,
	kind account.Kind,
) (ledger.Result, error) {
	if !amount.IsPositive() {
		return ledger.Result{}, fmt.Errorf("%w: amount must be positive", domain.ErrInvalidAmount)
	}
	if _, err := s.GetAccount(ctx, userID, number); err != nil {
		return ledger.Result{}, err
	}
	return s.mutator.ApplyKind(ctx, number, amount, kind)
}
