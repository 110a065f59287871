// Package loan implements the loan lifecycle: request, administrative
// approval and repayment.
package loan

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/amirasaad/banking/pkg/config"
	"github.com/amirasaad/banking/pkg/domain"
	"github.com/amirasaad/banking/pkg/domain/account"
	"github.com/amirasaad/banking/pkg/money"
	"github.com/amirasaad/banking/pkg/repository"
	"github.com/amirasaad/banking/pkg/service/ledger"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// DefaultLimit is the number of outstanding approved loans an account may hold.
const DefaultLimit = 3

// Result is a loan operation outcome. Transaction is the loan row, or the
// repayment row for PayLoan. Changed is false when an approval found the loan
// already approved or paid.
type Result struct {
	Transaction *account.Transaction
	Loan        *account.Transaction
	Changed     bool
	Warning     error
}

// Workflow runs loan operations through the ledger.
type Workflow struct {
	ledger    *ledger.Ledger
	store     *ledger.Store
	limit     int
	approvals singleflight.Group
	logger    *slog.Logger
}

// NewWorkflow returns a Workflow. A nil cfg uses DefaultLimit.
func NewWorkflow(l *ledger.Ledger, cfg *config.Loan, logger *slog.Logger) *Workflow {
	limit := DefaultLimit
	if cfg != nil {
		limit = cfg.Limit
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Workflow{
		ledger: l,
		store:  ledger.NewStore(l),
		limit:  limit,
		logger: logger.With("service", "loan"),
	}
}

// RequestLoan records an unposted loan request. It fails with
// domain.ErrLoanLimitExceeded when the account already holds the maximum
// number of approved, unpaid loans.
func (w *Workflow) RequestLoan(ctx context.Context, accountNumber string, amount money.Money) (Result, error) {
	if !amount.IsPositive() {
		return Result{}, fmt.Errorf("%w: loan amount must be positive", domain.ErrInvalidAmount)
	}
	acc, err := w.store.GetAccount(ctx, accountNumber)
	if err != nil {
		return Result{}, err
	}

	var res Result
	warning, err := w.ledger.Run(ctx, []uuid.UUID{acc.ID}, func(b *ledger.Batch) error {
		locked, err := b.Account(acc.ID)
		if err != nil {
			return err
		}
		approved := account.LoanStatusApproved
		open, err := b.Transactions().Count(ctx, acc.ID, repository.TransactionFilter{
			Kinds:      []account.Kind{account.KindLoan},
			LoanStatus: &approved,
		})
		if err != nil {
			return err
		}
		if open >= int64(w.limit) {
			return fmt.Errorf("%w: %d outstanding loans", domain.ErrLoanLimitExceeded, open)
		}
		loan, err := locked.RequestLoan(amount, b.Now())
		if err != nil {
			return err
		}
		if err := b.Append(ctx, loan); err != nil {
			return err
		}
		res = Result{Transaction: loan, Loan: loan, Changed: true}
		return b.Notify(ctx, locked, loan)
	})
	if err != nil {
		return Result{}, err
	}
	res.Warning = warning
	w.logger.Info("loan requested", "account", accountNumber, "loan_id", res.Loan.ID, "amount", amount.String())
	return res, nil
}

// ApproveLoan posts a requested loan, crediting amount or, when amount is
// nil, the requested amount. Approving an approved or paid loan returns it
// unchanged. Concurrent approvals of one loan share a single execution and the
// status is re-read under the account lock, so a loan is credited once.
func (w *Workflow) ApproveLoan(ctx context.Context, loanID uuid.UUID, amount *money.Money) (Result, error) {
	v, err, _ := w.approvals.Do(loanID.String(), func() (any, error) {
		// shared by every waiter, so one caller going away must not fail the rest
		return w.approve(context.WithoutCancel(ctx), loanID, amount)
	})
	if err != nil {
		return Result{}, err
	}
	return v.(Result), nil
}

func (w *Workflow) approve(ctx context.Context, loanID uuid.UUID, amount *money.Money) (Result, error) {
	loan, err := w.getLoan(ctx, loanID)
	if err != nil {
		return Result{}, err
	}

	var res Result
	warning, err := w.ledger.Run(ctx, []uuid.UUID{loan.AccountID}, func(b *ledger.Batch) error {
		acc, err := b.Account(loan.AccountID)
		if err != nil {
			return err
		}
		current, err := b.Transactions().Get(ctx, loanID)
		if err != nil {
			return err
		}
		credit := current.Amount
		if amount != nil {
			credit = *amount
		}
		changed, err := acc.ApproveLoan(current, credit, b.Now())
		if err != nil {
			return err
		}
		res = Result{Transaction: current, Loan: current, Changed: changed}
		if !changed {
			return nil
		}
		if err := b.Update(ctx, current); err != nil {
			return err
		}
		return b.Notify(ctx, acc, current)
	})
	if err != nil {
		return Result{}, err
	}
	res.Warning = warning
	w.logger.Info("loan approval processed", "loan_id", loanID, "changed", res.Changed,
		"status", res.Loan.LoanStatus)
	return res, nil
}

// PayLoan repays an approved loan in full.
func (w *Workflow) PayLoan(ctx context.Context, loanID uuid.UUID) (Result, error) {
	loan, err := w.getLoan(ctx, loanID)
	if err != nil {
		return Result{}, err
	}

	var res Result
	warning, err := w.ledger.Run(ctx, []uuid.UUID{loan.AccountID}, func(b *ledger.Batch) error {
		acc, err := b.Account(loan.AccountID)
		if err != nil {
			return err
		}
		current, err := b.Transactions().Get(ctx, loanID)
		if err != nil {
			return err
		}
		repayment, err := acc.RepayLoan(current, b.Now())
		if err != nil {
			return err
		}
		if err := b.Append(ctx, repayment); err != nil {
			return err
		}
		if err := b.Update(ctx, current); err != nil {
			return err
		}
		res = Result{Transaction: repayment, Loan: current, Changed: true}
		return b.Notify(ctx, acc, repayment)
	})
	if err != nil {
		return Result{}, err
	}
	res.Warning = warning
	w.logger.Info("loan paid", "loan_id", loanID, "amount", res.Loan.Amount.String())
	return res, nil
}

// PayLoanAs is PayLoan on behalf of userID, who must own the loan's account.
// The loan must be held by the account numbered accountNumber; a loan of any
// other account is reported as not found.
func (w *Workflow) PayLoanAs(ctx context.Context, userID uuid.UUID, accountNumber string, loanID uuid.UUID) (Result, error) {
	loan, err := w.getLoan(ctx, loanID)
	if err != nil {
		return Result{}, err
	}
	if loan.UserID != userID {
		return Result{}, account.ErrNotOwner
	}
	acc, err := w.store.GetAccount(ctx, accountNumber)
	if err != nil {
		return Result{}, err
	}
	if loan.AccountID != acc.ID {
		return Result{}, account.ErrTransactionNotFound
	}
	return w.PayLoan(ctx, loanID)
}

// ListLoans returns the account's loans, oldest first.
func (w *Workflow) ListLoans(ctx context.Context, accountNumber string) ([]*account.Transaction, error) {
	acc, err := w.store.GetAccount(ctx, accountNumber)
	if err != nil {
		return nil, err
	}
	return w.store.QueryTransactions(ctx, acc.ID, repository.TransactionFilter{
		Kinds: []account.Kind{account.KindLoan},
	})
}

func (w *Workflow) getLoan(ctx context.Context, id uuid.UUID) (*account.Transaction, error) {
	repo, err := w.ledger.UnitOfWork().TransactionRepository()
	if err != nil {
		return nil, err
	}
	tx, err := repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !tx.IsLoan() {
		return nil, account.ErrNotALoan
	}
	return tx, nil
}
