// Package transfer moves money between two accounts atomically.
package transfer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/amirasaad/banking/pkg/domain"
	"github.com/amirasaad/banking/pkg/domain/account"
	"github.com/amirasaad/banking/pkg/money"
	"github.com/amirasaad/banking/pkg/service/ledger"
	"github.com/google/uuid"
)

// Result holds both legs of a committed transfer. Warning joins the delivery
// failures of the two notifications.
type Result struct {
	Out     *account.Transaction
	In      *account.Transaction
	Balance money.Money
	Warning error
}

// Coordinator performs transfers through the ledger.
type Coordinator struct {
	ledger *ledger.Ledger
	store  *ledger.Store
	logger *slog.Logger
}

// NewCoordinator returns a Coordinator writing through l.
func NewCoordinator(l *ledger.Ledger, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{ledger: l, store: ledger.NewStore(l), logger: logger.With("service", "transfer")}
}

// Transfer moves amount from one account to another. Checks run in order:
// positive amount, destination exists, distinct accounts, same currency,
// sufficient funds. Both legs and both notifications commit together or not
// at all.
func (c *Coordinator) Transfer(ctx context.Context, fromNumber, toNumber string, amount money.Money) (Result, error) {
	return c.transfer(ctx, uuid.Nil, fromNumber, toNumber, amount)
}

// TransferAs is Transfer on behalf of userID, who must own the source account.
func (c *Coordinator) TransferAs(
	ctx context.Context,
	userID uuid.UUID,
	fromNumber, toNumber string,
	amount money.Money,
) (Result, error) {
	return c.transfer(ctx, userID, fromNumber, toNumber, amount)
}

func (c *Coordinator) transfer(
	ctx context.Context,
	userID uuid.UUID,
	fromNumber, toNumber string,
	amount money.Money,
) (Result, error) {
	logger := c.logger.With("from", fromNumber, "to", toNumber, "amount", amount.String())
	if !amount.IsPositive() {
		return Result{}, fmt.Errorf("%w: transfer amount must be positive", domain.ErrInvalidAmount)
	}
	dest, err := c.store.GetAccount(ctx, toNumber)
	if err != nil {
		return Result{}, err
	}
	src, err := c.store.GetAccount(ctx, fromNumber)
	if err != nil {
		return Result{}, err
	}
	if userID != uuid.Nil {
		if err := src.ValidateOwner(userID); err != nil {
			return Result{}, err
		}
	}
	if src.ID == dest.ID {
		return Result{}, account.ErrCannotTransferToSameAccount
	}

	var res Result
	warning, err := c.ledger.Run(ctx, []uuid.UUID{src.ID, dest.ID}, func(b *ledger.Batch) error {
		from, err := b.Account(src.ID)
		if err != nil {
			return err
		}
		to, err := b.Account(dest.ID)
		if err != nil {
			return err
		}
		if err := from.ValidateTransfer(to, amount); err != nil {
			return err
		}

		transferID := uuid.New()
		out, err := from.Post(amount.Neg(), account.KindTransferOut, b.Now())
		if err != nil {
			return err
		}
		in, err := to.Post(amount, account.KindTransferIn, b.Now())
		if err != nil {
			return err
		}
		out.TransferID, in.TransferID = &transferID, &transferID

		for _, tx := range []*account.Transaction{out, in} {
			if err := b.Append(ctx, tx); err != nil {
				return err
			}
		}
		if err := b.Notify(ctx, from, out); err != nil {
			return err
		}
		if err := b.Notify(ctx, to, in); err != nil {
			return err
		}
		res = Result{Out: out, In: in, Balance: from.Balance}
		return nil
	})
	if err != nil {
		logger.Debug("transfer rejected", "error", err)
		return Result{}, err
	}
	res.Warning = warning
	logger.Info("transfer committed", "transfer_id", *res.Out.TransferID)
	return res, nil
}
