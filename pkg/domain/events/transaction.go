package events

import (
	"errors"
	"fmt"
	"time"

	"github.com/amirasaad/banking/pkg/domain/account"
	"github.com/amirasaad/banking/pkg/money"
	"github.com/google/uuid"
)

// TransactionPosted is emitted once per customer-visible ledger change. The
// same struct carries every notification type; EventType tells them apart.
type TransactionPosted struct {
	FlowEvent
	EventType     EventType   `json:"event_type"`
	TransactionID uuid.UUID   `json:"transaction_id"`
	AccountNumber string      `json:"account_number"`
	Amount        money.Money `json:"amount"`
	Balance       money.Money `json:"balance"`
}

// Type implements Event.
func (e TransactionPosted) Type() string { return e.EventType.String() }

// Validate checks the fields a notification handler relies on.
func (e TransactionPosted) Validate() error {
	if e.EventType == "" {
		return errors.New("event type is required")
	}
	if e.UserID == uuid.Nil || e.AccountID == uuid.Nil {
		return errors.New("user and account are required")
	}
	if e.Amount.IsNegative() {
		return errors.New("amount must not be negative")
	}
	return nil
}

// TypeFor returns the event type describing tx. Loans map by status so that
// request, approval and repayment notify differently.
func TypeFor(tx *account.Transaction) (EventType, error) {
	switch tx.Kind {
	case account.KindDeposit:
		return EventTypeDepositPosted, nil
	case account.KindWithdrawal:
		return EventTypeWithdrawalPosted, nil
	case account.KindTransferOut:
		return EventTypeTransferSent, nil
	case account.KindTransferIn:
		return EventTypeTransferReceived, nil
	case account.KindLoanPayment:
		return EventTypeLoanPaid, nil
	case account.KindLoan:
		if tx.LoanStatus == account.LoanStatusRequested {
			return EventTypeLoanRequested, nil
		}
		return EventTypeLoanApproved, nil
	}
	return "", fmt.Errorf("no event for transaction kind %q", tx.Kind)
}

// TransactionPostedOpt configures a TransactionPosted.
type TransactionPostedOpt func(*TransactionPosted)

// WithCorrelationID ties several events to one request, such as both legs of a transfer.
func WithCorrelationID(id uuid.UUID) TransactionPostedOpt {
	return func(e *TransactionPosted) { e.CorrelationID = id }
}

// WithTimestamp overrides the event timestamp.
func WithTimestamp(ts time.Time) TransactionPostedOpt {
	return func(e *TransactionPosted) { e.Timestamp = ts }
}

// WithEventType overrides the type derived from the transaction.
func WithEventType(et EventType) TransactionPostedOpt {
	return func(e *TransactionPosted) { e.EventType = et }
}

// NewTransactionPosted builds the event for a ledger entry of acc.
func NewTransactionPosted(
	acc *account.Account,
	tx *account.Transaction,
	opts ...TransactionPostedOpt,
) (*TransactionPosted, error) {
	et, err := TypeFor(tx)
	if err != nil {
		return nil, err
	}
	event := &TransactionPosted{
		FlowEvent: FlowEvent{
			ID:            uuid.New(),
			FlowType:      string(tx.Kind),
			UserID:        acc.UserID,
			AccountID:     acc.ID,
			CorrelationID: tx.ID,
			Timestamp:     tx.CreatedAt,
		},
		EventType:     et,
		TransactionID: tx.ID,
		AccountNumber: acc.Number,
		Amount:        tx.Amount.Abs(),
		Balance:       acc.Balance,
	}
	if tx.TransferID != nil {
		event.CorrelationID = *tx.TransferID
	}
	for _, opt := range opts {
		opt(event)
	}
	return event, nil
}
