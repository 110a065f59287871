package account

import (
	"fmt"
	"time"

	"github.com/amirasaad/banking/pkg/domain"
	"github.com/amirasaad/banking/pkg/money"
	"github.com/google/uuid"
)

// Kind classifies a ledger entry.
type Kind string

// Transaction kinds.
const (
	KindDeposit     Kind = "deposit"
	KindWithdrawal  Kind = "withdrawal"
	KindLoan        Kind = "loan"
	KindLoanPayment Kind = "loan-payment"
	KindTransferOut Kind = "transfer-out"
	KindTransferIn  Kind = "transfer-in"
)

// Kinds lists every known kind.
var Kinds = []Kind{
	KindDeposit,
	KindWithdrawal,
	KindLoan,
	KindLoanPayment,
	KindTransferOut,
	KindTransferIn,
}

// ParseKind validates a kind received from outside the process.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.IsValid() {
		return "", fmt.Errorf("%w: unknown transaction kind %q", domain.ErrValidation, s)
	}
	return k, nil
}

// IsValid reports whether k is a known kind.
func (k Kind) IsValid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// IsDebit reports whether entries of this kind carry a negative amount.
func (k Kind) IsDebit() bool {
	switch k {
	case KindWithdrawal, KindTransferOut, KindLoanPayment:
		return true
	default:
		return false
	}
}

// IsDirect reports whether an entry of this kind stands alone. Transfer legs
// are written in linked pairs by the transfer coordinator, and loan entries
// only move through the loan lifecycle, so neither may be posted directly.
func (k Kind) IsDirect() bool {
	return k == KindDeposit || k == KindWithdrawal
}

// Signed applies the kind's sign to a magnitude.
func (k Kind) Signed(magnitude money.Money) money.Money {
	if k.IsDebit() {
		return magnitude.Abs().Neg()
	}
	return magnitude.Abs()
}

func (k Kind) String() string {
	return string(k)
}

// LoanStatus tracks a loan through request, approval and repayment.
// Non-loan entries carry LoanStatusNone.
type LoanStatus string

// Loan statuses.
const (
	LoanStatusNone      LoanStatus = ""
	LoanStatusRequested LoanStatus = "requested"
	LoanStatusApproved  LoanStatus = "approved"
	LoanStatusPaid      LoanStatus = "paid"
)

// Transaction is one immutable entry in an account's ledger. The only field
// that changes after creation is LoanStatus (and, on approval, the posting
// fields of a loan).
type Transaction struct {
	ID           uuid.UUID   `json:"id"`
	AccountID    uuid.UUID   `json:"account_id"`
	UserID       uuid.UUID   `json:"user_id"`
	Amount       money.Money `json:"amount"`
	Kind         Kind        `json:"kind"`
	BalanceAfter money.Money `json:"balance_after"`
	LoanStatus   LoanStatus  `json:"loan_status,omitempty"`
	LoanID       *uuid.UUID  `json:"loan_id,omitempty"`
	TransferID   *uuid.UUID  `json:"transfer_id,omitempty"`
	Seq          int64       `json:"seq"`
	Posted       bool        `json:"posted"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"-"`
}

// IsLoan reports whether the entry is a loan.
func (t *Transaction) IsLoan() bool {
	return t.Kind == KindLoan
}

// LoanApproved is true once a loan has been approved, including after repayment.
func (t *Transaction) LoanApproved() bool {
	return t.LoanStatus == LoanStatusApproved || t.LoanStatus == LoanStatusPaid
}
