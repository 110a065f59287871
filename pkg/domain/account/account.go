package account

import (
	"errors"
	"fmt"
	"time"

	"github.com/amirasaad/banking/pkg/domain"
	"github.com/amirasaad/banking/pkg/money"
	"github.com/google/uuid"
)

var (
	// ErrAccountNotFound is returned when an account cannot be found.
	ErrAccountNotFound = fmt.Errorf("account %w", domain.ErrNotFound)

	// ErrTransactionNotFound is returned when a transaction (or loan) cannot be found.
	ErrTransactionNotFound = fmt.Errorf("transaction %w", domain.ErrNotFound)

	// ErrCannotTransferToSameAccount is returned when a transfer is attempted from an account to itself.
	ErrCannotTransferToSameAccount = errors.New("cannot transfer to same account")
	// ErrNilAccount is returned when a nil account is provided to a transfer or other operation.
	ErrNilAccount = errors.New("nil account")
	// ErrNotOwner is returned when a user attempts to perform an action on an account they do not own.
	ErrNotOwner = fmt.Errorf("not owner: %w", domain.ErrForbidden)
	// ErrCurrencyMismatch is returned when there is a currency mismatch between accounts or transactions.
	ErrCurrencyMismatch = errors.New("currency mismatch")
	// ErrKindSignMismatch is returned when a signed amount disagrees with its kind,
	// for example a positive withdrawal.
	ErrKindSignMismatch = fmt.Errorf("%w: amount sign does not match transaction kind", domain.ErrInvalidAmount)
	// ErrNotALoan is returned when a loan operation targets a non-loan transaction.
	ErrNotALoan = fmt.Errorf("transaction is not a loan: %w", domain.ErrValidation)
)

// Account is the aggregate root for a customer's balance. All balance changes
// go through Post, ApproveLoan or RepayLoan so that every change produces
// exactly one ledger entry.
//
// Invariants:
//   - An account always has an owner (UserID) and a number.
//   - Balance never goes below zero.
//   - Version increases by one per posted entry; the entry records it as Seq.
type Account struct {
	ID        uuid.UUID   `json:"id"`
	Number    string      `json:"number"`
	UserID    uuid.UUID   `json:"user_id"`
	Balance   money.Money `json:"balance"`
	Version   int64       `json:"version"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Builder provides a fluent API for constructing Account instances.
type Builder struct {
	id        uuid.UUID
	number    string
	userID    uuid.UUID
	balance   *money.Money
	currency  money.Code
	version   int64
	createdAt time.Time
	updatedAt time.Time
}

// New creates a new Builder with a fresh ID and the default currency.
func New() *Builder {
	now := time.Now().UTC()
	return &Builder{
		id:        uuid.New(),
		currency:  money.DefaultCurrency,
		createdAt: now,
		updatedAt: now,
	}
}

// WithID sets the ID for the account being built.
func (b *Builder) WithID(id uuid.UUID) *Builder {
	b.id = id
	return b
}

// WithNumber sets the customer-facing account number. Mandatory.
func (b *Builder) WithNumber(number string) *Builder {
	b.number = number
	return b
}

// WithUserID sets the owner. Mandatory.
func (b *Builder) WithUserID(userID uuid.UUID) *Builder {
	b.userID = userID
	return b
}

// WithCurrency sets the currency of a new, empty account.
func (b *Builder) WithCurrency(code money.Code) *Builder {
	b.currency = code
	return b
}

// WithBalance sets the balance. Only for hydrating from storage or test setup.
func (b *Builder) WithBalance(balance money.Money) *Builder {
	b.balance = &balance
	return b
}

// WithVersion sets the version. Only for hydrating from storage.
func (b *Builder) WithVersion(v int64) *Builder {
	b.version = v
	return b
}

// WithCreatedAt sets the creation timestamp.
func (b *Builder) WithCreatedAt(t time.Time) *Builder {
	b.createdAt = t
	return b
}

// WithUpdatedAt sets the last-updated timestamp.
func (b *Builder) WithUpdatedAt(t time.Time) *Builder {
	b.updatedAt = t
	return b
}

// Build validates the invariants and returns the account.
func (b *Builder) Build() (*Account, error) {
	if b.userID == uuid.Nil {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrValidation)
	}
	if b.number == "" {
		return nil, fmt.Errorf("%w: account number is required", domain.ErrValidation)
	}
	if !b.currency.IsValid() {
		return nil, money.ErrInvalidCurrency
	}
	balance := money.Zero(b.currency)
	if b.balance != nil {
		balance = *b.balance
	}
	if balance.IsNegative() {
		return nil, fmt.Errorf("%w: negative opening balance", domain.ErrInvalidAmount)
	}
	return &Account{
		ID:        b.id,
		Number:    b.number,
		UserID:    b.userID,
		Balance:   balance,
		Version:   b.version,
		CreatedAt: b.createdAt,
		UpdatedAt: b.updatedAt,
	}, nil
}

// Currency returns the account currency.
func (a *Account) Currency() money.Code {
	return a.Balance.Currency()
}

// ValidateOwner checks that userID owns the account.
func (a *Account) ValidateOwner(userID uuid.UUID) error {
	if a.UserID != userID {
		return ErrNotOwner
	}
	return nil
}

// ValidateDelta checks that a signed amount can be applied with the given kind
// without breaking an invariant. It does not mutate the account.
func (a *Account) ValidateDelta(amount money.Money, kind Kind) error {
	if !kind.IsValid() {
		return fmt.Errorf("%w: unknown transaction kind %q", domain.ErrValidation, kind)
	}
	if amount.IsZero() {
		return fmt.Errorf("%w: amount must be non-zero", domain.ErrInvalidAmount)
	}
	if !a.Balance.IsSameCurrency(amount) {
		return ErrCurrencyMismatch
	}
	if kind.IsDebit() != amount.IsNegative() {
		return ErrKindSignMismatch
	}
	next, err := a.Balance.Add(amount)
	if err != nil {
		return err
	}
	if next.IsNegative() {
		return domain.ErrInsufficientFunds
	}
	return nil
}

// Post applies a signed amount and returns the ledger entry describing it.
// The account is left untouched when an error is returned.
func (a *Account) Post(amount money.Money, kind Kind, at time.Time) (*Transaction, error) {
	if err := a.ValidateDelta(amount, kind); err != nil {
		return nil, err
	}
	if err := a.apply(amount, at); err != nil {
		return nil, err
	}
	return &Transaction{
		ID:           uuid.New(),
		AccountID:    a.ID,
		UserID:       a.UserID,
		Amount:       amount,
		Kind:         kind,
		BalanceAfter: a.Balance,
		Seq:          a.Version,
		Posted:       true,
		CreatedAt:    at,
		UpdatedAt:    at,
	}, nil
}

// ValidateTransfer checks a transfer of a positive amount from a to dest.
// Checks run in a fixed order: amount, same account, currency, funds.
func (a *Account) ValidateTransfer(dest *Account, amount money.Money) error {
	if a == nil || dest == nil {
		return ErrNilAccount
	}
	if !amount.IsPositive() {
		return fmt.Errorf("%w: transfer amount must be positive", domain.ErrInvalidAmount)
	}
	if a.ID == dest.ID {
		return ErrCannotTransferToSameAccount
	}
	if !a.Balance.IsSameCurrency(amount) || !dest.Balance.IsSameCurrency(amount) {
		return ErrCurrencyMismatch
	}
	short, err := a.Balance.LessThan(amount)
	if err != nil {
		return err
	}
	if short {
		return domain.ErrInsufficientFunds
	}
	return nil
}

// RequestLoan creates an unposted loan entry. The balance is unchanged until
// the loan is approved.
func (a *Account) RequestLoan(amount money.Money, at time.Time) (*Transaction, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: loan amount must be positive", domain.ErrInvalidAmount)
	}
	if !a.Balance.IsSameCurrency(amount) {
		return nil, ErrCurrencyMismatch
	}
	return &Transaction{
		ID:           uuid.New(),
		AccountID:    a.ID,
		UserID:       a.UserID,
		Amount:       amount,
		Kind:         KindLoan,
		BalanceAfter: a.Balance,
		LoanStatus:   LoanStatusRequested,
		CreatedAt:    at,
		UpdatedAt:    at,
	}, nil
}

// ApproveLoan posts a requested loan, crediting amount. It reports false when
// the loan was already approved or paid, in which case nothing changes.
// The entry is re-dated to at, since that is when it enters the ledger.
func (a *Account) ApproveLoan(loan *Transaction, amount money.Money, at time.Time) (bool, error) {
	if loan.Kind != KindLoan {
		return false, ErrNotALoan
	}
	if loan.AccountID != a.ID {
		return false, ErrTransactionNotFound
	}
	if loan.LoanStatus != LoanStatusRequested {
		return false, nil
	}
	if !amount.IsPositive() {
		return false, fmt.Errorf("%w: approved amount must be positive", domain.ErrInvalidAmount)
	}
	if !a.Balance.IsSameCurrency(amount) {
		return false, ErrCurrencyMismatch
	}
	if err := a.apply(amount, at); err != nil {
		return false, err
	}
	loan.Amount = amount
	loan.BalanceAfter = a.Balance
	loan.Seq = a.Version
	loan.Posted = true
	loan.LoanStatus = LoanStatusApproved
	loan.CreatedAt = at
	loan.UpdatedAt = at
	return true, nil
}

// RepayLoan debits the loan amount and returns the repayment entry. The loan
// transitions to paid.
func (a *Account) RepayLoan(loan *Transaction, at time.Time) (*Transaction, error) {
	if loan.Kind != KindLoan {
		return nil, ErrNotALoan
	}
	if loan.AccountID != a.ID {
		return nil, ErrTransactionNotFound
	}
	switch loan.LoanStatus {
	case LoanStatusRequested:
		return nil, domain.ErrLoanNotApproved
	case LoanStatusPaid:
		return nil, domain.ErrLoanAlreadyPaid
	}
	repayment, err := a.Post(loan.Amount.Neg(), KindLoanPayment, at)
	if err != nil {
		return nil, err
	}
	loanID := loan.ID
	repayment.LoanID = &loanID
	loan.LoanStatus = LoanStatusPaid
	loan.UpdatedAt = at
	return repayment, nil
}

func (a *Account) apply(amount money.Money, at time.Time) error {
	next, err := a.Balance.Add(amount)
	if err != nil {
		return err
	}
	a.Balance = next
	a.Version++
	a.UpdatedAt = at
	return nil
}
