package repository

import (
	"context"
	"time"

	"github.com/amirasaad/banking/pkg/domain/account"
	"github.com/amirasaad/banking/pkg/domain/user"
	"github.com/amirasaad/banking/pkg/money"
	"github.com/google/uuid"
)

// AccountRepository defines the interface for account data access operations.
type AccountRepository interface {
	Create(ctx context.Context, account *account.Account) error
	Get(ctx context.Context, id uuid.UUID) (*account.Account, error)
	GetByNumber(ctx context.Context, number string) (*account.Account, error)
	// GetForUpdate reads the account and holds a row lock until the
	// surrounding unit of work ends.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*account.Account, error)
	// UpdateBalance persists Balance and Version only if the stored version
	// still equals expectedVersion. A lost race returns
	// domain.ErrConcurrentModification.
	UpdateBalance(ctx context.Context, account *account.Account, expectedVersion int64) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*account.Account, error)
}

// TransactionFilter narrows a ledger query. From is inclusive and To is
// exclusive; nil bounds are open.
type TransactionFilter struct {
	Kinds      []account.Kind
	From       *time.Time
	To         *time.Time
	LoanStatus *account.LoanStatus
	PostedOnly bool
}

// TransactionRepository defines the interface for transaction data access operations.
type TransactionRepository interface {
	Create(ctx context.Context, tx *account.Transaction) error
	Get(ctx context.Context, id uuid.UUID) (*account.Transaction, error)
	// Update stores the mutable parts of an entry: loan status and, for a
	// loan being approved, its posting fields.
	Update(ctx context.Context, tx *account.Transaction) error
	// List returns matching entries ordered by (created_at, seq).
	List(ctx context.Context, accountID uuid.UUID, filter TransactionFilter) ([]*account.Transaction, error)
	// Sum adds the amounts of matching entries in the given currency.
	Sum(ctx context.Context, accountID uuid.UUID, currency money.Code, filter TransactionFilter) (money.Money, error)
	Count(ctx context.Context, accountID uuid.UUID, filter TransactionFilter) (int64, error)
}

// UserRepository defines the interface for user data access operations.
type UserRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*user.User, error)
	GetByUsername(ctx context.Context, username string) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	Create(ctx context.Context, user *user.User) error
	Update(ctx context.Context, user *user.User) error
}

// OutboxRepository stores notification events written alongside ledger
// mutations until they are published.
type OutboxRepository interface {
	Create(ctx context.Context, event *OutboxEvent) error
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*OutboxEvent, error)
	// ListPending returns PENDING and FAILED events with fewer than
	// maxAttempts attempts, oldest first.
	ListPending(ctx context.Context, maxAttempts, limit int) ([]*OutboxEvent, error)
	MarkPublished(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
}
