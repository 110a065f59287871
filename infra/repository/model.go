package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// User represents a user record in the database.
type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Username  string    `gorm:"uniqueIndex;not null;size:50"`
	Email     string    `gorm:"uniqueIndex;not null;size:255"`
	Password  string    `gorm:"not null"`
	Role      string    `gorm:"size:20;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Account represents an account record in the database. Version is the
// optimistic-concurrency column; every balance write checks and bumps it.
type Account struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Number    string          `gorm:"uniqueIndex;size:10;not null"`
	UserID    uuid.UUID       `gorm:"type:uuid;index;not null"`
	Balance   decimal.Decimal `gorm:"type:numeric(20,3);not null"`
	Currency  string          `gorm:"type:varchar(3);not null"`
	Version   int64           `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Transaction represents one persisted ledger entry.
type Transaction struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey"`
	AccountID    uuid.UUID       `gorm:"type:uuid;not null;index:idx_transactions_account_created,priority:1"`
	UserID       uuid.UUID       `gorm:"type:uuid;not null"`
	Amount       decimal.Decimal `gorm:"type:numeric(20,3);not null"`
	Currency     string          `gorm:"type:varchar(3);not null"`
	Kind         string          `gorm:"size:20;not null;index"`
	BalanceAfter decimal.Decimal `gorm:"type:numeric(20,3);not null"`
	LoanStatus   string          `gorm:"size:20;not null"`
	LoanID       *uuid.UUID      `gorm:"type:uuid;index"`
	TransferID   *uuid.UUID      `gorm:"type:uuid;index"`
	Seq          int64           `gorm:"not null"`
	Posted       bool            `gorm:"not null"`
	CreatedAt    time.Time       `gorm:"not null;index:idx_transactions_account_created,priority:2"`
	UpdatedAt    time.Time
}

// OutboxEvent represents a pending notification written in the same
// database transaction as the ledger change it describes.
type OutboxEvent struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	EventType   string    `gorm:"size:64;not null"`
	AggregateID uuid.UUID `gorm:"type:uuid;not null;index"`
	Payload     []byte    `gorm:"not null"`
	Status      string    `gorm:"size:16;not null;index"`
	Attempts    int       `gorm:"not null"`
	LastError   string
	PublishedAt *time.Time
	CreatedAt   time.Time `gorm:"index"`
	UpdatedAt   time.Time
}

// TableName pins the outbox table name.
func (OutboxEvent) TableName() string {
	return "outbox_events"
}

// Models lists every persisted model, in dependency order, for AutoMigrate.
func Models() []any {
	return []any{&User{}, &Account{}, &Transaction{}, &OutboxEvent{}}
}
