package repository

import (
	"context"

	"github.com/amirasaad/banking/pkg/domain/account"
	"github.com/amirasaad/banking/pkg/money"
	"github.com/amirasaad/banking/pkg/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type transactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository creates a ledger entry repository bound to db.
func NewTransactionRepository(db *gorm.DB) repository.TransactionRepository {
	return &transactionRepository{db: db}
}

// Create implements repository.TransactionRepository.
func (r *transactionRepository) Create(ctx context.Context, tx *account.Transaction) error {
	m := mapTransactionToModel(tx)
	return WrapError(func() error {
		return r.db.WithContext(ctx).Create(&m).Error
	})
}

// Get implements repository.TransactionRepository.
func (r *transactionRepository) Get(ctx context.Context, id uuid.UUID) (*account.Transaction, error) {
	var m Transaction
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, notFound(err, account.ErrTransactionNotFound)
	}
	return mapModelToTransaction(&m), nil
}

// Update implements repository.TransactionRepository. Only the fields that
// change on loan approval and repayment are written; approval re-dates the row.
func (r *transactionRepository) Update(ctx context.Context, tx *account.Transaction) error {
	res := r.db.WithContext(ctx).
		Model(&Transaction{}).
		Where("id = ?", tx.ID).
		Updates(map[string]any{
			"amount":        tx.Amount.Amount(),
			"balance_after": tx.BalanceAfter.Amount(),
			"loan_status":   string(tx.LoanStatus),
			"seq":           tx.Seq,
			"posted":        tx.Posted,
			"created_at":    tx.CreatedAt,
			"updated_at":    tx.UpdatedAt,
		})
	if res.Error != nil {
		return MapGormErrorToDomain(res.Error)
	}
	if res.RowsAffected == 0 {
		return account.ErrTransactionNotFound
	}
	return nil
}

// List implements repository.TransactionRepository.
func (r *transactionRepository) List(
	ctx context.Context,
	accountID uuid.UUID,
	filter repository.TransactionFilter,
) ([]*account.Transaction, error) {
	var rows []Transaction
	err := r.scoped(ctx, accountID, filter).
		Order("created_at ASC, seq ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, MapGormErrorToDomain(err)
	}
	result := make([]*account.Transaction, 0, len(rows))
	for i := range rows {
		result = append(result, mapModelToTransaction(&rows[i]))
	}
	return result, nil
}

// Sum implements repository.TransactionRepository.
func (r *transactionRepository) Sum(
	ctx context.Context,
	accountID uuid.UUID,
	currency money.Code,
	filter repository.TransactionFilter,
) (money.Money, error) {
	var total decimal.NullDecimal
	err := r.scoped(ctx, accountID, filter).
		Select("SUM(amount)").
		Row().
		Scan(&total)
	if err != nil {
		return money.Money{}, MapGormErrorToDomain(err)
	}
	if !total.Valid {
		return money.Zero(currency), nil
	}
	return money.FromStorage(total.Decimal, currency.String()), nil
}

// Count implements repository.TransactionRepository.
func (r *transactionRepository) Count(
	ctx context.Context,
	accountID uuid.UUID,
	filter repository.TransactionFilter,
) (int64, error) {
	var n int64
	if err := r.scoped(ctx, accountID, filter).Count(&n).Error; err != nil {
		return 0, MapGormErrorToDomain(err)
	}
	return n, nil
}

func (r *transactionRepository) scoped(
	ctx context.Context,
	accountID uuid.UUID,
	filter repository.TransactionFilter,
) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&Transaction{}).Where("account_id = ?", accountID)
	if len(filter.Kinds) > 0 {
		kinds := make([]string, 0, len(filter.Kinds))
		for _, k := range filter.Kinds {
			kinds = append(kinds, string(k))
		}
		q = q.Where("kind IN ?", kinds)
	}
	if filter.From != nil {
		q = q.Where("created_at >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		q = q.Where("created_at < ?", filter.To.UTC())
	}
	if filter.LoanStatus != nil {
		q = q.Where("loan_status = ?", string(*filter.LoanStatus))
	}
	if filter.PostedOnly {
		q = q.Where("posted = ?", true)
	}
	return q
}

func mapTransactionToModel(tx *account.Transaction) Transaction {
	return Transaction{
		ID:           tx.ID,
		AccountID:    tx.AccountID,
		UserID:       tx.UserID,
		Amount:       tx.Amount.Amount(),
		Currency:     tx.Amount.Currency().String(),
		Kind:         string(tx.Kind),
		BalanceAfter: tx.BalanceAfter.Amount(),
		LoanStatus:   string(tx.LoanStatus),
		LoanID:       tx.LoanID,
		TransferID:   tx.TransferID,
		Seq:          tx.Seq,
		Posted:       tx.Posted,
		CreatedAt:    tx.CreatedAt.UTC(),
		UpdatedAt:    tx.UpdatedAt.UTC(),
	}
}

func mapModelToTransaction(m *Transaction) *account.Transaction {
	return &account.Transaction{
		ID:           m.ID,
		AccountID:    m.AccountID,
		UserID:       m.UserID,
		Amount:       money.FromStorage(m.Amount, m.Currency),
		Kind:         account.Kind(m.Kind),
		BalanceAfter: money.FromStorage(m.BalanceAfter, m.Currency),
		LoanStatus:   account.LoanStatus(m.LoanStatus),
		LoanID:       m.LoanID,
		TransferID:   m.TransferID,
		Seq:          m.Seq,
		Posted:       m.Posted,
		CreatedAt:    m.CreatedAt.UTC(),
		UpdatedAt:    m.UpdatedAt.UTC(),
	}
}
