package repository

import (
	"context"
	"errors"

	"github.com/amirasaad/banking/pkg/domain"
	"github.com/amirasaad/banking/pkg/domain/account"
	"github.com/amirasaad/banking/pkg/money"
	"github.com/amirasaad/banking/pkg/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates an account repository bound to db, which may
// be a transaction session.
func NewAccountRepository(db *gorm.DB) repository.AccountRepository {
	return &accountRepository{db: db}
}

// Create implements repository.AccountRepository.
func (r *accountRepository) Create(ctx context.Context, a *account.Account) error {
	m := mapAccountToModel(a)
	return WrapError(func() error {
		return r.db.WithContext(ctx).Create(&m).Error
	})
}

// Get implements repository.AccountRepository.
func (r *accountRepository) Get(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	var m Account
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, notFound(err, account.ErrAccountNotFound)
	}
	return mapModelToAccount(&m)
}

// GetByNumber implements repository.AccountRepository.
func (r *accountRepository) GetByNumber(ctx context.Context, number string) (*account.Account, error) {
	var m Account
	if err := r.db.WithContext(ctx).First(&m, "number = ?", number).Error; err != nil {
		return nil, notFound(err, account.ErrAccountNotFound)
	}
	return mapModelToAccount(&m)
}

// GetForUpdate implements repository.AccountRepository. On Postgres this is
// SELECT ... FOR UPDATE; SQLite has no row locks and the clause is dropped.
func (r *accountRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	var m Account
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&m, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err, account.ErrAccountNotFound)
	}
	return mapModelToAccount(&m)
}

// UpdateBalance implements repository.AccountRepository.
func (r *accountRepository) UpdateBalance(ctx context.Context, a *account.Account, expectedVersion int64) error {
	res := r.db.WithContext(ctx).
		Model(&Account{}).
		Where("id = ? AND version = ?", a.ID, expectedVersion).
		Updates(map[string]any{
			"balance":    a.Balance.Amount(),
			"version":    a.Version,
			"updated_at": a.UpdatedAt,
		})
	if res.Error != nil {
		return MapGormErrorToDomain(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrConcurrentModification
	}
	return nil
}

// ListByUser implements repository.AccountRepository.
func (r *accountRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*account.Account, error) {
	var rows []Account
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at").
		Find(&rows).Error
	if err != nil {
		return nil, MapGormErrorToDomain(err)
	}
	result := make([]*account.Account, 0, len(rows))
	for i := range rows {
		a, err := mapModelToAccount(&rows[i])
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, nil
}

func mapAccountToModel(a *account.Account) Account {
	return Account{
		ID:        a.ID,
		Number:    a.Number,
		UserID:    a.UserID,
		Balance:   a.Balance.Amount(),
		Currency:  a.Currency().String(),
		Version:   a.Version,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func mapModelToAccount(m *Account) (*account.Account, error) {
	a, err := account.New().
		WithID(m.ID).
		WithNumber(m.Number).
		WithUserID(m.UserID).
		WithCurrency(money.Code(m.Currency)).
		WithBalance(money.FromStorage(m.Balance, m.Currency)).
		WithVersion(m.Version).
		WithCreatedAt(m.CreatedAt.UTC()).
		WithUpdatedAt(m.UpdatedAt.UTC()).
		Build()
	if err != nil {
		return nil, errors.Join(errors.New("corrupt account row"), err)
	}
	return a, nil
}
