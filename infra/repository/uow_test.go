package repository

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/amirasaad/banking/pkg/domain"
	"github.com/amirasaad/banking/pkg/domain/account"
	"github.com/amirasaad/banking/pkg/money"
	"github.com/amirasaad/banking/pkg/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDb, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDb.Close() })
	dialector := postgres.New(postgres.Config{
		Conn:       mockDb,
		DriverName: "postgres",
	})
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	return db, mock
}

func TestUoW_DoAndGetRepository(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)
	db, mock := newMockDB(t)

	uow := NewUoW(db)

	// Expect transaction begin and commit
	mock.ExpectBegin()
	mock.ExpectCommit()

	err := uow.Do(context.Background(), func(txUow repository.UnitOfWork) error {
		repoAny, err := txUow.GetRepository(reflect.TypeOf((*repository.AccountRepository)(nil)).Elem())
		require.NoError(err)
		_, ok := repoAny.(*accountRepository)
		assert.True(ok)

		repoAny, err = txUow.GetRepository(reflect.TypeOf((*repository.TransactionRepository)(nil)).Elem())
		require.NoError(err)
		_, ok = repoAny.(*transactionRepository)
		assert.True(ok)

		repoAny, err = txUow.GetRepository(reflect.TypeOf((*repository.OutboxRepository)(nil)).Elem())
		require.NoError(err)
		_, ok = repoAny.(*outboxRepository)
		assert.True(ok)

		_, err = txUow.GetRepository(reflect.TypeOf(""))
		assert.Error(err)
		return nil
	})
	assert.NoError(err)
	assert.NoError(mock.ExpectationsWereMet())
}

func TestUoW_TypeSafeMethods(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)
	db, mock := newMockDB(t)

	uow := NewUoW(db)

	// Outside a transaction the repositories use the pool directly.
	accountRepo, err := uow.AccountRepository()
	require.NoError(err)
	assert.NotNil(accountRepo)

	transactionRepo, err := uow.TransactionRepository()
	require.NoError(err)
	assert.NotNil(transactionRepo)

	userRepo, err := uow.UserRepository()
	require.NoError(err)
	assert.NotNil(userRepo)

	outboxRepo, err := uow.OutboxRepository()
	require.NoError(err)
	assert.NotNil(outboxRepo)

	mock.ExpectBegin()
	mock.ExpectCommit()

	err = uow.Do(context.Background(), func(txUow repository.UnitOfWork) error {
		accountRepo, err := txUow.AccountRepository()
		require.NoError(err)
		assert.NotNil(accountRepo)
		return nil
	})
	assert.NoError(err)
	assert.NoError(mock.ExpectationsWereMet())
}

func TestUoW_RollsBackOnError(t *testing.T) {
	db, mock := newMockDB(t)
	uow := NewUoW(db)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := uow.Do(context.Background(), func(repository.UnitOfWork) error {
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepository_GetForUpdateLocksRow(t *testing.T) {
	db, mock := newMockDB(t)
	uow := NewUoW(db)
	id := uuid.New()
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "accounts" WHERE id = \$1.*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "number", "user_id", "balance", "currency", "version", "created_at", "updated_at"},
		).AddRow(id.String(), "1234567890", uuid.NewString(), "100.50", "USD", 3, now, now))
	mock.ExpectCommit()

	err := uow.Do(context.Background(), func(tx repository.UnitOfWork) error {
		repo, err := tx.AccountRepository()
		require.NoError(t, err)
		acc, err := repo.GetForUpdate(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, "100.50 USD", acc.Balance.String())
		assert.Equal(t, int64(3), acc.Version)
		return nil
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepository_UpdateBalanceVersionConflict(t *testing.T) {
	db, mock := newMockDB(t)
	uow := NewUoW(db)

	acc, err := account.New().
		WithUserID(uuid.New()).
		WithNumber("1234567890").
		WithBalance(money.MustParse("10", money.USD)).
		WithVersion(5).
		Build()
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "accounts" SET .* WHERE id = \$\d+ AND version = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err = uow.Do(context.Background(), func(tx repository.UnitOfWork) error {
		repo, err := tx.AccountRepository()
		require.NoError(t, err)
		return repo.UpdateBalance(context.Background(), acc, 4)
	})
	require.ErrorIs(t, err, domain.ErrConcurrentModification)
	assert.NoError(t, mock.ExpectationsWereMet())
}
