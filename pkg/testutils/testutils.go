// Package testutils provides database fixtures shared by package tests.
package testutils

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	infrarepo "github.com/amirasaad/banking/infra/repository"
	"github.com/amirasaad/banking/pkg/domain/account"
	"github.com/amirasaad/banking/pkg/domain/user"
	"github.com/amirasaad/banking/pkg/money"
	"github.com/amirasaad/banking/pkg/repository"
	"github.com/amirasaad/banking/pkg/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DefaultPassword is the password of every user created by CreateUser.
const DefaultPassword = "password123"

// NewTestDB opens a private in-memory SQLite database with the schema
// migrated. A single connection keeps every query on the same database and
// serializes writers the way a row lock would.
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(infrarepo.Models()...))
	return db
}

// NewTestUoW returns a unit of work over a fresh test database.
func NewTestUoW(t testing.TB) (*infrarepo.UoW, *gorm.DB) {
	t.Helper()
	db := NewTestDB(t)
	return infrarepo.NewUoW(db), db
}

var lowCost sync.Once

// FastPasswords lowers the bcrypt cost for the rest of the test binary.
func FastPasswords() {
	lowCost.Do(func() { utils.PasswordCost = bcrypt.MinCost })
}

// CreateUser stores a customer with DefaultPassword.
func CreateUser(t testing.TB, uow repository.UnitOfWork) *user.User {
	t.Helper()
	FastPasswords()
	suffix := uuid.NewString()[:8]
	u, err := user.NewUser("user_"+suffix, "user_"+suffix+"@example.com", DefaultPassword)
	require.NoError(t, err)
	repo, err := uow.UserRepository()
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), u))
	return u
}

// CreateAdmin stores an administrator with DefaultPassword.
func CreateAdmin(t testing.TB, uow repository.UnitOfWork) *user.User {
	t.Helper()
	u := CreateUser(t, uow)
	u.Role = user.RoleAdmin
	repo, err := uow.UserRepository()
	require.NoError(t, err)
	require.NoError(t, repo.Update(context.Background(), u))
	return u
}

var numbers struct {
	sync.Mutex
	next int64
}

// NextAccountNumber returns a unique 10 digit account number.
func NextAccountNumber() string {
	numbers.Lock()
	defer numbers.Unlock()
	numbers.next++
	return fmt.Sprintf("%010d", 1000000000+numbers.next)
}

// CreateAccount stores an empty USD account owned by userID. The account is
// funded through the ledger by the caller when a balance is needed, so the
// ledger always explains the balance.
func CreateAccount(t testing.TB, uow repository.UnitOfWork, userID uuid.UUID) *account.Account {
	t.Helper()
	acc, err := account.New().
		WithUserID(userID).
		WithNumber(NextAccountNumber()).
		WithCurrency(money.USD).
		Build()
	require.NoError(t, err)
	repo, err := uow.AccountRepository()
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), acc))
	return acc
}

// USD parses a USD amount or panics.
func USD(s string) money.Money {
	return money.MustParse(s, money.USD)
}

// Clock is a manually advanced clock for deterministic timestamps.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock starts a clock at t.
func NewClock(t time.Time) *Clock {
	return &Clock{now: t.UTC()}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to t.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t.UTC()
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
