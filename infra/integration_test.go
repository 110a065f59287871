//go:build integration

package infra_test

import (
	"context"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/amirasaad/banking/infra"
	infraeventbus "github.com/amirasaad/banking/infra/eventbus"
	infrarepo "github.com/amirasaad/banking/infra/repository"
	"github.com/amirasaad/banking/pkg/app"
	"github.com/amirasaad/banking/pkg/config"
	"github.com/amirasaad/banking/pkg/domain"
	"github.com/amirasaad/banking/pkg/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"
)

// PostgresSuite runs the ledger against a real Postgres with the SQL
// migrations applied, so row locks and numeric columns behave as in
// production.
type PostgresSuite struct {
	suite.Suite
	container *tcpostgres.PostgresContainer
	db        *gorm.DB
	app       *app.App
}

func TestPostgresSuite(t *testing.T) {
	suite.Run(t, new(PostgresSuite))
}

func migrationsDir() string {
	_, filename, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(filename), "../internal/migrations")
}

func (s *PostgresSuite) SetupSuite() {
	ctx := context.Background()
	pg, err := tcpostgres.Run(
		ctx,
		"postgres:15-alpine",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(30*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = pg

	dsn, err := pg.ConnectionString(ctx, "sslmode=disable")
	s.Require().NoError(err)
	s.db, err = infra.NewDBConnection(&config.DB{Url: dsn}, "test")
	s.Require().NoError(err)
	s.Require().NoError(infra.RunMigrations(s.db, migrationsDir(), nil))
	s.Require().NoError(infra.RunMigrations(s.db, migrationsDir(), nil), "migrating twice is a no-op")

	cfg := &config.App{
		Auth:   &config.Auth{Jwt: &config.Jwt{Secret: "secret", Expiry: time.Hour}},
		Ledger: &config.Ledger{MaxRetries: 20, RetryBase: 2 * time.Millisecond, RetryMax: 50 * time.Millisecond},
		Loan:   &config.Loan{Limit: 3},
	}
	s.app = app.New(&app.Deps{
		Uow:      infrarepo.NewUoW(s.db),
		EventBus: infraeventbus.NewWithMemory(nil),
	}, cfg)
}

func (s *PostgresSuite) TearDownSuite() {
	if s.container != nil {
		_ = s.container.Terminate(context.Background())
	}
}

func (s *PostgresSuite) TestConcurrentDepositsAndWithdrawals() {
	ctx := context.Background()
	u := testutils.CreateUser(s.T(), s.app.Deps.Uow)
	acc, err := s.app.AccountService.OpenAccount(ctx, u.ID)
	s.Require().NoError(err)
	_, err = s.app.AccountService.Deposit(ctx, u.ID, acc.Number, testutils.USD("100"))
	s.Require().NoError(err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := s.app.AccountService.Deposit(ctx, u.ID, acc.Number, testutils.USD("1.10"))
			assert.NoError(s.T(), err)
		}()
		go func() {
			defer wg.Done()
			_, err := s.app.AccountService.Withdraw(ctx, u.ID, acc.Number, testutils.USD("0.60"))
			assert.NoError(s.T(), err)
		}()
	}
	wg.Wait()

	rec, err := s.app.ReportService.Reconcile(ctx, acc.Number)
	s.Require().NoError(err)
	s.True(rec.Consistent)
	s.Equal("110.00 USD", rec.Balance.String())
}

func (s *PostgresSuite) TestConcurrentTransfersConserveMoney() {
	ctx := context.Background()
	a := testutils.CreateUser(s.T(), s.app.Deps.Uow)
	b := testutils.CreateUser(s.T(), s.app.Deps.Uow)
	accA, err := s.app.AccountService.OpenAccount(ctx, a.ID)
	s.Require().NoError(err)
	accB, err := s.app.AccountService.OpenAccount(ctx, b.ID)
	s.Require().NoError(err)
	_, err = s.app.AccountService.Deposit(ctx, a.ID, accA.Number, testutils.USD("50"))
	s.Require().NoError(err)
	_, err = s.app.AccountService.Deposit(ctx, b.ID, accB.Number, testutils.USD("50"))
	s.Require().NoError(err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := s.app.TransferService.Transfer(ctx, accA.Number, accB.Number, testutils.USD("3"))
			assert.NoError(s.T(), err)
		}()
		go func() {
			defer wg.Done()
			_, err := s.app.TransferService.Transfer(ctx, accB.Number, accA.Number, testutils.USD("2"))
			assert.NoError(s.T(), err)
		}()
	}
	wg.Wait()

	recA, err := s.app.ReportService.Reconcile(ctx, accA.Number)
	s.Require().NoError(err)
	recB, err := s.app.ReportService.Reconcile(ctx, accB.Number)
	s.Require().NoError(err)
	s.True(recA.Consistent)
	s.True(recB.Consistent)
	s.Equal("40.00 USD", recA.Balance.String())
	s.Equal("60.00 USD", recB.Balance.String())
}

func (s *PostgresSuite) TestDuplicateUsernameIsAlreadyExists() {
	ctx := context.Background()
	testutils.FastPasswords()
	_, err := s.app.UserService.Register(ctx, "dupe_user", "dupe1@example.com", "password123")
	s.Require().NoError(err)
	_, err = s.app.UserService.Register(ctx, "dupe_user", "dupe2@example.com", "password123")
	s.Require().ErrorIs(err, domain.ErrAlreadyExists)
}
