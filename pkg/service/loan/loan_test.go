package loan_test

import (
	"context"
	"sync"
	"testing"

	"github.com/amirasaad/banking/pkg/config"
	"github.com/amirasaad/banking/pkg/domain"
	"github.com/amirasaad/banking/pkg/domain/account"
	"github.com/amirasaad/banking/pkg/repository"
	"github.com/amirasaad/banking/pkg/service/ledger"
	"github.com/amirasaad/banking/pkg/service/loan"
	"github.com/amirasaad/banking/pkg/testutils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	ctx   context.Context
	l     *ledger.Ledger
	store *ledger.Store
	w     *loan.Workflow
	acc   *account.Account
	uow   repository.UnitOfWork
}

func newFixture(t *testing.T, limit int) *fixture {
	t.Helper()
	uow, _ := testutils.NewTestUoW(t)
	l := ledger.New(uow, nil, nil)
	u := testutils.CreateUser(t, uow)
	return &fixture{
		ctx:   context.Background(),
		l:     l,
		store: ledger.NewStore(l),
		w:     loan.NewWorkflow(l, &config.Loan{Limit: limit}, nil),
		acc:   testutils.CreateAccount(t, uow, u.ID),
		uow:   uow,
	}
}

func (f *fixture) balance(t *testing.T) string {
	t.Helper()
	acc, err := f.store.GetAccount(f.ctx, f.acc.Number)
	require.NoError(t, err)
	return acc.Balance.String()
}

func TestLoanLifecycle(t *testing.T) {
	f := newFixture(t, loan.DefaultLimit)

	req, err := f.w.RequestLoan(f.ctx, f.acc.Number, testutils.USD("500"))
	require.NoError(t, err)
	assert.Equal(t, account.LoanStatusRequested, req.Loan.LoanStatus)
	assert.False(t, req.Loan.Posted)
	assert.Equal(t, "0.00 USD", f.balance(t), "a request does not move the balance")

	_, err = f.w.PayLoan(f.ctx, req.Loan.ID)
	require.ErrorIs(t, err, domain.ErrLoanNotApproved)

	approved, err := f.w.ApproveLoan(f.ctx, req.Loan.ID, nil)
	require.NoError(t, err)
	assert.True(t, approved.Changed)
	assert.Equal(t, account.LoanStatusApproved, approved.Loan.LoanStatus)
	assert.True(t, approved.Loan.LoanApproved())
	assert.Equal(t, "500.00 USD", approved.Loan.BalanceAfter.String())
	assert.Equal(t, "500.00 USD", f.balance(t))

	again, err := f.w.ApproveLoan(f.ctx, req.Loan.ID, nil)
	require.NoError(t, err)
	assert.False(t, again.Changed, "approving twice is a no-op")
	assert.Equal(t, "500.00 USD", f.balance(t))

	paid, err := f.w.PayLoan(f.ctx, req.Loan.ID)
	require.NoError(t, err)
	assert.Equal(t, account.KindLoanPayment, paid.Transaction.Kind)
	assert.Equal(t, "-500.00 USD", paid.Transaction.Amount.String())
	require.NotNil(t, paid.Transaction.LoanID)
	assert.Equal(t, req.Loan.ID, *paid.Transaction.LoanID)
	assert.Equal(t, account.LoanStatusPaid, paid.Loan.LoanStatus)
	assert.True(t, paid.Loan.LoanApproved())
	assert.Equal(t, "0.00 USD", f.balance(t))

	_, err = f.w.PayLoan(f.ctx, req.Loan.ID)
	require.ErrorIs(t, err, domain.ErrLoanAlreadyPaid)

	_, err = f.w.ApproveLoan(f.ctx, req.Loan.ID, nil)
	require.NoError(t, err, "approving a paid loan is a no-op")
	assert.Equal(t, "0.00 USD", f.balance(t))

	loans, err := f.w.ListLoans(f.ctx, f.acc.Number)
	require.NoError(t, err)
	require.Len(t, loans, 1)
	assert.Equal(t, account.LoanStatusPaid, loans[0].LoanStatus)

	outbox, err := f.uow.OutboxRepository()
	require.NoError(t, err)
	pending, err := outbox.ListPending(f.ctx, 5, 10)
	require.NoError(t, err)
	var types []string
	for _, p := range pending {
		types = append(types, p.EventType)
	}
	assert.ElementsMatch(t, []string{"Loan.Requested", "Loan.Approved", "Loan.Paid"}, types)
}

func TestApproveLoan_CustomAmount(t *testing.T) {
	f := newFixture(t, loan.DefaultLimit)
	req, err := f.w.RequestLoan(f.ctx, f.acc.Number, testutils.USD("500"))
	require.NoError(t, err)

	amount := testutils.USD("250")
	res, err := f.w.ApproveLoan(f.ctx, req.Loan.ID, &amount)
	require.NoError(t, err)
	assert.Equal(t, "250.00 USD", res.Loan.Amount.String())
	assert.Equal(t, "250.00 USD", f.balance(t))
}

func TestRequestLoan_Limit(t *testing.T) {
	f := newFixture(t, 2)
	var ids []uuid.UUID
	for i := 0; i < 2; i++ {
		res, err := f.w.RequestLoan(f.ctx, f.acc.Number, testutils.USD("10"))
		require.NoError(t, err)
		_, err = f.w.ApproveLoan(f.ctx, res.Loan.ID, nil)
		require.NoError(t, err)
		ids = append(ids, res.Loan.ID)
	}

	_, err := f.w.RequestLoan(f.ctx, f.acc.Number, testutils.USD("10"))
	require.ErrorIs(t, err, domain.ErrLoanLimitExceeded)

	_, err = f.w.PayLoan(f.ctx, ids[0])
	require.NoError(t, err)
	_, err = f.w.RequestLoan(f.ctx, f.acc.Number, testutils.USD("10"))
	require.NoError(t, err, "a repaid loan frees a slot")
}

func TestRequestLoan_PendingRequestsDoNotCount(t *testing.T) {
	f := newFixture(t, 3)
	for i := 0; i < 3; i++ {
		res, err := f.w.RequestLoan(f.ctx, f.acc.Number, testutils.USD("10"))
		require.NoError(t, err)
		_, err = f.w.ApproveLoan(f.ctx, res.Loan.ID, nil)
		require.NoError(t, err)
	}

	pending, err := f.w.RequestLoan(f.ctx, f.acc.Number, testutils.USD("10"))
	require.NoError(t, err, "an unapproved request is not counted against the limit")
	assert.Equal(t, account.LoanStatusRequested, pending.Loan.LoanStatus)

	_, err = f.w.RequestLoan(f.ctx, f.acc.Number, testutils.USD("10"))
	require.ErrorIs(t, err, domain.ErrLoanLimitExceeded)
	assert.Equal(t, "30.00 USD", f.balance(t))
}

func TestApproveLoan_IgnoresCallerCancellation(t *testing.T) {
	f := newFixture(t, loan.DefaultLimit)
	req, err := f.w.RequestLoan(f.ctx, f.acc.Number, testutils.USD("40"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(f.ctx)
	cancel()
	res, err := f.w.ApproveLoan(ctx, req.Loan.ID, nil)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, "40.00 USD", f.balance(t))
}

func TestRequestLoan_Invalid(t *testing.T) {
	f := newFixture(t, loan.DefaultLimit)
	_, err := f.w.RequestLoan(f.ctx, f.acc.Number, testutils.USD("0"))
	require.ErrorIs(t, err, domain.ErrInvalidAmount)
	_, err = f.w.RequestLoan(f.ctx, f.acc.Number, testutils.USD("-5"))
	require.ErrorIs(t, err, domain.ErrInvalidAmount)
	_, err = f.w.RequestLoan(f.ctx, "0000000000", testutils.USD("5"))
	require.ErrorIs(t, err, account.ErrAccountNotFound)
}

func TestPayLoan_Errors(t *testing.T) {
	f := newFixture(t, loan.DefaultLimit)
	_, err := f.w.PayLoan(f.ctx, uuid.New())
	require.ErrorIs(t, err, domain.ErrNotFound)

	req, err := f.w.RequestLoan(f.ctx, f.acc.Number, testutils.USD("100"))
	require.NoError(t, err)
	_, err = f.w.ApproveLoan(f.ctx, req.Loan.ID, nil)
	require.NoError(t, err)

	_, err = ledger.NewMutator(f.l).ApplyDelta(f.ctx, f.acc.Number, testutils.USD("-30"), account.KindWithdrawal)
	require.NoError(t, err)
	_, err = f.w.PayLoan(f.ctx, req.Loan.ID)
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	_, err = f.w.PayLoanAs(f.ctx, uuid.New(), f.acc.Number, req.Loan.ID)
	require.ErrorIs(t, err, account.ErrNotOwner)

	sibling := testutils.CreateAccount(t, f.uow, f.acc.UserID)
	_, err = f.w.PayLoanAs(f.ctx, f.acc.UserID, sibling.Number, req.Loan.ID)
	require.ErrorIs(t, err, account.ErrTransactionNotFound, "the loan belongs to another account")

	deposit, err := ledger.NewMutator(f.l).ApplyDelta(f.ctx, f.acc.Number, testutils.USD("30"), account.KindDeposit)
	require.NoError(t, err)
	_, err = f.w.PayLoan(f.ctx, deposit.Transaction.ID)
	require.ErrorIs(t, err, account.ErrNotALoan)

	_, err = f.w.PayLoanAs(f.ctx, f.acc.UserID, f.acc.Number, req.Loan.ID)
	require.NoError(t, err)
}

func TestApproveLoan_ConcurrentCreditsOnce(t *testing.T) {
	f := newFixture(t, loan.DefaultLimit)
	req, err := f.w.RequestLoan(f.ctx, f.acc.Number, testutils.USD("75"))
	require.NoError(t, err)

	const n = 10
	var wg sync.WaitGroup
	changed := make(chan bool, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.w.ApproveLoan(f.ctx, req.Loan.ID, nil)
			assert.NoError(t, err)
			changed <- res.Changed
		}()
	}
	wg.Wait()
	close(changed)

	assert.Equal(t, "75.00 USD", f.balance(t))
	entries, err := f.store.QueryTransactions(f.ctx, f.acc.ID, repository.TransactionFilter{PostedOnly: true})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
