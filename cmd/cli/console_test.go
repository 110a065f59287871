package main

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"time"

	infraeventbus "github.com/amirasaad/banking/infra/eventbus"
	"github.com/amirasaad/banking/pkg/app"
	"github.com/amirasaad/banking/pkg/config"
	"github.com/amirasaad/banking/pkg/domain"
	"github.com/amirasaad/banking/pkg/domain/account"
	"github.com/amirasaad/banking/pkg/testutils"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newConsole(t *testing.T, input string) (*console, *bytes.Buffer) {
	t.Helper()
	color.NoColor = true
	uow, _ := testutils.NewTestUoW(t)
	cfg := &config.App{
		Auth:   &config.Auth{Jwt: &config.Jwt{Secret: "secret", Expiry: time.Hour}},
		Ledger: &config.Ledger{MaxRetries: 5, RetryBase: time.Millisecond, RetryMax: 10 * time.Millisecond},
		Loan:   &config.Loan{Limit: 3},
	}
	out := &bytes.Buffer{}
	return &console{
		app: app.New(&app.Deps{Uow: uow, EventBus: infraeventbus.NewWithMemory(nil)}, cfg),
		out: out,
		in:  strings.NewReader(input),
		secret: func(prompt string, w io.Writer) (string, error) {
			_, _ = io.WriteString(w, prompt)
			return testutils.DefaultPassword, nil
		},
	}, out
}

func TestConsole_RegisterAndPromote(t *testing.T) {
	testutils.FastPasswords()
	c, out := newConsole(t, "")

	require.NoError(t, c.dispatch(t.Context(), []string{"register", "carol", "carol@example.com"}))
	assert.Contains(t, out.String(), "Registered carol")

	require.NoError(t, c.dispatch(t.Context(), []string{"promote", "carol@example.com"}))
	assert.Contains(t, out.String(), "carol is now an administrator")

	require.ErrorIs(t, c.dispatch(t.Context(), []string{"promote", "nobody"}), domain.ErrNotFound)
	require.Error(t, c.dispatch(t.Context(), []string{"register", "only-one-arg"}))
}

func TestConsole_ApproveLoan(t *testing.T) {
	c, _ := newConsole(t, "")
	uow := c.app.Deps.Uow
	admin := testutils.CreateAdmin(t, uow)
	customer := testutils.CreateUser(t, uow)
	acc := testutils.CreateAccount(t, uow, customer.ID)
	res, err := c.app.LoanService.RequestLoan(t.Context(), acc.Number, testutils.USD("75"))
	require.NoError(t, err)
	loanID := res.Loan.ID.String()

	c, out := withInput(c, customer.Username+"\n")
	err = c.dispatch(t.Context(), []string{"approve-loan", loanID})
	require.ErrorIs(t, err, domain.ErrForbidden, "customers cannot approve loans")

	c, out = withInput(c, admin.Email+"\n")
	require.NoError(t, c.dispatch(t.Context(), []string{"approve-loan", loanID}))
	assert.Contains(t, out.String(), "approved for 75.00 USD")

	c, out = withInput(c, admin.Username+"\n")
	require.NoError(t, c.dispatch(t.Context(), []string{"approve-loan", loanID}))
	assert.Contains(t, out.String(), "already approved")

	loans, err := c.app.LoanService.ListLoans(t.Context(), acc.Number)
	require.NoError(t, err)
	require.Len(t, loans, 1)
	assert.Equal(t, account.LoanStatusApproved, loans[0].LoanStatus)

	require.Error(t, c.dispatch(t.Context(), []string{"approve-loan", "not-a-uuid"}))
}

func withInput(c *console, input string) (*console, *bytes.Buffer) {
	out := &bytes.Buffer{}
	next := *c
	next.in = strings.NewReader(input)
	next.out = out
	return &next, out
}

func TestConsole_ReconcileAndReport(t *testing.T) {
	c, out := newConsole(t, "")
	u := testutils.CreateUser(t, c.app.Deps.Uow)
	acc, err := c.app.AccountService.OpenAccount(t.Context(), u.ID)
	require.NoError(t, err)
	_, err = c.app.AccountService.Deposit(t.Context(), u.ID, acc.Number, testutils.USD("12.50"))
	require.NoError(t, err)

	require.NoError(t, c.dispatch(t.Context(), []string{"reconcile", acc.Number}))
	assert.Contains(t, out.String(), "consistent")

	out.Reset()
	require.NoError(t, c.dispatch(t.Context(), []string{"report", acc.Number}))
	assert.Contains(t, out.String(), "deposit")
	assert.Contains(t, out.String(), "Balance: 12.50 USD")

	out.Reset()
	require.NoError(t, c.dispatch(t.Context(), []string{"report", acc.Number, "2000-01-01", "2000-01-02"}))
	assert.Contains(t, out.String(), "Net for range: 0.00 USD")

	require.ErrorIs(t, c.dispatch(t.Context(), []string{"report", acc.Number, "2000-01-02", "2000-01-01"}),
		domain.ErrInvalidDateRange)
}

func TestConsole_Dispatch(t *testing.T) {
	c, out := newConsole(t, "")
	require.NoError(t, c.dispatch(t.Context(), []string{"dispatch"}))
	assert.Contains(t, out.String(), "Delivered 0 notification(s)")
}

func TestConsole_UnknownCommand(t *testing.T) {
	c, _ := newConsole(t, "")
	require.Error(t, c.dispatch(t.Context(), []string{"launch-rockets"}))
}

func TestRun_NoArgsPrintsUsage(t *testing.T) {
	out := &bytes.Buffer{}
	require.NoError(t, run(t.Context(), nil, out))
	assert.Contains(t, out.String(), "Usage: cli")
}

func TestParseSteps(t *testing.T) {
	n, err := parseSteps("2")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	for _, bad := range []string{"0", "-1", "x"} {
		_, err := parseSteps(bad)
		assert.Error(t, err, bad)
	}
}
