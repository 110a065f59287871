package app_test

import (
	"errors"
	"testing"
	"time"

	infraeventbus "github.com/amirasaad/banking/infra/eventbus"
	"github.com/amirasaad/banking/internal/fixtures/mocks"
	"github.com/amirasaad/banking/pkg/app"
	"github.com/amirasaad/banking/pkg/config"
	"github.com/amirasaad/banking/pkg/domain"
	"github.com/amirasaad/banking/pkg/notify"
	"github.com/amirasaad/banking/pkg/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.App {
	return &config.App{
		Auth:   &config.Auth{Jwt: &config.Jwt{Secret: "secret", Expiry: time.Hour}},
		Ledger: &config.Ledger{MaxRetries: 5, RetryBase: time.Millisecond, RetryMax: 10 * time.Millisecond},
		Loan:   &config.Loan{Limit: 3},
		Outbox: &config.Outbox{PollInterval: time.Second, BatchSize: 10, MaxAttempts: 3},
	}
}

func TestNew_DepositNotifiesOwner(t *testing.T) {
	uow, _ := testutils.NewTestUoW(t)
	bus := infraeventbus.NewWithMemory(nil)
	notifier := mocks.NewNotifier(t)
	a := app.New(&app.Deps{Uow: uow, EventBus: bus, Notifier: notifier}, testConfig())

	u := testutils.CreateUser(t, uow)
	acc, err := a.AccountService.OpenAccount(t.Context(), u.ID)
	require.NoError(t, err)

	notifier.On("Notify", mock.Anything, mock.MatchedBy(func(n notify.Notification) bool {
		return n.TemplateKey == notify.TemplateDeposit &&
			n.AccountNumber == acc.Number &&
			n.Recipient.Email == u.Email &&
			n.Amount.String() == "42.00 USD" &&
			n.Balance.String() == "42.00 USD"
	})).Return(nil).Once()

	res, err := a.AccountService.Deposit(t.Context(), u.ID, acc.Number, testutils.USD("42"))
	require.NoError(t, err)
	assert.NoError(t, res.Warning)
	require.Len(t, bus.Published(), 1)
	assert.Equal(t, "Deposit.Posted", bus.Published()[0].Type())

	sent, err := a.Dispatcher.DispatchPending(t.Context(), 0)
	require.NoError(t, err)
	assert.Zero(t, sent, "delivered rows are not sent again")
}

func TestNew_TransferNotifiesBothParties(t *testing.T) {
	uow, _ := testutils.NewTestUoW(t)
	bus := infraeventbus.NewWithMemory(nil)
	notifier := mocks.NewNotifier(t)
	notifier.On("Notify", mock.Anything, mock.Anything).Return(nil)
	a := app.New(&app.Deps{Uow: uow, EventBus: bus, Notifier: notifier}, testConfig())

	sender := testutils.CreateUser(t, uow)
	receiver := testutils.CreateUser(t, uow)
	from, err := a.AccountService.OpenAccount(t.Context(), sender.ID)
	require.NoError(t, err)
	to, err := a.AccountService.OpenAccount(t.Context(), receiver.ID)
	require.NoError(t, err)
	_, err = a.AccountService.Deposit(t.Context(), sender.ID, from.Number, testutils.USD("10"))
	require.NoError(t, err)
	bus.ClearPublished()

	res, err := a.TransferService.TransferAs(t.Context(), sender.ID, from.Number, to.Number, testutils.USD("4"))
	require.NoError(t, err)
	assert.NoError(t, res.Warning)

	var types []string
	for _, e := range bus.Published() {
		types = append(types, e.Type())
	}
	assert.ElementsMatch(t, []string{"Transfer.Sent", "Transfer.Received"}, types)
	notifier.AssertNumberOfCalls(t, "Notify", 3)
}

func TestNew_NotifierFailureIsAWarning(t *testing.T) {
	uow, _ := testutils.NewTestUoW(t)
	notifier := mocks.NewNotifier(t)
	notifier.On("Notify", mock.Anything, mock.Anything).Return(errors.New("smtp: 421 service not available")).Once()
	a := app.New(&app.Deps{Uow: uow, EventBus: infraeventbus.NewWithMemory(nil), Notifier: notifier}, testConfig())

	u := testutils.CreateUser(t, uow)
	acc, err := a.AccountService.OpenAccount(t.Context(), u.ID)
	require.NoError(t, err)

	res, err := a.AccountService.Deposit(t.Context(), u.ID, acc.Number, testutils.USD("1"))
	require.NoError(t, err)
	require.ErrorIs(t, res.Warning, domain.ErrDeliveryFailed)
	assert.Equal(t, "1.00 USD", res.Balance.String())

	notifier.On("Notify", mock.Anything, mock.Anything).Return(nil).Once()
	sent, err := a.Dispatcher.DispatchPending(t.Context(), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, sent, "the failed notification is retried from the outbox")
}
