package notify_test

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/amirasaad/banking/internal/fixtures/mocks"
	"github.com/amirasaad/banking/pkg/config"
	"github.com/amirasaad/banking/pkg/domain/events"
	"github.com/amirasaad/banking/pkg/notify"
	"github.com/amirasaad/banking/pkg/testutils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func sampleNotification(key string) notify.Notification {
	return notify.Notification{
		Subject:       "Bank deposit info",
		TemplateKey:   key,
		Amount:        testutils.USD("25.50"),
		Balance:       testutils.USD("100"),
		AccountNumber: "1234567890",
		Recipient:     notify.Recipient{Name: "alice", Email: "alice@example.com"},
	}
}

func TestRender(t *testing.T) {
	keys := []string{
		notify.TemplateDeposit,
		notify.TemplateWithdrawal,
		notify.TemplateLoanRequest,
		notify.TemplateLoanApproved,
		notify.TemplateLoanPaid,
		notify.TemplateTransferSent,
		notify.TemplateTransferReceived,
	}
	for _, key := range keys {
		t.Run(key, func(t *testing.T) {
			body, err := notify.Render(sampleNotification(key))
			require.NoError(t, err)
			assert.Contains(t, body, "alice")
			assert.Contains(t, body, "25.50 USD")
			assert.Contains(t, body, "******7890")
			assert.NotContains(t, body, "1234567890")
		})
	}

	_, err := notify.Render(sampleNotification("overdraft"))
	require.Error(t, err)
}

func TestSMTPNotifier(t *testing.T) {
	cfg := &config.Notify{Driver: "smtp", SMTPHost: "mail.local", SMTPPort: 2525, From: "bank@example.com"}
	var (
		gotAddr string
		gotTo   []string
		gotMsg  string
	)
	n := notify.NewSMTPNotifier(cfg, nil).WithSender(
		func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
			gotAddr, gotTo, gotMsg = addr, to, string(msg)
			assert.Equal(t, "bank@example.com", from)
			return nil
		})

	require.NoError(t, n.Notify(context.Background(), sampleNotification(notify.TemplateDeposit)))
	assert.Equal(t, "mail.local:2525", gotAddr)
	assert.Equal(t, []string{"alice@example.com"}, gotTo)
	assert.Contains(t, gotMsg, "Subject: Bank deposit info")
	assert.Contains(t, gotMsg, "Content-Type: text/html")

	noRecipient := sampleNotification(notify.TemplateDeposit)
	noRecipient.Recipient.Email = ""
	require.Error(t, n.Notify(context.Background(), noRecipient))

	failing := notify.NewSMTPNotifier(cfg, nil).WithSender(
		func(string, smtp.Auth, string, []string, []byte) error { return errors.New("connection refused") })
	err := failing.Notify(context.Background(), sampleNotification(notify.TemplateDeposit))
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "connection refused"))
}

func TestNew(t *testing.T) {
	n, err := notify.New(&config.Notify{Driver: "log"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &notify.LogNotifier{}, n)
	require.NoError(t, n.Notify(context.Background(), sampleNotification(notify.TemplateLoanPaid)))

	n, err = notify.New(&config.Notify{Driver: "smtp", SMTPHost: "localhost", SMTPPort: 25}, nil)
	require.NoError(t, err)
	assert.IsType(t, &notify.SMTPNotifier{}, n)

	_, err = notify.New(&config.Notify{Driver: "pager"}, nil)
	require.Error(t, err)
}

func TestNotificationFor(t *testing.T) {
	n, err := notify.NotificationFor(&events.TransactionPosted{
		EventType: events.EventTypeLoanApproved,
		Amount:    testutils.USD("500"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Loan approval", n.Subject)
	assert.Equal(t, notify.TemplateLoanApproved, n.TemplateKey)

	_, err = notify.NotificationFor(&events.TransactionPosted{EventType: "Account.Closed"})
	require.Error(t, err)
}

func TestEventHandler(t *testing.T) {
	ctx := context.Background()
	uow, _ := testutils.NewTestUoW(t)
	u := testutils.CreateUser(t, uow)
	notifier := mocks.NewNotifier(t)
	handler := notify.NewEventHandler(uow, notifier, nil)

	event := &events.TransactionPosted{
		FlowEvent:     events.FlowEvent{ID: uuid.New(), UserID: u.ID, AccountID: uuid.New()},
		EventType:     events.EventTypeWithdrawalPosted,
		AccountNumber: "1000000001",
		Amount:        testutils.USD("5"),
		Balance:       testutils.USD("15"),
	}

	notifier.On("Notify", mock.Anything, mock.MatchedBy(func(n notify.Notification) bool {
		return n.Recipient.Email == u.Email && n.TemplateKey == notify.TemplateWithdrawal
	})).Return(nil).Once()
	require.NoError(t, handler(ctx, event))

	notifier.On("Notify", mock.Anything, mock.Anything).Return(errors.New("smtp down")).Once()
	require.Error(t, handler(ctx, event))

	stranger := *event
	stranger.UserID = uuid.New()
	require.Error(t, handler(ctx, &stranger), "unknown recipients are not notified")
}

func TestRegisterHandlers(t *testing.T) {
	bus := mocks.NewBus(t)
	for _, et := range events.NotificationEventTypes {
		bus.On("Register", et.String(), mock.Anything).Return().Once()
	}
	notify.RegisterHandlers(bus, func(context.Context, events.Event) error { return nil })
}
