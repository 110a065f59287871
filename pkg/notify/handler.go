package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/amirasaad/banking/pkg/domain/events"
	"github.com/amirasaad/banking/pkg/eventbus"
	"github.com/amirasaad/banking/pkg/repository"
)

type message struct {
	subject  string
	template string
}

var messages = map[events.EventType]message{
	events.EventTypeDepositPosted:    {"Bank deposit info", TemplateDeposit},
	events.EventTypeWithdrawalPosted: {"Money withdrawal info", TemplateWithdrawal},
	events.EventTypeLoanRequested:    {"Application for loan programme", TemplateLoanRequest},
	events.EventTypeLoanApproved:     {"Loan approval", TemplateLoanApproved},
	events.EventTypeLoanPaid:         {"Loan repayment", TemplateLoanPaid},
	events.EventTypeTransferSent:     {"Transfer money details", TemplateTransferSent},
	events.EventTypeTransferReceived: {"Transfer money details", TemplateTransferReceived},
}

// NotificationFor maps a ledger event to the notification it triggers,
// without the recipient.
func NotificationFor(e *events.TransactionPosted) (Notification, error) {
	m, ok := messages[e.EventType]
	if !ok {
		return Notification{}, fmt.Errorf("no notification for %s", e.EventType)
	}
	return Notification{
		Subject:       m.subject,
		TemplateKey:   m.template,
		Amount:        e.Amount,
		Balance:       e.Balance,
		AccountNumber: e.AccountNumber,
	}, nil
}

// NewEventHandler returns a bus handler that addresses each ledger event to
// the account owner and hands it to notifier.
func NewEventHandler(uow repository.UnitOfWork, notifier Notifier, logger *slog.Logger) eventbus.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("handler", "notify")
	return func(ctx context.Context, event events.Event) error {
		e, ok := event.(*events.TransactionPosted)
		if !ok {
			return fmt.Errorf("unexpected event %T", event)
		}
		n, err := NotificationFor(e)
		if err != nil {
			return err
		}
		users, err := uow.UserRepository()
		if err != nil {
			return err
		}
		u, err := users.Get(ctx, e.UserID)
		if err != nil {
			return fmt.Errorf("recipient of %s: %w", e.EventType, err)
		}
		n.Recipient = Recipient{Name: u.Username, Email: u.Email}
		if err := notifier.Notify(ctx, n); err != nil {
			logger.Warn("notify failed", "event_type", e.EventType, "user_id", e.UserID, "error", err)
			return err
		}
		return nil
	}
}

// RegisterHandlers subscribes handler to every notification event type.
func RegisterHandlers(bus eventbus.Bus, handler eventbus.HandlerFunc) {
	for _, et := range events.NotificationEventTypes {
		bus.Register(et.String(), handler)
	}
}
