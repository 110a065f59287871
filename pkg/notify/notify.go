// Package notify turns ledger events into customer notifications and
// delivers the outbox rows that carry them.
package notify

import (
	"context"

	"github.com/amirasaad/banking/pkg/money"
)

// Template keys, one per notification kind.
const (
	TemplateDeposit          = "deposit"
	TemplateWithdrawal       = "withdrawal"
	TemplateLoanRequest      = "loan-request"
	TemplateLoanApproved     = "loan-approved"
	TemplateLoanPaid         = "loan-paid"
	TemplateTransferSent     = "transfer-sent"
	TemplateTransferReceived = "transfer-received"
)

// Recipient is who a notification is addressed to.
type Recipient struct {
	Name  string
	Email string
}

// Notification is a rendered-on-send message about one ledger change.
type Notification struct {
	Subject       string
	TemplateKey   string
	Amount        money.Money
	Balance       money.Money
	AccountNumber string
	Recipient     Recipient
}

// Notifier delivers a notification to its recipient.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}
