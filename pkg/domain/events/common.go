package events

import (
	"time"

	"github.com/google/uuid"
)

// Event is anything that can travel over the event bus.
type Event interface {
	Type() string
}

// FlowEvent carries the identifiers shared by every ledger event.
type FlowEvent struct {
	ID            uuid.UUID `json:"id"`
	FlowType      string    `json:"flow_type"`
	UserID        uuid.UUID `json:"user_id"`
	AccountID     uuid.UUID `json:"account_id"`
	CorrelationID uuid.UUID `json:"correlation_id"`
	Timestamp     time.Time `json:"timestamp"`
}

// Validatable defines an interface for objects that can be validated.
type Validatable interface {
	Validate() error
}
