package events

// EventType represents the type of an event in the system.
type EventType string

// Event type constants
const (
	EventTypeDepositPosted    EventType = "Deposit.Posted"
	EventTypeWithdrawalPosted EventType = "Withdrawal.Posted"

	EventTypeLoanRequested EventType = "Loan.Requested"
	EventTypeLoanApproved  EventType = "Loan.Approved"
	EventTypeLoanPaid      EventType = "Loan.Paid"

	EventTypeTransferSent     EventType = "Transfer.Sent"
	EventTypeTransferReceived EventType = "Transfer.Received"
)

// String returns the string representation of the event type.
func (et EventType) String() string {
	return string(et)
}

// NotificationEventTypes lists every event type a customer is notified about.
var NotificationEventTypes = []EventType{
	EventTypeDepositPosted,
	EventTypeWithdrawalPosted,
	EventTypeLoanRequested,
	EventTypeLoanApproved,
	EventTypeLoanPaid,
	EventTypeTransferSent,
	EventTypeTransferReceived,
}

// EventTypes maps a wire type name to a constructor, used when decoding
// events coming back from an external bus.
var EventTypes = func() map[string]func() Event {
	m := make(map[string]func() Event, len(NotificationEventTypes))
	for _, et := range NotificationEventTypes {
		m[et.String()] = func() Event { return &TransactionPosted{} }
	}
	return m
}()
