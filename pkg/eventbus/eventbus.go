package eventbus

import (
	"context"

	"github.com/amirasaad/banking/pkg/domain/events"
)

// HandlerFunc handles one event delivered by a Bus.
type HandlerFunc func(ctx context.Context, event events.Event) error

// Bus defines the contract for publishing and subscribing to domain events.
type Bus interface {
	// Register adds a handler for the given event type.
	Register(eventType string, handler HandlerFunc)
	// Emit publishes the event. Synchronous buses return handler errors;
	// broker-backed buses return once the broker has accepted the event.
	Emit(ctx context.Context, event events.Event) error
}
