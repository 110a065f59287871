// Package app wires the ledger services, the notification pipeline and the
// event bus into one application.
package app

import (
	"github.com/amirasaad/banking/pkg/notify"
)

// setupEventBus subscribes the notification handler to every ledger event
// and builds the dispatcher that moves outbox rows onto the bus.
func (a *App) setupEventBus() {
	bus := a.Deps.EventBus
	uow := a.Deps.Uow
	logger := a.Deps.Logger

	notifier := a.Deps.Notifier
	if notifier == nil {
		notifier = notify.NewLogNotifier(logger)
	}
	notify.RegisterHandlers(bus, notify.NewEventHandler(uow, notifier, logger))
	a.Dispatcher = notify.NewDispatcher(uow, bus, a.Config.Outbox, logger)
}
