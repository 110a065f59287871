package app

import (
	"log/slog"

	"github.com/amirasaad/banking/pkg/config"
	"github.com/amirasaad/banking/pkg/eventbus"
	"github.com/amirasaad/banking/pkg/notify"
	"github.com/amirasaad/banking/pkg/repository"
	"github.com/amirasaad/banking/pkg/service/account"
	"github.com/amirasaad/banking/pkg/service/auth"
	"github.com/amirasaad/banking/pkg/service/ledger"
	"github.com/amirasaad/banking/pkg/service/loan"
	"github.com/amirasaad/banking/pkg/service/report"
	"github.com/amirasaad/banking/pkg/service/transfer"
	"github.com/amirasaad/banking/pkg/service/user"
)

// Deps contains the infrastructure the services are built on.
type Deps struct {
	Uow      repository.UnitOfWork
	EventBus eventbus.Bus
	Notifier notify.Notifier
	Logger   *slog.Logger
}

type App struct {
	Deps            *Deps
	Config          *config.App
	Ledger          *ledger.Ledger
	Dispatcher      *notify.Dispatcher
	Mutator         *ledger.Mutator
	AuthService     *auth.Service
	UserService     *user.Service
	AccountService  *account.Service
	TransferService *transfer.Coordinator
	LoanService     *loan.Workflow
	ReportService   *report.Service
}

// New wires the services. Extra ledger options (a fixed clock in tests) are
// applied after the dispatcher is installed as the ledger's deliverer.
func New(deps *Deps, cfg *config.App, opts ...ledger.Option) *App {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	app := &App{
		Deps:   deps,
		Config: cfg,
	}
	app.setupEventBus()

	opts = append([]ledger.Option{ledger.WithDeliverer(app.Dispatcher)}, opts...)
	app.Ledger = ledger.New(deps.Uow, cfg.Ledger, deps.Logger, opts...)
	app.Mutator = ledger.NewMutator(app.Ledger)

	app.AuthService = auth.NewWithJWT(deps.Uow, cfg.Auth.Jwt, deps.Logger)
	app.UserService = user.New(deps.Uow, deps.Logger)
	app.AccountService = account.NewService(app.Ledger, deps.Logger)
	app.TransferService = transfer.NewCoordinator(app.Ledger, deps.Logger)
	app.LoanService = loan.NewWorkflow(app.Ledger, cfg.Loan, deps.Logger)
	app.ReportService = report.NewService(app.Ledger, deps.Logger)
	return app
}
