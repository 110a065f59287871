// Package testutils builds a fully wired HTTP application over an in-memory
// database for handler tests.
package testutils

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	infraeventbus "github.com/amirasaad/banking/infra/eventbus"
	infrarepo "github.com/amirasaad/banking/infra/repository"
	"github.com/amirasaad/banking/pkg/app"
	"github.com/amirasaad/banking/pkg/config"
	"github.com/amirasaad/banking/pkg/domain/account"
	"github.com/amirasaad/banking/pkg/domain/user"
	"github.com/amirasaad/banking/pkg/notify"
	"github.com/amirasaad/banking/pkg/service/ledger"
	"github.com/amirasaad/banking/pkg/testutils"
	"github.com/amirasaad/banking/webapi"
	"github.com/amirasaad/banking/webapi/common"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

// TestConfig returns a configuration suitable for handler tests.
func TestConfig() *config.App {
	return &config.App{
		Env:       "test",
		Server:    &config.Server{Scheme: "http", Host: "localhost", Port: 3000},
		Log:       &config.Log{Format: "text"},
		DB:        &config.DB{Url: "sqlite://memory"},
		Auth:      &config.Auth{Jwt: &config.Jwt{Secret: "test-secret", Expiry: time.Hour}},
		RateLimit: &config.RateLimit{MaxRequests: 10000, Window: time.Minute},
		Ledger:    &config.Ledger{MaxRetries: 10, RetryBase: time.Millisecond, RetryMax: 20 * time.Millisecond},
		Loan:      &config.Loan{Limit: 3},
		EventBus:  &config.EventBus{Driver: "memory"},
		Redis:     &config.Redis{},
		Kafka:     &config.Kafka{},
		Outbox:    &config.Outbox{PollInterval: time.Second, BatchSize: 100, MaxAttempts: 5},
		Notify:    &config.Notify{Driver: "log", From: "no-reply@banking.local"},
	}
}

// Harness is a wired application and its backing store.
type Harness struct {
	App    *app.App
	Fiber  *fiber.App
	Uow    *infrarepo.UoW
	Bus    *infraeventbus.MemoryEventBus
	Config *config.App
}

// Option adjusts the harness configuration before wiring.
type Option func(cfg *config.App, deps *app.Deps)

// WithNotifier replaces the log notifier.
func WithNotifier(n notify.Notifier) Option {
	return func(_ *config.App, deps *app.Deps) { deps.Notifier = n }
}

// WithRateLimit sets the per-IP request budget.
func WithRateLimit(max int, window time.Duration) Option {
	return func(cfg *config.App, _ *app.Deps) {
		cfg.RateLimit = &config.RateLimit{MaxRequests: max, Window: window}
	}
}

// New wires an application over a fresh in-memory database.
func New(t testing.TB, opts ...Option) *Harness {
	t.Helper()
	uow, _ := testutils.NewTestUoW(t)
	bus := infraeventbus.NewWithMemory(nil)
	cfg := TestConfig()
	deps := &app.Deps{Uow: uow, EventBus: bus}
	for _, opt := range opts {
		opt(cfg, deps)
	}
	a := app.New(deps, cfg, ledger.WithLocker(ledger.NewLocker()))
	return &Harness{
		App:    a,
		Fiber:  webapi.SetupApp(a),
		Uow:    uow,
		Bus:    bus,
		Config: cfg,
	}
}

// Customer creates a customer and returns it with a bearer token.
func (h *Harness) Customer(t testing.TB) (*user.User, string) {
	t.Helper()
	return h.tokenFor(t, testutils.CreateUser(t, h.Uow))
}

// Admin creates an administrator and returns it with a bearer token.
func (h *Harness) Admin(t testing.TB) (*user.User, string) {
	t.Helper()
	return h.tokenFor(t, testutils.CreateAdmin(t, h.Uow))
}

func (h *Harness) tokenFor(t testing.TB, u *user.User) (*user.User, string) {
	token, err := h.App.AuthService.GenerateToken(context.Background(), u)
	require.NoError(t, err)
	return u, token
}

// Account opens an account for u, funded with deposit when it is non-empty.
func (h *Harness) Account(t testing.TB, u *user.User, deposit string) *account.Account {
	t.Helper()
	ctx := context.Background()
	acc, err := h.App.AccountService.OpenAccount(ctx, u.ID)
	require.NoError(t, err)
	if deposit != "" {
		res, err := h.App.AccountService.Deposit(ctx, u.ID, acc.Number, testutils.USD(deposit))
		require.NoError(t, err)
		acc.Balance = res.Balance
	}
	return acc
}

// Do sends a request through the fiber app.
func (h *Harness) Do(t testing.TB, method, path, body, token string) *http.Response {
	t.Helper()
	resp := MakeRequestWithApp(h.Fiber, method, path, body, token)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

// MakeRequestWithApp is a helper for making HTTP requests in tests.
func MakeRequestWithApp(app *fiber.App, method, path, body, token string) *http.Response {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		panic(err)
	}
	return resp
}

// Envelope is a decoded success response with raw data.
type Envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Decode reads a success envelope and unmarshals its data into out, when
// out is not nil.
func Decode(t testing.TB, resp *http.Response, out any) Envelope {
	t.Helper()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var env Envelope
	require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	if out != nil {
		require.NoError(t, json.Unmarshal(env.Data, out), string(raw))
	}
	return env
}

// DecodeProblem reads a problem details response.
func DecodeProblem(t testing.TB, resp *http.Response) common.ProblemDetails {
	t.Helper()
	var pd common.ProblemDetails
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&pd))
	return pd
}
