package account

import (
	"github.com/amirasaad/banking/pkg/config"
	"github.com/amirasaad/banking/pkg/middleware"
	accountsvc "github.com/amirasaad/banking/pkg/service/account"
	authsvc "github.com/amirasaad/banking/pkg/service/auth"
	"github.com/amirasaad/banking/pkg/service/ledger"
	loansvc "github.com/amirasaad/banking/pkg/service/loan"
	reportsvc "github.com/amirasaad/banking/pkg/service/report"
	transfersvc "github.com/amirasaad/banking/pkg/service/transfer"
	"github.com/amirasaad/banking/webapi/common"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

// Services groups what the account routes call into.
type Services struct {
	Accounts  *accountsvc.Service
	Transfers *transfersvc.Coordinator
	Loans     *loansvc.Workflow
	Reports   *reportsvc.Service
	Auth      *authsvc.Service
}

// Routes registers the customer account routes. Every route requires a
// valid token and operates only on accounts the caller owns.
//
// Routes:
//   - POST   /account                          : Open an account for the caller.
//   - GET    /account                          : List the caller's accounts.
//   - GET    /account/:number                  : Account details.
//   - POST   /account/:number/deposit          : Deposit funds.
//   - POST   /account/:number/withdraw         : Withdraw funds.
//   - POST   /account/:number/transfer         : Transfer to another account.
//   - GET    /account/:number/report           : Statement, optionally for a date range.
//   - GET    /account/:number/loans            : List loans.
//   - POST   /account/:number/loans            : Request a loan.
//   - POST   /account/:number/loans/:id/pay    : Repay a loan.
func Routes(app *fiber.App, svc Services, cfg *config.App) {
	group := app.Group("/account", middleware.JwtProtected(cfg.Auth.Jwt))
	group.Post("/", OpenAccount(svc))
	group.Get("/", ListAccounts(svc))
	group.Get("/:number", GetAccount(svc))
	group.Post("/:number/deposit", Deposit(svc))
	group.Post("/:number/withdraw", Withdraw(svc))
	group.Post("/:number/transfer", Transfer(svc))
	group.Get("/:number/report", Report(svc))
	group.Get("/:number/loans", ListLoans(svc))
	group.Post("/:number/loans", RequestLoan(svc))
	group.Post("/:number/loans/:id/pay", PayLoan(svc))
}

func postingData(res ledger.Result) fiber.Map {
	return common.WithWarning(fiber.Map{
		"transaction": res.Transaction,
		"balance":     res.Balance,
	}, res.Warning)
}

// OpenAccount returns a Fiber handler for opening an account for the caller.
// @Summary Open a new account
// @Description Opens an account with a generated number and zero balance for the authenticated user.
// @Tags accounts
// @Produce json
// @Success 201 {object} common.Response "Account created successfully"
// @Failure 401 {object} common.ProblemDetails "Unauthorized"
// @Failure 429 {object} common.ProblemDetails "Too many requests"
// @Failure 500 {object} common.ProblemDetails "Internal server error"
// @Router /account [post]
// @Security Bearer
func OpenAccount(svc Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := common.CurrentUserID(c, svc.Auth)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err)
		}
		a, err := svc.Accounts.OpenAccount(c.Context(), userID)
		if err != nil {
			log.Errorf("Failed to open account: %v", err)
			return common.ProblemDetailsJSON(c, "Failed to create account", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusCreated, "Account created", a)
	}
}

// ListAccounts returns the caller's accounts.
// @Summary List accounts
// @Tags accounts
// @Produce json
// @Success 200 {object} common.Response
// @Failure 401 {object} common.ProblemDetails
// @Router /account [get]
// @Security Bearer
func ListAccounts(svc Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := common.CurrentUserID(c, svc.Auth)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err)
		}
		accounts, err := svc.Accounts.ListAccounts(c.Context(), userID)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to list accounts", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Accounts fetched", accounts)
	}
}

// GetAccount returns one of the caller's accounts.
// @Summary Get account
// @Tags accounts
// @Produce json
// @Param number path string true "Account number"
// @Success 200 {object} common.Response
// @Failure 401 {object} common.ProblemDetails
// @Failure 403 {object} common.ProblemDetails
// @Failure 404 {object} common.ProblemDetails
// @Router /account/{number} [get]
// @Security Bearer
func GetAccount(svc Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := common.CurrentUserID(c, svc.Auth)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err)
		}
		a, err := svc.Accounts.GetAccount(c.Context(), userID, c.Params("number"))
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to get account", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Account fetched", a)
	}
}

// Deposit returns a Fiber handler for depositing into one of the caller's accounts.
// @Summary Deposit funds into an account
// @Description Credits a positive amount. The response carries a warning when the notification could not be delivered.
// @Tags accounts
// @Accept json
// @Produce json
// @Param number path string true "Account number"
// @Param request body AmountRequest true "Deposit details"
// @Success 200 {object} common.Response "Deposit successful"
// @Failure 400 {object} common.ProblemDetails "Invalid request"
// @Failure 401 {object} common.ProblemDetails "Unauthorized"
// @Failure 403 {object} common.ProblemDetails "Not the account owner"
// @Failure 404 {object} common.ProblemDetails "Account not found"
// @Failure 500 {object} common.ProblemDetails "Internal server error"
// @Router /account/{number}/deposit [post]
// @Security Bearer
func Deposit(svc Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := common.CurrentUserID(c, svc.Auth)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err)
		}
		input, err := common.BindAndValidate[AmountRequest](c)
		if input == nil {
			return err // error response already written
		}
		amount, err := common.ParseAmount(input.Amount, input.Currency)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid amount", err)
		}
		res, err := svc.Accounts.Deposit(c.Context(), userID, c.Params("number"), amount)
		if err != nil {
			log.Errorf("Failed to deposit: %v", err)
			return common.ProblemDetailsJSON(c, "Failed to deposit", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Deposit successful", postingData(res))
	}
}

// Withdraw returns a Fiber handler for withdrawing from one of the caller's accounts.
// @Summary Withdraw funds from an account
// @Description Debits a positive amount. Fails with 422 when the balance is insufficient.
// @Tags accounts
// @Accept json
// @Produce json
// @Param number path string true "Account number"
// @Param request body AmountRequest true "Withdrawal details"
// @Success 200 {object} common.Response "Withdrawal successful"
// @Failure 400 {object} common.ProblemDetails "Invalid request"
// @Failure 401 {object} common.ProblemDetails "Unauthorized"
// @Failure 403 {object} common.ProblemDetails "Not the account owner"
// @Failure 422 {object} common.ProblemDetails "Insufficient funds"
// @Failure 500 {object} common.ProblemDetails "Internal server error"
// @Router /account/{number}/withdraw [post]
// @Security Bearer
func Withdraw(svc Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := common.CurrentUserID(c, svc.Auth)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err)
		}
		input, err := common.BindAndValidate[AmountRequest](c)
		if input == nil {
			return err // error response already written
		}
		amount, err := common.ParseAmount(input.Amount, input.Currency)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid amount", err)
		}
		res, err := svc.Accounts.Withdraw(c.Context(), userID, c.Params("number"), amount)
		if err != nil {
			log.Errorf("Failed to withdraw: %v", err)
			return common.ProblemDetailsJSON(c, "Failed to withdraw", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Withdrawal successful", postingData(res))
	}
}

// Transfer returns a Fiber handler for moving money between accounts.
// @Summary Transfer funds
// @Description Transfers from one of the caller's accounts to any other account with the same currency.
// @Tags accounts
// @Accept json
// @Produce json
// @Param number path string true "Source account number"
// @Param request body TransferRequest true "Transfer details"
// @Success 200 {object} common.Response "Transfer successful"
// @Failure 400 {object} common.ProblemDetails "Invalid request"
// @Failure 401 {object} common.ProblemDetails "Unauthorized"
// @Failure 403 {object} common.ProblemDetails "Not the account owner"
// @Failure 404 {object} common.ProblemDetails "Account not found"
// @Failure 422 {object} common.ProblemDetails "Transfer rejected"
// @Failure 500 {object} common.ProblemDetails "Internal server error"
// @Router /account/{number}/transfer [post]
// @Security Bearer
func Transfer(svc Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := common.CurrentUserID(c, svc.Auth)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err)
		}
		input, err := common.BindAndValidate[TransferRequest](c)
		if input == nil {
			return err // error response already written
		}
		amount, err := common.ParseAmount(input.Amount, input.Currency)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid amount", err)
		}
		res, err := svc.Transfers.TransferAs(c.Context(), userID, c.Params("number"), input.ToAccount, amount)
		if err != nil {
			log.Errorf("Failed to transfer: %v", err)
			return common.ProblemDetailsJSON(c, "Failed to transfer", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Transfer successful", common.WithWarning(fiber.Map{
			"outgoing": res.Out,
			"incoming": res.In,
			"balance":  res.Balance,
		}, res.Warning))
	}
}

// Report returns the account statement.
// @Summary Account report
// @Description Lists transactions. With start_date and end_date (YYYY-MM-DD, inclusive) the total is the net of that range, not the live balance.
// @Tags accounts
// @Produce json
// @Param number path string true "Account number"
// @Param start_date query string false "Start date (YYYY-MM-DD)"
// @Param end_date query string false "End date (YYYY-MM-DD)"
// @Success 200 {object} common.Response
// @Failure 400 {object} common.ProblemDetails "Invalid date range"
// @Failure 401 {object} common.ProblemDetails
// @Failure 403 {object} common.ProblemDetails
// @Failure 404 {object} common.ProblemDetails
// @Router /account/{number}/report [get]
// @Security Bearer
func Report(svc Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := common.CurrentUserID(c, svc.Auth)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err)
		}
		rng, err := reportsvc.ParseDateRange(c.Query("start_date"), c.Query("end_date"))
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid date range", err)
		}
		r, err := svc.Reports.GenerateReportAs(c.Context(), userID, c.Params("number"), rng)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to generate report", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Report generated", r)
	}
}
