// Package admin exposes the administrative HTTP routes. They call the same
// services as the customer routes and never write balances directly.
package admin

import (
	"github.com/amirasaad/banking/pkg/config"
	"github.com/amirasaad/banking/pkg/domain/account"
	"github.com/amirasaad/banking/pkg/middleware"
	"github.com/amirasaad/banking/pkg/money"
	authsvc "github.com/amirasaad/banking/pkg/service/auth"
	"github.com/amirasaad/banking/pkg/service/ledger"
	loansvc "github.com/amirasaad/banking/pkg/service/loan"
	reportsvc "github.com/amirasaad/banking/pkg/service/report"
	"github.com/amirasaad/banking/webapi/common"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

// Services holds the application services the admin handlers call.
type Services struct {
	Mutator *ledger.Mutator
	Loans   *loansvc.Workflow
	Reports *reportsvc.Service
	Auth    *authsvc.Service
}

// Routes mounts the /admin group. Every route requires a JWT whose user holds
// the admin role.
func Routes(app *fiber.App, svc Services, cfg *config.App) {
	group := app.Group("/admin", middleware.JwtProtected(cfg.Auth.Jwt), middleware.AdminOnly(svc.Auth))
	group.Post("/loans/:id/approve", ApproveLoan(svc))
	group.Post("/accounts/:number/transactions", PostTransaction(svc))
	group.Get("/accounts/:number/reconcile", Reconcile(svc))
	group.Get("/accounts/:number/report", Report(svc))
}

// ApproveLoan approves a requested loan.
// @Summary Approve a loan
// @Description Credits the loan (or the given amount) to its account. Approving an approved or paid loan changes nothing.
// @Tags admin
// @Accept json
// @Produce json
// @Param id path string true "Loan ID"
// @Param request body ApproveLoanRequest false "Amount override"
// @Success 200 {object} common.Response
// @Failure 400 {object} common.ProblemDetails
// @Failure 403 {object} common.ProblemDetails
// @Failure 404 {object} common.ProblemDetails
// @Router /admin/loans/{id}/approve [post]
// @Security Bearer
func ApproveLoan(svc Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		loanID, err := common.ParseUUIDParam(c, "id")
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid loan ID", err, "Loan ID must be a valid UUID", fiber.StatusBadRequest)
		}
		var amount *money.Money
		if len(c.Body()) > 0 {
			input, err := common.BindAndValidate[ApproveLoanRequest](c)
			if input == nil {
				return err // error response already written
			}
			if input.Amount != "" {
				m, err := common.ParseAmount(input.Amount, input.Currency)
				if err != nil {
					return common.ProblemDetailsJSON(c, "Invalid amount", err)
				}
				amount = &m
			}
		}
		res, err := svc.Loans.ApproveLoan(c.Context(), loanID, amount)
		if err != nil {
			log.Errorf("Failed to approve loan %s: %v", loanID, err)
			return common.ProblemDetailsJSON(c, "Failed to approve loan", err)
		}
		message := "Loan approved"
		if !res.Changed {
			message = "Loan already approved"
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, message, common.WithWarning(fiber.Map{
			"loan":    res.Loan,
			"changed": res.Changed,
		}, res.Warning))
	}
}

// PostTransaction applies an administrative ledger entry.
// @Summary Post a transaction
// @Description Applies a signed entry of the given kind through the balance mutator.
// @Tags admin
// @Accept json
// @Produce json
// @Param number path string true "Account number"
// @Param request body PostingRequest true "Entry"
// @Success 201 {object} common.Response
// @Failure 400 {object} common.ProblemDetails
// @Failure 403 {object} common.ProblemDetails
// @Failure 404 {object} common.ProblemDetails
// @Failure 422 {object} common.ProblemDetails
// @Router /admin/accounts/{number}/transactions [post]
// @Security Bearer
func PostTransaction(svc Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := common.BindAndValidate[PostingRequest](c)
		if input == nil {
			return err // error response already written
		}
		kind, err := account.ParseKind(input.Kind)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid kind", err)
		}
		amount, err := common.ParseAmount(input.Amount, input.Currency)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid amount", err)
		}
		res, err := svc.Mutator.ApplyKind(c.Context(), c.Params("number"), amount, kind)
		if err != nil {
			log.Errorf("Admin posting failed: %v", err)
			return common.ProblemDetailsJSON(c, "Failed to post transaction", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusCreated, "Transaction posted", common.WithWarning(fiber.Map{
			"transaction": res.Transaction,
			"balance":     res.Balance,
		}, res.Warning))
	}
}

// Reconcile compares the stored balance of an account with its ledger.
// @Summary Reconcile an account
// @Tags admin
// @Produce json
// @Param number path string true "Account number"
// @Success 200 {object} common.Response
// @Failure 403 {object} common.ProblemDetails
// @Failure 404 {object} common.ProblemDetails
// @Router /admin/accounts/{number}/reconcile [get]
// @Security Bearer
func Reconcile(svc Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rec, err := svc.Reports.Reconcile(c.Context(), c.Params("number"))
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to reconcile", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Reconciliation complete", rec)
	}
}

// Report returns any account's statement.
// @Summary Account report (admin)
// @Tags admin
// @Produce json
// @Param number path string true "Account number"
// @Param start_date query string false "Start date (YYYY-MM-DD)"
// @Param end_date query string false "End date (YYYY-MM-DD)"
// @Success 200 {object} common.Response
// @Failure 400 {object} common.ProblemDetails
// @Failure 403 {object} common.ProblemDetails
// @Failure 404 {object} common.ProblemDetails
// @Router /admin/accounts/{number}/report [get]
// @Security Bearer
func Report(svc Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rng, err := reportsvc.ParseDateRange(c.Query("start_date"), c.Query("end_date"))
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid date range", err)
		}
		r, err := svc.Reports.GenerateReport(c.Context(), c.Params("number"), rng)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to generate report", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Report generated", r)
	}
}
