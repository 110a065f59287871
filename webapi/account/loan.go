package account

import (
	"github.com/amirasaad/banking/pkg/service/loan"
	"github.com/amirasaad/banking/webapi/common"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

func loanData(res loan.Result) fiber.Map {
	return common.WithWarning(fiber.Map{
		"transaction": res.Transaction,
		"loan":        res.Loan,
		"changed":     res.Changed,
	}, res.Warning)
}

// ListLoans returns the loans of one of the caller's accounts.
// @Summary List loans
// @Tags loans
// @Produce json
// @Param number path string true "Account number"
// @Success 200 {object} common.Response
// @Failure 401 {object} common.ProblemDetails
// @Failure 403 {object} common.ProblemDetails
// @Failure 404 {object} common.ProblemDetails
// @Router /account/{number}/loans [get]
// @Security Bearer
func ListLoans(svc Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := common.CurrentUserID(c, svc.Auth)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err)
		}
		a, err := svc.Accounts.GetAccount(c.Context(), userID, c.Params("number"))
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to list loans", err)
		}
		loans, err := svc.Loans.ListLoans(c.Context(), a.Number)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to list loans", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Loans fetched", loans)
	}
}

// RequestLoan records a loan request for administrative approval.
// @Summary Request a loan
// @Description Creates a loan request. No money moves until an administrator approves it.
// @Tags loans
// @Accept json
// @Produce json
// @Param number path string true "Account number"
// @Param request body AmountRequest true "Loan amount"
// @Success 201 {object} common.Response
// @Failure 400 {object} common.ProblemDetails
// @Failure 401 {object} common.ProblemDetails
// @Failure 403 {object} common.ProblemDetails
// @Failure 422 {object} common.ProblemDetails "Loan limit exceeded"
// @Router /account/{number}/loans [post]
// @Security Bearer
func RequestLoan(svc Services) fiber.Handler {
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
		a, err := svc.Accounts.GetAccount(c.Context(), userID, c.Params("number"))
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to request loan", err)
		}
		res, err := svc.Loans.RequestLoan(c.Context(), a.Number, amount)
		if err != nil {
			log.Errorf("Failed to request loan: %v", err)
			return common.ProblemDetailsJSON(c, "Failed to request loan", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusCreated, "Loan requested", loanData(res))
	}
}

// PayLoan repays an approved loan in full.
// @Summary Pay a loan
// @Tags loans
// @Produce json
// @Param number path string true "Account number"
// @Param id path string true "Loan ID"
// @Success 200 {object} common.Response
// @Failure 400 {object} common.ProblemDetails
// @Failure 401 {object} common.ProblemDetails
// @Failure 403 {object} common.ProblemDetails
// @Failure 404 {object} common.ProblemDetails
// @Failure 422 {object} common.ProblemDetails "Loan not approved, already paid or insufficient funds"
// @Router /account/{number}/loans/{id}/pay [post]
// @Security Bearer
func PayLoan(svc Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := common.CurrentUserID(c, svc.Auth)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err)
		}
		loanID, err := common.ParseUUIDParam(c, "id")
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid loan ID", err, "Loan ID must be a valid UUID", fiber.StatusBadRequest)
		}
		a, err := svc.Accounts.GetAccount(c.Context(), userID, c.Params("number"))
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to pay loan", err)
		}
		res, err := svc.Loans.PayLoanAs(c.Context(), userID, a.Number, loanID)
		if err != nil {
			log.Errorf("Failed to pay loan: %v", err)
			return common.ProblemDetailsJSON(c, "Failed to pay loan", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Loan paid", loanData(res))
	}
}
