// Package webapi provides the HTTP API of the banking service.
// It is organized into sub-packages for different areas:
// - account: customer accounts, postings, transfers, reports and loans
// - admin: loan approval, administrative postings and reconciliation
// - auth: login
// - user: registration
package webapi

import (
	"errors"
	"strings"

	"github.com/amirasaad/banking/pkg/app"
	accountweb "github.com/amirasaad/banking/webapi/account"
	adminweb "github.com/amirasaad/banking/webapi/admin"
	authweb "github.com/amirasaad/banking/webapi/auth"
	"github.com/amirasaad/banking/webapi/common"
	userweb "github.com/amirasaad/banking/webapi/user"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
)

// SetupApp Initialize Fiber with custom configuration
func SetupApp(a *app.App) *fiber.App {
	fiberApp := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return common.ProblemDetailsJSON(c, fe.Message, err, fe.Code)
			}
			return common.ProblemDetailsJSON(c, "Internal Server Error", err)
		},
	})
	fiberApp.Get("/swagger/*", swagger.New(swagger.Config{
		TryItOutEnabled:      true,
		WithCredentials:      true,
		PersistAuthorization: true,
		OAuth2RedirectUrl:    "/auth/login",
	}))

	// Rate limit per client IP, honouring proxy headers
	fiberApp.Use(limiter.New(limiter.Config{
		Max:        a.Config.RateLimit.MaxRequests,
		Expiration: a.Config.RateLimit.Window,
		KeyGenerator: func(c *fiber.Ctx) string {
			if forwardedFor := c.Get("X-Forwarded-For"); forwardedFor != "" {
				// Take the first IP in the chain
				if commaIndex := strings.Index(forwardedFor, ","); commaIndex != -1 {
					return strings.TrimSpace(forwardedFor[:commaIndex])
				}
				return strings.TrimSpace(forwardedFor)
			}
			if realIP := c.Get("X-Real-IP"); realIP != "" {
				return realIP
			}
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return common.ProblemDetailsJSON(
				c,
				"Too Many Requests",
				errors.New("rate limit exceeded"),
				fiber.StatusTooManyRequests,
			)
		},
	}))
	fiberApp.Use(recover.New())
	fiberApp.Use(logger.New())

	// Health check endpoint
	fiberApp.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("Banking API is running!")
	})

	accountweb.Routes(fiberApp, accountweb.Services{
		Accounts:  a.AccountService,
		Transfers: a.TransferService,
		Loans:     a.LoanService,
		Reports:   a.ReportService,
		Auth:      a.AuthService,
	}, a.Config)
	adminweb.Routes(fiberApp, adminweb.Services{
		Mutator: a.Mutator,
		Loans:   a.LoanService,
		Reports: a.ReportService,
		Auth:    a.AuthService,
	}, a.Config)
	userweb.Routes(fiberApp, a.UserService, a.AuthService, a.Config)
	authweb.Routes(fiberApp, a.AuthService)
	return fiberApp
}
