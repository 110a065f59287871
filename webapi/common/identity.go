package common

import (
	"encoding/json"

	"github.com/amirasaad/banking/pkg/domain/user"
	"github.com/amirasaad/banking/pkg/money"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// UserKey is the fiber.Ctx local holding the verified *jwt.Token.
const UserKey = "user"

// UserIDResolver extracts the caller's id from a verified token.
type UserIDResolver interface {
	GetCurrentUserID(token *jwt.Token) (uuid.UUID, error)
}

// CurrentUserID returns the id of the authenticated caller.
func CurrentUserID(c *fiber.Ctx, resolver UserIDResolver) (uuid.UUID, error) {
	token, ok := c.Locals(UserKey).(*jwt.Token)
	if !ok {
		return uuid.Nil, user.ErrUserUnauthorized
	}
	return resolver.GetCurrentUserID(token)
}

// ParseAmount parses a request amount given as a JSON number or string.
// An empty currency means money.DefaultCurrency.
func ParseAmount(raw json.Number, currency string) (money.Money, error) {
	code := money.DefaultCurrency
	if currency != "" {
		code = money.Code(currency)
	}
	return money.Parse(raw.String(), code)
}

// ParseUUIDParam parses a path parameter as a UUID.
func ParseUUIDParam(c *fiber.Ctx, name string) (uuid.UUID, error) {
	return uuid.Parse(c.Params(name))
}
