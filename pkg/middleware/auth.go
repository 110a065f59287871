package middleware

import (
	"errors"
	"strings"

	"github.com/amirasaad/banking/pkg/config"
	"github.com/amirasaad/banking/webapi/common"
	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// JwtProtected verifies the bearer token and stores it under common.UserKey.
func JwtProtected(cfg *config.Jwt) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey: jwtware.SigningKey{
			JWTAlg: jwtware.HS256,
			Key:    []byte(cfg.Secret),
		},
		ContextKey:   common.UserKey,
		ErrorHandler: jwtError,
	})
}

func jwtError(c *fiber.Ctx, err error) error {
	if errors.Is(err, jwtware.ErrJWTMissingOrMalformed) ||
		strings.EqualFold(err.Error(), jwtware.ErrJWTMissingOrMalformed.Error()) {
		return common.ProblemDetailsJSON(c, "Bad Request", err, "Missing or malformed JWT", fiber.StatusBadRequest)
	}
	return common.ProblemDetailsJSON(c, "Unauthorized", err, "Invalid or expired JWT", fiber.StatusUnauthorized)
}

// AdminChecker decides whether a verified token grants administrative access.
type AdminChecker interface {
	IsAdmin(token *jwt.Token) bool
}

// AdminOnly rejects requests whose token does not carry the admin role. It
// must run after JwtProtected.
func AdminOnly(checker AdminChecker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := c.Locals(common.UserKey).(*jwt.Token)
		if !ok {
			return common.ProblemDetailsJSON(c, "Unauthorized", nil, "missing user context", fiber.StatusUnauthorized)
		}
		if !checker.IsAdmin(token) {
			return common.ProblemDetailsJSON(c, "Forbidden", nil, "administrator role required", fiber.StatusForbidden)
		}
		return c.Next()
	}
}
