package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/amirasaad/banking/pkg/config"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testJwt = &config.Jwt{Secret: "test-secret", Expiry: time.Hour}

type roleChecker struct{}

func (roleChecker) IsAdmin(token *jwt.Token) bool {
	claims, _ := token.Claims.(jwt.MapClaims)
	return claims["role"] == "admin"
}

func sign(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func newApp() *fiber.App {
	app := fiber.New()
	app.Get("/", JwtProtected(testJwt), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	app.Get("/admin", JwtProtected(testJwt), AdminOnly(roleChecker{}), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func do(t *testing.T, app *fiber.App, path, token string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestJwtProtected(t *testing.T) {
	app := newApp()
	exp := time.Now().Add(time.Hour).Unix()

	assert.Equal(t, fiber.StatusBadRequest, do(t, app, "/", "").StatusCode)
	assert.Equal(t, fiber.StatusOK, do(t, app, "/", sign(t, testJwt.Secret, jwt.MapClaims{"exp": exp})).StatusCode)
	assert.Equal(t, fiber.StatusUnauthorized, do(t, app, "/", sign(t, "other", jwt.MapClaims{"exp": exp})).StatusCode)

	expired := sign(t, testJwt.Secret, jwt.MapClaims{"exp": time.Now().Add(-time.Minute).Unix()})
	resp := do(t, app, "/", expired)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "application/problem+json", resp.Header.Get("Content-Type"))
}

func TestAdminOnly(t *testing.T) {
	app := newApp()
	exp := time.Now().Add(time.Hour).Unix()

	customer := sign(t, testJwt.Secret, jwt.MapClaims{"role": "customer", "exp": exp})
	admin := sign(t, testJwt.Secret, jwt.MapClaims{"role": "admin", "exp": exp})
	assert.Equal(t, fiber.StatusForbidden, do(t, app, "/admin", customer).StatusCode)
	assert.Equal(t, fiber.StatusOK, do(t, app, "/admin", admin).StatusCode)
}

func TestJwtError_Malformed(t *testing.T) {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		return jwtError(c, errors.New("Missing or malformed JWT"))
	})
	resp := do(t, app, "/", "")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestJwtError_Invalid(t *testing.T) {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		return jwtError(c, errors.New("any other error"))
	})
	resp := do(t, app, "/", "")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
