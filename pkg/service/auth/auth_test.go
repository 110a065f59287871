package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/amirasaad/banking/pkg/config"
	"github.com/amirasaad/banking/pkg/domain"
	"github.com/amirasaad/banking/pkg/service/auth"
	"github.com/amirasaad/banking/pkg/testutils"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jwtConfig() *config.Jwt {
	return &config.Jwt{Secret: "test-secret", Expiry: time.Hour}
}

func TestJWTLoginAndToken(t *testing.T) {
	ctx := context.Background()
	uow, _ := testutils.NewTestUoW(t)
	admin := testutils.CreateAdmin(t, uow)
	strategy := auth.NewJWTStrategy(uow, jwtConfig(), nil)
	svc := auth.New(uow, strategy, nil)

	for _, identity := range []string{admin.Username, admin.Email} {
		u, err := svc.Login(ctx, identity, testutils.DefaultPassword)
		require.NoError(t, err)
		assert.Equal(t, admin.ID, u.ID)
	}

	raw, err := svc.GenerateToken(ctx, admin)
	require.NoError(t, err)

	token, err := strategy.ParseToken(raw)
	require.NoError(t, err)
	id, err := svc.GetCurrentUserID(token)
	require.NoError(t, err)
	assert.Equal(t, admin.ID, id)
	assert.True(t, svc.IsAdmin(token))

	claims := token.Claims.(jwt.MapClaims)
	assert.Equal(t, admin.Username, claims["username"])
	assert.Equal(t, admin.Email, claims["email"])
	assert.NotNil(t, claims["exp"])
}

func TestJWTLogin_Rejects(t *testing.T) {
	ctx := context.Background()
	uow, _ := testutils.NewTestUoW(t)
	u := testutils.CreateUser(t, uow)
	svc := auth.NewWithJWT(uow, jwtConfig(), nil)

	_, err := svc.Login(ctx, u.Username, "wrong-password")
	require.ErrorIs(t, err, domain.ErrUnauthorized)
	_, err = svc.Login(ctx, "ghost", testutils.DefaultPassword)
	require.ErrorIs(t, err, domain.ErrUnauthorized)
	_, err = svc.Login(ctx, "ghost@example.com", testutils.DefaultPassword)
	require.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestCustomerTokenIsNotAdmin(t *testing.T) {
	ctx := context.Background()
	uow, _ := testutils.NewTestUoW(t)
	u := testutils.CreateUser(t, uow)
	strategy := auth.NewJWTStrategy(uow, jwtConfig(), nil)
	svc := auth.New(uow, strategy, nil)

	raw, err := svc.GenerateToken(ctx, u)
	require.NoError(t, err)
	token, err := strategy.ParseToken(raw)
	require.NoError(t, err)
	assert.False(t, svc.IsAdmin(token))
	assert.False(t, svc.IsAdmin(nil))

	_, err = svc.GetCurrentUserID(nil)
	require.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestParseToken_Rejects(t *testing.T) {
	uow, _ := testutils.NewTestUoW(t)
	strategy := auth.NewJWTStrategy(uow, jwtConfig(), nil)

	other := auth.NewJWTStrategy(uow, &config.Jwt{Secret: "other", Expiry: time.Hour}, nil)
	u := testutils.CreateUser(t, uow)
	raw, err := other.GenerateToken(context.Background(), u)
	require.NoError(t, err)
	_, err = strategy.ParseToken(raw)
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	expired := auth.NewJWTStrategy(uow, &config.Jwt{Secret: "test-secret", Expiry: -time.Minute}, nil)
	raw, err = expired.GenerateToken(context.Background(), u)
	require.NoError(t, err)
	_, err = strategy.ParseToken(raw)
	require.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestBasicAuth(t *testing.T) {
	ctx := context.Background()
	uow, _ := testutils.NewTestUoW(t)
	u := testutils.CreateUser(t, uow)
	svc := auth.NewWithBasic(uow, nil)

	got, err := svc.Login(ctx, u.Username, testutils.DefaultPassword)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = svc.Login(ctx, u.Username, "nope")
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	token, err := svc.GenerateToken(ctx, u)
	require.NoError(t, err)
	assert.Empty(t, token)
}
