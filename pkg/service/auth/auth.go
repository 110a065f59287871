package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/amirasaad/banking/pkg/config"
	"github.com/amirasaad/banking/pkg/domain"
	"github.com/amirasaad/banking/pkg/domain/user"
	"github.com/amirasaad/banking/pkg/repository"
	"github.com/amirasaad/banking/pkg/utils"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type contextKey string

const userContextKey contextKey = "user"

// dummyHash is compared against when the identity is unknown so a missing
// user costs the same as a wrong password.
const dummyHash = "$2a$10$7zFqzDbD3RrlkMTczbXG9OWZ0FLOXjIxXzSZ.QZxkVXjXcx7QZQiC"

// Strategy authenticates users and identifies them on later requests.
type Strategy interface {
	Login(ctx context.Context, identity, password string) (*user.User, error)
	GetCurrentUserID(ctx context.Context) (uuid.UUID, error)
	GenerateToken(ctx context.Context, u *user.User) (string, error)
}

type Service struct {
	uow      repository.UnitOfWork
	strategy Strategy
	logger   *slog.Logger
}

func New(
	uow repository.UnitOfWork,
	strategy Strategy,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{uow: uow, strategy: strategy, logger: logger.With("service", "auth")}
}

func NewWithBasic(
	uow repository.UnitOfWork,
	logger *slog.Logger,
) *Service {
	return New(uow, NewBasicAuthStrategy(uow, logger), logger)
}

func NewWithJWT(
	uow repository.UnitOfWork,
	cfg *config.Jwt,
	logger *slog.Logger,
) *Service {
	return New(uow, NewJWTStrategy(uow, cfg, logger), logger)
}

func (s *Service) Login(
	ctx context.Context,
	identity, password string,
) (*user.User, error) {
	log := s.logger.With("identity", identity)
	u, err := s.strategy.Login(ctx, identity, password)
	if err != nil {
		log.Warn("Login failed", "error", err)
		return nil, err
	}
	log.Info("Login successful", "userID", u.ID)
	return u, nil
}

func (s *Service) GenerateToken(
	ctx context.Context,
	u *user.User,
) (string, error) {
	token, err := s.strategy.GenerateToken(ctx, u)
	if err != nil {
		s.logger.Error("GenerateToken failed", "userID", u.ID, "error", err)
		return "", err
	}
	return token, nil
}

// GetCurrentUserID extracts the user id from a verified token.
func (s *Service) GetCurrentUserID(token *jwt.Token) (uuid.UUID, error) {
	return s.strategy.GetCurrentUserID(context.WithValue(context.Background(), userContextKey, token))
}

// IsAdmin reports whether a verified token carries the admin role.
func (s *Service) IsAdmin(token *jwt.Token) bool {
	claims, ok := claimsOf(token)
	if !ok {
		return false
	}
	role, _ := claims["role"].(string)
	return user.Role(role) == user.RoleAdmin
}

func claimsOf(token *jwt.Token) (jwt.MapClaims, bool) {
	if token == nil {
		return nil, false
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	return claims, ok
}

// JWTStrategy implements Strategy with HS256 tokens.
type JWTStrategy struct {
	uow    repository.UnitOfWork
	cfg    *config.Jwt
	logger *slog.Logger
	now    func() time.Time
}

func NewJWTStrategy(
	uow repository.UnitOfWork,
	cfg *config.Jwt,
	logger *slog.Logger,
) *JWTStrategy {
	if logger == nil {
		logger = slog.Default()
	}
	return &JWTStrategy{uow: uow, cfg: cfg, logger: logger, now: time.Now}
}

func (s *JWTStrategy) GenerateToken(
	ctx context.Context,
	u *user.User,
) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  u.ID.String(),
		"username": u.Username,
		"email":    u.Email,
		"role":     string(u.Role),
		"exp":      s.now().Add(s.cfg.Expiry).Unix(),
	})
	return token.SignedString([]byte(s.cfg.Secret))
}

func (s *JWTStrategy) Login(
	ctx context.Context,
	identity, password string,
) (*user.User, error) {
	return verifyPassword(ctx, s.uow, identity, password)
}

func (s *JWTStrategy) GetCurrentUserID(
	ctx context.Context,
) (uuid.UUID, error) {
	token, _ := ctx.Value(userContextKey).(*jwt.Token)
	claims, ok := claimsOf(token)
	if !ok {
		return uuid.Nil, user.ErrUserUnauthorized
	}
	raw, ok := claims["user_id"].(string)
	if !ok {
		return uuid.Nil, user.ErrUserUnauthorized
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, user.ErrUserUnauthorized
	}
	return id, nil
}

// ParseToken verifies a signed token with the configured secret.
func (s *JWTStrategy) ParseToken(raw string) (*jwt.Token, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		return []byte(s.cfg.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, errors.Join(user.ErrUserUnauthorized, err)
	}
	return token, nil
}

// BasicAuthStrategy implements Strategy for the CLI: password check only, no tokens.
type BasicAuthStrategy struct {
	uow    repository.UnitOfWork
	logger *slog.Logger
}

func NewBasicAuthStrategy(
	uow repository.UnitOfWork,
	logger *slog.Logger,
) *BasicAuthStrategy {
	if logger == nil {
		logger = slog.Default()
	}
	return &BasicAuthStrategy{uow: uow, logger: logger}
}

func (s *BasicAuthStrategy) Login(
	ctx context.Context,
	identity, password string,
) (*user.User, error) {
	return verifyPassword(ctx, s.uow, identity, password)
}

func (s *BasicAuthStrategy) GetCurrentUserID(context.Context) (uuid.UUID, error) {
	return uuid.Nil, user.ErrUserUnauthorized
}

func (s *BasicAuthStrategy) GenerateToken(context.Context, *user.User) (string, error) {
	return "", nil
}

func verifyPassword(
	ctx context.Context,
	uow repository.UnitOfWork,
	identity, password string,
) (*user.User, error) {
	repo, err := uow.UserRepository()
	if err != nil {
		return nil, err
	}
	var u *user.User
	if utils.IsEmail(identity) {
		u, err = repo.GetByEmail(ctx, identity)
	} else {
		u, err = repo.GetByUsername(ctx, identity)
	}
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			_ = utils.CheckPasswordHash(password, dummyHash)
			return nil, user.ErrUserUnauthorized
		}
		return nil, err
	}
	if !utils.CheckPasswordHash(password, u.Password) {
		return nil, user.ErrUserUnauthorized
	}
	return u, nil
}
