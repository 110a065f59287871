// Package user provides business logic for user management operations.
package user

import (
	"context"
	"log/slog"

	"github.com/amirasaad/banking/pkg/domain/user"
	"github.com/amirasaad/banking/pkg/repository"
	"github.com/google/uuid"
)

// Service provides business logic for user registration and lookup.
type Service struct {
	uow    repository.UnitOfWork
	logger *slog.Logger
}

// New creates a new Service with a UnitOfWork and logger.
func New(
	uow repository.UnitOfWork,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		uow:    uow,
		logger: logger.With("service", "user"),
	}
}

// Register creates a customer with a bcrypt-hashed password. Duplicate
// usernames or emails fail with domain.ErrAlreadyExists.
func (s *Service) Register(
	ctx context.Context,
	username, email, password string,
) (u *user.User, err error) {
	log := s.logger.With("username", username)
	u, err = user.NewUser(username, email, password)
	if err != nil {
		log.Debug("Register rejected", "error", err)
		return nil, err
	}
	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.UserRepository()
		if err != nil {
			return err
		}
		return repo.Create(ctx, u)
	})
	if err != nil {
		log.Error("Register failed", "error", err)
		return nil, err
	}
	log.Info("User registered", "userID", u.ID)
	return u, nil
}

// GetUser retrieves a user by ID.
func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*user.User, error) {
	repo, err := s.uow.UserRepository()
	if err != nil {
		return nil, err
	}
	return repo.Get(ctx, id)
}

// Promote grants the administrator role to the user named by id, username
// or email.
func (s *Service) Promote(ctx context.Context, identity string) (u *user.User, err error) {
	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.UserRepository()
		if err != nil {
			return err
		}
		u, err = lookup(ctx, repo, identity)
		if err != nil {
			return err
		}
		u.Role = user.RoleAdmin
		return repo.Update(ctx, u)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("User promoted to admin", "userID", u.ID)
	return u, nil
}

func lookup(ctx context.Context, repo repository.UserRepository, identity string) (*user.User, error) {
	if id, err := uuid.Parse(identity); err == nil {
		return repo.Get(ctx, id)
	}
	if u, err := repo.GetByUsername(ctx, identity); err == nil {
		return u, nil
	}
	return repo.GetByEmail(ctx, identity)
}
