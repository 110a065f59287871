package repository

import (
	"context"

	"github.com/amirasaad/banking/pkg/domain/user"
	"github.com/amirasaad/banking/pkg/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a user repository bound to db.
func NewUserRepository(db *gorm.DB) repository.UserRepository {
	return &userRepository{db: db}
}

// Create implements repository.UserRepository.
func (u *userRepository) Create(ctx context.Context, usr *user.User) error {
	m := mapUserToModel(usr)
	return WrapError(func() error {
		return u.db.WithContext(ctx).Create(&m).Error
	})
}

// Update implements repository.UserRepository.
func (u *userRepository) Update(ctx context.Context, usr *user.User) error {
	m := mapUserToModel(usr)
	return WrapError(func() error {
		return u.db.WithContext(ctx).Save(&m).Error
	})
}

// Get implements repository.UserRepository.
func (u *userRepository) Get(ctx context.Context, id uuid.UUID) (*user.User, error) {
	return u.first(ctx, "id = ?", id)
}

// GetByEmail implements repository.UserRepository.
func (u *userRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return u.first(ctx, "email = ?", email)
}

// GetByUsername implements repository.UserRepository.
func (u *userRepository) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	return u.first(ctx, "username = ?", username)
}

func (u *userRepository) first(ctx context.Context, query string, arg any) (*user.User, error) {
	var m User
	if err := u.db.WithContext(ctx).Where(query, arg).First(&m).Error; err != nil {
		return nil, notFound(err, user.ErrUserNotFound)
	}
	return user.NewUserFromData(
		m.ID, m.Username, m.Email, m.Password, user.Role(m.Role),
		m.CreatedAt.UTC(), m.UpdatedAt.UTC(),
	), nil
}

func mapUserToModel(usr *user.User) User {
	return User{
		ID:        usr.ID,
		Username:  usr.Username,
		Email:     usr.Email,
		Password:  usr.Password,
		Role:      string(usr.Role),
		CreatedAt: usr.CreatedAt,
		UpdatedAt: usr.UpdatedAt,
	}
}
