package user

import (
	"fmt"
	"time"

	"github.com/amirasaad/banking/pkg/domain"
	"github.com/amirasaad/banking/pkg/utils"
	"github.com/google/uuid"
)

var (
	// ErrUserNotFound is returned when a user cannot be found in the
	// repository.
	ErrUserNotFound = fmt.Errorf("user %w", domain.ErrNotFound)
	// ErrUserUnauthorized is returned when credentials do not match.
	ErrUserUnauthorized = fmt.Errorf("user %w", domain.ErrUnauthorized)
	// ErrInvalidEmail is returned for a malformed email address.
	ErrInvalidEmail = fmt.Errorf("%w: invalid email", domain.ErrValidation)
)

// Role controls access to administrative operations.
type Role string

// Roles.
const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// User represents a user in the system.
type User struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created"`
	UpdatedAt time.Time `json:"updated"`
}

// IsAdmin reports whether the user may run administrative operations.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// NewUser creates a new customer with a hashed password and current timestamps.
func NewUser(username, email, password string) (*User, error) {
	if username == "" {
		return nil, fmt.Errorf("%w: username cannot be empty", domain.ErrValidation)
	}
	if email == "" {
		return nil, fmt.Errorf("%w: email cannot be empty", domain.ErrValidation)
	}
	if !utils.IsEmail(email) {
		return nil, ErrInvalidEmail
	}
	if len(password) < 6 {
		return nil, fmt.Errorf("%w: password must be at least 6 characters", domain.ErrValidation)
	}
	hashedPassword, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &User{
		ID:        uuid.New(),
		Username:  username,
		Email:     email,
		Password:  hashedPassword,
		Role:      RoleCustomer,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// NewUserFromData creates a User from raw data (used for DB hydration).
func NewUserFromData(
	id uuid.UUID,
	username, email, password string,
	role Role,
	created, updated time.Time,
) *User {
	if role == "" {
		role = RoleCustomer
	}
	return &User{
		ID:        id,
		Username:  username,
		Email:     email,
		Password:  password,
		Role:      role,
		CreatedAt: created,
		UpdatedAt: updated,
	}
}
