package user_test

import (
	"testing"
	"time"

	"github.com/amirasaad/banking/pkg/domain"
	"github.com/amirasaad/banking/pkg/domain/user"
	"github.com/amirasaad/banking/pkg/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestMain(m *testing.M) {
	utils.PasswordCost = bcrypt.MinCost
	m.Run()
}

func TestNewUser(t *testing.T) {
	u, err := user.NewUser("alice", "alice@example.com", "s3cret!")
	require.NoError(t, err)
	assert.Equal(t, user.RoleCustomer, u.Role)
	assert.False(t, u.IsAdmin())
	assert.NotEqual(t, "s3cret!", u.Password)
	assert.True(t, utils.CheckPasswordHash("s3cret!", u.Password))
}

func TestNewUser_Invalid(t *testing.T) {
	tests := []struct {
		name, username, email, password string
	}{
		{"empty username", "", "a@example.com", "password"},
		{"empty email", "alice", "", "password"},
		{"bad email", "alice", "not-an-email", "password"},
		{"short password", "alice", "a@example.com", "123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := user.NewUser(tt.username, tt.email, tt.password)
			assert.Error(t, err)
		})
	}

	_, err := user.NewUser("alice", "nope", "password")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestErrorsWrapDomain(t *testing.T) {
	assert.ErrorIs(t, user.ErrUserNotFound, domain.ErrNotFound)
	assert.ErrorIs(t, user.ErrUserUnauthorized, domain.ErrUnauthorized)
}

func TestNewUserFromData_DefaultsRole(t *testing.T) {
	now := time.Now().UTC()
	u := user.NewUserFromData(uuid.New(), "bob", "bob@example.com", "hash", "", now, now)
	assert.Equal(t, user.RoleCustomer, u.Role)
}
