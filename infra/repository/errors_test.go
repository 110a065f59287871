package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	"github.com/amirasaad/banking/pkg/domain"
	"github.com/amirasaad/banking/pkg/domain/account"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestMapGormErrorToDomain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    error
		expected error
	}{
		{
			name:     "nil error returns nil",
			input:    nil,
			expected: nil,
		},
		{
			name:     "duplicate key error maps to ErrAlreadyExists",
			input:    gorm.ErrDuplicatedKey,
			expected: domain.ErrAlreadyExists,
		},
		{
			name:     "record not found error maps to ErrNotFound",
			input:    gorm.ErrRecordNotFound,
			expected: domain.ErrNotFound,
		},
		{
			name:     "wrapped duplicate key error maps correctly",
			input:    errors.Join(errors.New("outer error"), gorm.ErrDuplicatedKey),
			expected: domain.ErrAlreadyExists,
		},
		{
			name:     "bad connection is transient",
			input:    fmt.Errorf("query: %w", driver.ErrBadConn),
			expected: domain.ErrStoreUnavailable,
		},
		{
			name:     "closed connection is transient",
			input:    sql.ErrConnDone,
			expected: domain.ErrStoreUnavailable,
		},
		{
			name:     "deadline is transient",
			input:    context.DeadlineExceeded,
			expected: domain.ErrStoreUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			result := MapGormErrorToDomain(tt.input)
			if tt.expected == nil {
				require.NoError(t, result)
				return
			}
			assert.ErrorIs(t, result, tt.expected)
		})
	}
}

func TestMapGormErrorToDomain_Unknown(t *testing.T) {
	t.Parallel()
	original := errors.New("some other error")
	assert.Same(t, original, MapGormErrorToDomain(original))
}

func TestWrapError(t *testing.T) {
	t.Parallel()
	require.NoError(t, WrapError(func() error { return nil }))
	assert.ErrorIs(t, WrapError(func() error { return gorm.ErrRecordNotFound }), domain.ErrNotFound)
}

func TestNotFound(t *testing.T) {
	t.Parallel()
	err := notFound(gorm.ErrRecordNotFound, account.ErrAccountNotFound)
	assert.ErrorIs(t, err, account.ErrAccountNotFound)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, notFound(gorm.ErrDuplicatedKey, account.ErrAccountNotFound), domain.ErrAlreadyExists)
}
