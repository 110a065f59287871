package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/amirasaad/banking/pkg/domain"
	"gorm.io/gorm"
)

// MapGormErrorToDomain converts GORM and driver errors to domain errors so
// that nothing above the infrastructure layer inspects database errors.
// Unknown errors are returned unchanged.
//
// Duplicate keys are only reported as gorm.ErrDuplicatedKey when the
// connection was opened with TranslateError enabled.
func MapGormErrorToDomain(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return domain.ErrAlreadyExists
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domain.ErrNotFound
	case errors.Is(err, driver.ErrBadConn),
		errors.Is(err, sql.ErrConnDone),
		errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return err
}

// WrapError wraps a GORM operation and automatically maps errors.
//
// Usage:
//
//	err := WrapError(func() error {
//	    return r.db.WithContext(ctx).Create(user).Error
//	})
func WrapError(op func() error) error {
	return MapGormErrorToDomain(op())
}

// notFound maps gorm.ErrRecordNotFound to a more specific sentinel.
func notFound(err, specific error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return specific
	}
	return MapGormErrorToDomain(err)
}
