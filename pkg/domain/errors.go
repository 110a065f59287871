package domain

import (
	"errors"

	"github.com/amirasaad/banking/pkg/money"
)

// Common domain errors
var (
	// ErrNotFound is returned when a requested resource is not found
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when trying to create a resource that already exists
	ErrAlreadyExists = errors.New("resource already exists")
	// ErrValidation is returned when input validation fails
	ErrValidation = errors.New("validation error")
	// ErrUnauthorized is returned when a user is not authorized to perform an action
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is returned when a user is not allowed to perform an action
	ErrForbidden = errors.New("forbidden")
)

// Ledger rejections. These are user-visible and never retried.
var (
	// ErrInvalidAmount is returned for non-positive or malformed amounts.
	ErrInvalidAmount = money.ErrInvalidAmount
	// ErrInsufficientFunds is returned when a debit would take a balance below zero.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrLoanLimitExceeded is returned when an account already holds the maximum
	// number of approved, unpaid loans.
	ErrLoanLimitExceeded = errors.New("loan limit exceeded")
	// ErrLoanNotApproved is returned when paying a loan that has not been approved.
	ErrLoanNotApproved = errors.New("loan not approved")
	// ErrLoanAlreadyPaid is returned when paying a loan twice.
	ErrLoanAlreadyPaid = errors.New("loan already paid")
	// ErrInvalidDateRange is returned when a report range ends before it starts.
	ErrInvalidDateRange = errors.New("invalid date range")
)

// Infrastructure outcomes.
var (
	// ErrStoreUnavailable is transient: nothing was written and the caller may retry.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrConcurrentModification is returned by the store when a versioned write
	// lost a race. The ledger retries it internally.
	ErrConcurrentModification = errors.New("concurrent modification")
	// ErrDeliveryFailed marks a notification that could not be delivered. It is
	// only ever reported as a warning next to a successful mutation.
	ErrDeliveryFailed = errors.New("notification delivery failed")
)
