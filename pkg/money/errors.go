package money

import "errors"

// Common money package errors
var (
	// ErrInvalidAmount is returned when an amount is malformed or carries more
	// fractional digits than its currency allows.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidCurrency is returned for a malformed currency code.
	ErrInvalidCurrency = errors.New("invalid currency code")

	// ErrMismatchedCurrencies is returned when performing operations on money with
	// different currencies
	ErrMismatchedCurrencies = errors.New("mismatched currencies")
)
