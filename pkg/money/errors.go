package money

import "errors"

// Common money package errors
var (
	// ErrMismatchedCurrencies is returned when performing operations on money with
	// different currencies
	ErrMismatchedCurrencies = errors.New("mismatched currencies")

	// ErrInvalidCurrency is returned when a currency code is not a valid ISO 4217 code.
	ErrInvalidCurrency = errors.New("invalid currency code")

	// ErrInvalidRate is returned when converting with a non-positive rate.
	ErrInvalidRate = errors.New("conversion rate must be positive")
)
