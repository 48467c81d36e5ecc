package domain

import "errors"

// Common domain errors
var (
	// ErrNotFound is returned when a requested resource is not found
	ErrNotFound = errors.New("resource not found")
	// ErrAlreadyExists is returned when trying to create a resource that already exists
	ErrAlreadyExists = errors.New("resource already exists")
	// ErrValidation is returned when input validation fails: missing legs,
	// non-positive amounts, out of range ordinals, childless branches.
	ErrValidation = errors.New("validation error")
	// ErrInvalidAccountOperation is returned for illegal account tree edits.
	ErrInvalidAccountOperation = errors.New("invalid account operation")
	// ErrAutomaticMovement is returned when an automatic movement is edited or deleted directly.
	ErrAutomaticMovement = errors.New("automatic movements cannot be modified directly")
	// ErrCurrencyResolution is returned when no exchange rate can be resolved.
	ErrCurrencyResolution = errors.New("currency resolution failed")
	// ErrDriftDetected is reported by maintenance when stored snapshots differ from the ledger.
	ErrDriftDetected = errors.New("drift detected")
)
