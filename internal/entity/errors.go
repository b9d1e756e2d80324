package entity

import "errors"

// Sentinel errors for the business-rule taxonomy. Services wrap these with
// context via fmt.Errorf("...: %w", ...); the HTTP layer maps them to status
// codes with errors.Is.
var (
	// ErrValidation covers missing or malformed fields and bad enum values.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound covers missing products, orders, users, and notifications.
	ErrNotFound = errors.New("not found")

	// ErrAccessDenied covers non-owner and non-admin access.
	ErrAccessDenied = errors.New("access denied")

	// ErrEmailTaken is returned when registering with an existing email.
	ErrEmailTaken = errors.New("email already registered")

	// ErrInsufficientStock is returned when a requested quantity exceeds the
	// available stock of a product.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrInvalidCredentials is returned on a failed login.
	ErrInvalidCredentials = errors.New("invalid email or password")
)
