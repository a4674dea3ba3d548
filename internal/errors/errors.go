package errors

import (
	"errors"
	"fmt"
)

// Common error types for the goalkeeper server
var (
	// Provider errors
	ErrInvalidGrant        = errors.New("invalid grant")
	ErrProviderUnavailable = errors.New("identity provider unavailable")

	// Login flow errors
	ErrStateMismatch  = errors.New("state mismatch")
	ErrExchangeFailed = errors.New("authorization code exchange failed")

	// Store errors
	ErrNotFound = errors.New("not found")

	// Role errors
	ErrInvalidRole = errors.New("invalid role")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
