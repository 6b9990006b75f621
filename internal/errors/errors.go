package errors

import (
	"errors"
	"fmt"
)

// Common error types for the session authentication server
var (
	// Token errors
	ErrMalformedToken    = errors.New("malformed token")
	ErrInvalidSignature  = errors.New("invalid token signature")
	ErrTokenExpired      = errors.New("token expired")
	ErrMissingSigningKey = errors.New("signing key not configured")

	// Authentication errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidInput       = errors.New("invalid input")

	// Session errors
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionInvalidated = errors.New("session invalidated")

	// Infrastructure errors
	ErrStorageUnavailable = errors.New("storage unavailable")
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

// IsTokenError reports whether err is one of the token verification failures
func IsTokenError(err error) bool {
	return Is(err, ErrMalformedToken) || Is(err, ErrInvalidSignature) || Is(err, ErrTokenExpired)
}
