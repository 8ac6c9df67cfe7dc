package errors

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by the session core, the verification issuer and the demo API
var (
	// Token decoding errors
	ErrMalformedToken = errors.New("malformed token")

	// Authentication errors
	ErrAuth               = errors.New("authentication failed")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserUnverified     = errors.New("user is not verified")
	ErrUserExists         = errors.New("user already exists")

	// Verification redemption errors
	ErrTokenExpired     = errors.New("verification token expired")
	ErrTokenAlreadyUsed = errors.New("verification token already used")
	ErrTokenUnknown     = errors.New("verification token unknown")

	// Notification errors
	ErrTransport = errors.New("notification transport failed")

	// Session errors
	ErrSessionChanged = errors.New("session changed")
	ErrNoSession      = errors.New("no session")
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
