// Package identity talks to the Lively account API, which owns credentials, bearer tokens
// and verification secrets.
package identity

import (
	"errors"

	apperrors "github.com/jrsteele09/lively-auth/internal/errors"
)

// API paths, relative to the base URL
const (
	PathLogin              = "/api/account/login"
	PathRegister           = "/api/account/register"
	PathCurrentUser        = "/api/account"
	PathRefreshToken       = "/api/account/refreshToken"
	PathVerifyEmail        = "/api/account/verifyEmail"
	PathResendVerification = "/api/account/resendEmailVerification"
)

// ErrorResponse is the JSON body of every non 2xx response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// Error codes carried in ErrorResponse.Code
const (
	CodeInvalidCredentials = "invalid_credentials"
	CodeUnverified         = "unverified"
	CodeUserExists         = "user_exists"
	CodeUserNotFound       = "user_not_found"
	CodeTokenExpired       = "token_expired"
	CodeTokenUsed          = "token_used"
	CodeTokenUnknown       = "token_unknown"
	CodeUnauthorized       = "unauthorized"
	CodeTransport          = "transport"
)

var codeErrors = []struct {
	code string
	err  error
}{
	{CodeInvalidCredentials, apperrors.ErrInvalidCredentials},
	{CodeUnverified, apperrors.ErrUserUnverified},
	{CodeUserExists, apperrors.ErrUserExists},
	{CodeUserNotFound, apperrors.ErrUserNotFound},
	{CodeTokenExpired, apperrors.ErrTokenExpired},
	{CodeTokenUsed, apperrors.ErrTokenAlreadyUsed},
	{CodeTokenUnknown, apperrors.ErrTokenUnknown},
	{CodeUnauthorized, apperrors.ErrAuth},
	{CodeTransport, apperrors.ErrTransport},
}

// CodeFor returns the wire code of the first known sentinel in err's chain
func CodeFor(err error) string {
	for _, ce := range codeErrors {
		if errors.Is(err, ce.err) {
			return ce.code
		}
	}
	return ""
}

// ErrorFor maps a wire code back to its sentinel, or nil if the code is unknown
func ErrorFor(code string) error {
	for _, ce := range codeErrors {
		if ce.code == code {
			return ce.err
		}
	}
	return nil
}
