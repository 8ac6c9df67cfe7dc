package server

import "github.com/jrsteele09/lively-auth/identity"

// Route paths. Account routes are shared with the HTTP client in package identity.
const (
	RouteHealth = "/health"

	RouteLogin              = identity.PathLogin
	RouteRegister           = identity.PathRegister
	RouteCurrentUser        = identity.PathCurrentUser
	RouteRefreshToken       = identity.PathRefreshToken
	RouteVerifyEmail        = identity.PathVerifyEmail
	RouteResendVerification = identity.PathResendVerification

	// preflight for every account route
	RouteAccountPreflight = "/api/account/"
)
