package session

import "errors"

var (
	// ErrMissingToken means a login response lacked the access or refresh token.
	ErrMissingToken = errors.New("login response is missing token information")
	// ErrMissingUser means a login response lacked the user profile.
	ErrMissingUser = errors.New("login response is missing user information")
	// ErrInconsistentState means login succeeded but the session did not
	// become authenticated.
	ErrInconsistentState = errors.New("authentication state inconsistent after login")
	// ErrRejected wraps a non-success envelope code.
	ErrRejected = errors.New("request rejected")
)
