package session

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/MrEthical07/goSession/transport"
)

const (
	msgLoginOK          = "Login successful"
	msgRegisterOK       = "Registration successful, please sign in"
	msgSignedOut        = "Signed out"
	msgReloginAdvisory  = "Incomplete sign-in data detected, please sign in again to keep your account safe"
	msgBadCredentials   = "Incorrect email or password, please try again"
	msgInvalidLogin     = "Invalid email or password"
	msgAccountDisabled  = "This account has been disabled, please contact an administrator"
	msgTooManyAttempts  = "Too many login attempts, please try again later"
	msgServerError      = "Server error, please try again later"
	msgConnectivity     = "Network connection failed, please check your connection"
	msgLoginRetry       = "Login failed, please try again"
	msgLoginRejected    = "Login failed"
	msgRegisterInvalid  = "Registration details are invalid, please check your input"
	msgAlreadyExists    = "This email is already registered, please use another one"
	msgRegisterFormat   = "Input format is invalid"
	msgRegisterRetry    = "Registration failed, please try again"
	msgRegisterRejected = "Registration failed"
	msgCredentialSave   = "Could not save sign-in data"
)

// loginFailure maps a failed login call to the operator-facing message.
func loginFailure(err error) string {
	status := transport.StatusOf(err)
	msg := transport.MessageOf(err)
	switch {
	case status == transport.CodeNetwork:
		return msgConnectivity
	case status == http.StatusBadRequest:
		return orDefault(msg, msgInvalidLogin)
	case status == http.StatusUnauthorized:
		return msgBadCredentials
	case status == http.StatusForbidden:
		return msgAccountDisabled
	case status == http.StatusTooManyRequests:
		return msgTooManyAttempts
	case status >= 500:
		return msgServerError
	case status > 0:
		return orDefault(msg, fmt.Sprintf("Login failed (code %d)", status))
	case transport.IsNetworkError(err):
		return msgConnectivity
	case errors.Is(err, ErrMissingToken), errors.Is(err, ErrMissingUser), errors.Is(err, ErrInconsistentState):
		return err.Error()
	}
	return orDefault(msg, msgLoginRetry)
}

// registerFailure maps a failed registration call to the operator-facing message.
func registerFailure(err error) string {
	status := transport.StatusOf(err)
	msg := transport.MessageOf(err)
	switch {
	case status == transport.CodeNetwork:
		return msgConnectivity
	case status == http.StatusBadRequest:
		return orDefault(msg, msgRegisterInvalid)
	case status == http.StatusConflict:
		return msgAlreadyExists
	case status == http.StatusUnprocessableEntity:
		return orDefault(msg, msgRegisterFormat)
	case status >= 500:
		return msgServerError
	case status > 0:
		return orDefault(msg, fmt.Sprintf("Registration failed (code %d)", status))
	case transport.IsNetworkError(err):
		return msgConnectivity
	}
	return orDefault(msg, msgRegisterRetry)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
