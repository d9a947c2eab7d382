package transport

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrRefreshFailed wraps rejections caused by a failed token refresh.
	ErrRefreshFailed = errors.New("token refresh failed")
	// ErrNotSignedIn is returned when a 401 arrives and no token is held.
	ErrNotSignedIn = errors.New("not signed in")
	// ErrOffline marks a failure observed while connectivity is known to be down.
	ErrOffline = errors.New("offline")
)

// Error is the normalised rejection for a failed call. Code is the HTTP status,
// or -1 when no response was received.
type Error struct {
	Code    int
	Message string
	Data    json.RawMessage
	Path    string
	Err     error
}

// CodeNetwork is the Code of an Error for which no response arrived.
const CodeNetwork = -1

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (%d): %s: %v", e.Path, e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s (%d): %s", e.Path, e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// StatusOf returns the Code of the first [*Error] in err's chain, or 0.
func StatusOf(err error) int {
	var te *Error
	if errors.As(err, &te) {
		return te.Code
	}
	return 0
}

// MessageOf returns the user-facing message carried by err.
func MessageOf(err error) string {
	var te *Error
	if errors.As(err, &te) {
		return te.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
