package session

// Status is the authentication lifecycle state.
type Status uint8

const (
	StatusUnknown Status = iota
	StatusInitializing
	StatusAuthenticated
	StatusUnauthenticated
	// StatusNetworkError keeps credentials while the backend is unreachable.
	StatusNetworkError
)

func (s Status) String() string {
	switch s {
	case StatusInitializing:
		return "initializing"
	case StatusAuthenticated:
		return "authenticated"
	case StatusUnauthenticated:
		return "unauthenticated"
	case StatusNetworkError:
		return "network_error"
	default:
		return "unknown"
	}
}

// MarshalText renders the status name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
