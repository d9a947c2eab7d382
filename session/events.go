package session

import "context"

// EventKind names a session lifecycle event.
type EventKind string

const (
	EventLogin              EventKind = "login"
	EventLoginFailed        EventKind = "login_failed"
	EventRegister           EventKind = "register"
	EventLogout             EventKind = "logout"
	EventRefresh            EventKind = "refresh"
	EventRefreshFailed      EventKind = "refresh_failed"
	EventCorruptCredentials EventKind = "corrupt_credentials"
	EventInit               EventKind = "init"
	EventNetworkError       EventKind = "network_error"
	EventPermissionsLoaded  EventKind = "permissions_loaded"
	EventCleared            EventKind = "credentials_cleared"
)

// Event is one lifecycle notification. User is the operator's e-mail when known.
type Event struct {
	Kind    EventKind
	User    string
	Success bool
	Err     error
	Meta    map[string]string
}

// Observer receives lifecycle events. Implementations must not block.
type Observer interface {
	Observe(ctx context.Context, e Event)
}

// ObserverFunc adapts a function to [Observer].
type ObserverFunc func(ctx context.Context, e Event)

// Observe calls f.
func (f ObserverFunc) Observe(ctx context.Context, e Event) { f(ctx, e) }

type nopObserver struct{}

func (nopObserver) Observe(context.Context, Event) {}
