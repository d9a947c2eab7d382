package session

import (
	"context"

	"github.com/MrEthical07/goSession/transport"
)

// Credentials is a login attempt.
type Credentials struct {
	Identifier string
	Secret     string
}

// Registration is a sign-up request.
type Registration struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

// Backend is the set of auth endpoints the session drives. Calls that need a
// bearer take it explicitly.
type Backend interface {
	Login(ctx context.Context, identifier, secret string) (*transport.Envelope, error)
	Register(ctx context.Context, r Registration) (*transport.Envelope, error)
	Logout(ctx context.Context, access, refresh string) (*transport.Envelope, error)
	Me(ctx context.Context, access string) (*transport.Envelope, error)
	MyPermissions(ctx context.Context, access string) (*transport.Envelope, error)
	RefreshToken(ctx context.Context, refresh string) (*transport.Envelope, error)
}

// Result is the outcome of Login or Register. Message is already shown to the
// operator.
type Result struct {
	OK      bool
	Message string
	Err     error
}
