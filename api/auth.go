package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/MrEthical07/goSession/identity"
	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/transport"
)

// Auth endpoint paths.
const (
	PathLogin       = "/auth/login/"
	PathRegister    = "/auth/register/"
	PathLogout      = "/auth/logout/"
	PathMe          = "/auth/me/"
	PathPermissions = "/auth/me/permissions/"
	PathRefresh     = "/auth/token/refresh/"
	PathProfile     = "/auth/user/"
	PathAvatar      = "/auth/me/avatar/"
)

// AuthBackend implements [session.Backend] over a doer that does not inject
// credentials. Envelopes are returned as received so the session can inspect
// the code itself.
type AuthBackend struct {
	doer        transport.Doer
	refreshPath string
}

var _ session.Backend = (*AuthBackend)(nil)

func NewAuthBackend(doer transport.Doer) *AuthBackend {
	return &AuthBackend{doer: doer, refreshPath: PathRefresh}
}

// WithRefreshPath posts token refreshes to path instead of [PathRefresh].
// The interceptor must be given the same path so a 401 from it is terminal.
func (b *AuthBackend) WithRefreshPath(path string) *AuthBackend {
	if path != "" {
		b.refreshPath = path
	}
	return b
}

func (b *AuthBackend) Login(ctx context.Context, identifier, secret string) (*transport.Envelope, error) {
	body := map[string]string{"email": identifier, "password": secret}
	return b.doer.Do(ctx, transport.NewRequest(http.MethodPost, PathLogin, body))
}

func (b *AuthBackend) Register(ctx context.Context, r session.Registration) (*transport.Envelope, error) {
	return b.doer.Do(ctx, transport.NewRequest(http.MethodPost, PathRegister, r))
}

func (b *AuthBackend) Logout(ctx context.Context, access, refresh string) (*transport.Envelope, error) {
	req := transport.NewRequest(http.MethodPost, PathLogout, map[string]string{"refresh": refresh})
	req.Bearer = access
	return b.doer.Do(ctx, req)
}

func (b *AuthBackend) Me(ctx context.Context, access string) (*transport.Envelope, error) {
	req := transport.NewRequest(http.MethodGet, PathMe, nil)
	req.Bearer = access
	return b.doer.Do(ctx, req)
}

func (b *AuthBackend) MyPermissions(ctx context.Context, access string) (*transport.Envelope, error) {
	req := transport.NewRequest(http.MethodGet, PathPermissions, nil)
	req.Bearer = access
	return b.doer.Do(ctx, req)
}

func (b *AuthBackend) RefreshToken(ctx context.Context, refresh string) (*transport.Envelope, error) {
	return b.doer.Do(ctx, transport.NewRequest(http.MethodPost, b.refreshPath, map[string]string{"refresh": refresh}))
}

// Account covers the signed-in operator's own profile.
type Account struct {
	doer transport.Doer
}

// Profile fetches /auth/user/.
func (a *Account) Profile(ctx context.Context) (*identity.User, error) {
	var raw json.RawMessage
	if err := call(ctx, a.doer, get(PathProfile, nil), &raw); err != nil {
		return nil, err
	}
	return identity.DecodeUser(raw)
}

// UpdateProfile patches the operator's own profile and returns the result.
func (a *Account) UpdateProfile(ctx context.Context, patch map[string]any) (*identity.User, error) {
	var raw json.RawMessage
	if err := call(ctx, a.doer, transport.NewRequest(http.MethodPatch, PathProfile, patch), &raw); err != nil {
		return nil, err
	}
	return identity.DecodeUser(raw)
}

func (a *Account) DeleteAvatar(ctx context.Context) error {
	return call(ctx, a.doer, transport.NewRequest(http.MethodDelete, PathAvatar, nil), nil)
}
