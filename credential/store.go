package credential

import (
	"context"
	"errors"
	"fmt"
)

const (
	// KeyAccessToken is the storage key of the short-lived bearer token.
	KeyAccessToken = "token"
	// KeyRefreshToken is the storage key of the long-lived refresh token.
	KeyRefreshToken = "refreshToken"
)

// ErrStoreUnavailable wraps backend failures of a [Store].
var ErrStoreUnavailable = errors.New("credential store unavailable")

// Store is durable key-value storage for credentials. Get returns "" with a nil
// error for missing keys.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

// Pair is the access/refresh token pair.
type Pair struct {
	Access  string
	Refresh string
}

// Empty reports whether neither token is held.
func (p Pair) Empty() bool { return p.Access == "" && p.Refresh == "" }

// Complete reports whether both tokens are held or neither is.
func (p Pair) Complete() bool { return (p.Access == "") == (p.Refresh == "") }

// Corrupt reports whether exactly one token is held.
func (p Pair) Corrupt() bool { return !p.Complete() }

// Load reads the pair from s.
func Load(ctx context.Context, s Store) (Pair, error) {
	access, err := s.Get(ctx, KeyAccessToken)
	if err != nil {
		return Pair{}, fmt.Errorf("load %s: %w", KeyAccessToken, err)
	}
	refresh, err := s.Get(ctx, KeyRefreshToken)
	if err != nil {
		return Pair{}, fmt.Errorf("load %s: %w", KeyRefreshToken, err)
	}
	return Pair{Access: access, Refresh: refresh}, nil
}

// Save writes both tokens. An empty token deletes its key.
func Save(ctx context.Context, s Store, p Pair) error {
	if err := put(ctx, s, KeyAccessToken, p.Access); err != nil {
		return err
	}
	return put(ctx, s, KeyRefreshToken, p.Refresh)
}

// SaveAccess replaces only the access token.
func SaveAccess(ctx context.Context, s Store, token string) error {
	return put(ctx, s, KeyAccessToken, token)
}

// Clear removes both keys.
func Clear(ctx context.Context, s Store) error {
	if err := s.Delete(ctx, KeyAccessToken, KeyRefreshToken); err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}
	return nil
}

func put(ctx context.Context, s Store, key, value string) error {
	var err error
	if value == "" {
		err = s.Delete(ctx, key)
	} else {
		err = s.Set(ctx, key, value)
	}
	if err != nil {
		return fmt.Errorf("store %s: %w", key, err)
	}
	return nil
}
