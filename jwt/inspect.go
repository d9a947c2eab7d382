package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoExpiry is returned when a token carries no exp claim.
var ErrNoExpiry = errors.New("token has no expiry")

// ExpiresAt returns the exp claim of token without verifying its signature.
func ExpiresAt(token string) (time.Time, error) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, err
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, ErrNoExpiry
	}
	return claims.ExpiresAt.Time, nil
}

// ExpiresWithin reports whether token expires before now+leeway. Opaque or
// malformed tokens report false so the caller falls back to the 401 path.
func ExpiresWithin(token string, leeway time.Duration, now time.Time) bool {
	if token == "" || leeway <= 0 {
		return false
	}
	exp, err := ExpiresAt(token)
	if err != nil {
		return false
	}
	return !exp.After(now.Add(leeway))
}
