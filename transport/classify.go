package transport

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"
)

// Class buckets an error by how session state should react to it.
type Class uint8

const (
	// ClassUnknown is handled conservatively.
	ClassUnknown Class = iota
	// ClassNetwork is recoverable and preserves credentials.
	ClassNetwork
	// ClassAuth is destructive and clears credentials.
	ClassAuth
	// ClassValidation stays local to the failing call.
	ClassValidation
)

func (c Class) String() string {
	switch c {
	case ClassNetwork:
		return "network"
	case ClassAuth:
		return "auth"
	case ClassValidation:
		return "validation"
	default:
		return "unknown"
	}
}

var authPhrases = []string{
	"token expired",
	"invalid token",
	"authentication failed",
	"unauthorized",
}

var networkPhrases = []string{
	"timeout",
	"network error",
	"connection refused",
	"no such host",
}

// Classify sorts err. Network markers win over status codes so a timeout
// wrapped in a 401 rejection is still recoverable.
func Classify(err error) Class {
	if err == nil {
		return ClassUnknown
	}
	if IsNetworkError(err) {
		return ClassNetwork
	}
	if IsAuthError(err) {
		return ClassAuth
	}
	switch StatusOf(err) {
	case 400, 422:
		return ClassValidation
	}
	return ClassUnknown
}

// IsNetworkError reports whether err means the backend was not reached.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrOffline) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var te *Error
	if errors.As(err, &te) && te.Code == CodeNetwork {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	return containsAny(strings.ToLower(err.Error()), networkPhrases)
}

// IsAuthError reports whether err means the held credentials were rejected.
func IsAuthError(err error) bool {
	if err == nil {
		return false
	}
	switch StatusOf(err) {
	case 401, 403:
		return true
	}
	return containsAny(strings.ToLower(MessageOf(err)), authPhrases)
}

func containsAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
