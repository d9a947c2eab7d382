// Package session owns the console operator's credentials, profile, and
// authentication status.
//
// # State machine
//
// [Manager] moves between [StatusUnknown], [StatusInitializing],
// [StatusAuthenticated], [StatusUnauthenticated], and [StatusNetworkError].
// There is no terminal state. IsAuthenticated holds only when the status is
// Authenticated, an access token is held, and a profile is loaded.
//
// Credentials are a pair. Holding exactly one of the access and refresh tokens
// is corrupt, and [Manager.ValidateCredentials] clears both.
//
// # Architecture boundaries
//
// Only Manager methods mutate credentials and identity. Other packages read
// them through accessors: the transport interceptor through
// transport.Session, the permission evaluator through permission.Identity.
// Backend calls go through the [Backend] interface and never hold the lock.
//
// # What this package must NOT do
//
//   - Clear credentials on a network failure.
//   - Run two profile fetches for concurrent InitAuth calls.
//   - Panic or return raw transport errors from Login, Register, or Logout.
package session
