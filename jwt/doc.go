// Package jwt reads and issues the access tokens exchanged with the vessel
// schedule backend.
//
// The console never trusts a token it holds: [ExpiresAt] and [ExpiresWithin]
// read the unverified exp claim only to decide whether to refresh ahead of a
// 401. [Signer] issues and verifies tokens for the in-module fake backend and
// for local test rigs.
//
// # Architecture boundaries
//
// The package has no knowledge of sessions, credential stores, or transport.
//
// # What this package must NOT do
//
//   - Treat an unverified claim as an authorization decision.
//   - Log token material.
package jwt
