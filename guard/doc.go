// Package guard decides whether the operator may open a console page.
//
// A [Guard] owns a compiled route table. Every navigation is checked against
// the session lifecycle and the permission snapshot:
//
//  1. A protected page opened while the session is still unresolved waits for
//     InitAuth. An unreachable backend is tolerated when both a token and a
//     profile are held.
//  2. A session already in the network error state is tolerated on the same
//     condition.
//  3. Any other unauthenticated session is sent to the login page.
//  4. A page that names a permission code sends an under-privileged operator
//     to the landing page without a message.
//  5. Guest pages (login, register) send an authenticated operator to the
//     landing page.
//
// # Architecture boundaries
//
// The guard reads session state through [Session] and permissions through
// [Checker]. The only state it changes is the one InitAuth changes.
//
// # What this package must NOT do
//
//   - Notify the operator on permission denial.
//   - Clear credentials or refresh tokens itself.
package guard
