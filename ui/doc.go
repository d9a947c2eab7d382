// Package ui defines the two presentation collaborators the session core talks to:
// a [Notifier] that shows short messages to the operator and a [Navigator] that moves
// the console to another page.
//
// # Architecture boundaries
//
// The session, transport and guard packages only ever call these interfaces. Rendering,
// toasts, terminal output and page routing belong to the embedding application.
//
// # What this package must NOT do
//
//   - Import any other goSession package.
//   - Block: implementations are called from request paths.
package ui
