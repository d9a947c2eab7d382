// Package goSession is the client-side session and permission core of the
// vessel-schedule admin console.
//
// A [Client] is assembled by [Builder]. It owns one session state machine
// (package session), a refreshing transport that resource calls go through
// (package transport), a permission evaluator (package permission), a route
// guard (package guard) and the REST wrappers (package api). Client methods
// are safe to call from multiple goroutines after [Builder.Build].
//
// # Architecture boundaries
//
// goSession is the wiring layer. It exposes [Client], [Builder], [Config],
// metrics and audit types. The state machine, refresh queue and route table
// live in their own packages and never import this one.
//
// # What this package must NOT do
//
//   - Hold session state of its own; the session manager is the single owner.
//   - Log token values. Only presence is logged.
//   - Import any sub-package that re-imports goSession (no import cycles).
package goSession
