// Package api wraps the vessel-schedule backend's REST endpoints.
//
// Every wrapper sends through a [transport.Doer]. Resource wrappers are meant
// to run behind a [transport.Interceptor] so they pick up the current bearer
// and recover from expired access tokens. [AuthBackend] is the exception: it
// carries tokens explicitly and talks to the undecorated doer, because the
// session manager it serves is what the interceptor asks for fresh tokens.
//
// # Architecture boundaries
//
// Wrappers translate between Go values and the {code, message, data}
// envelope. They never look at session state, never notify the operator, and
// never retry; those concerns live in transport and session.
package api
