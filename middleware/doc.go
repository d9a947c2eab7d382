// Package middleware adapts the route guard to net/http for servers that
// render console pages.
//
// # Middleware
//
//   - [Navigation] checks each page request with [guard.Guard.Check] and
//     answers redirects with 302 Found.
//   - [RequirePermission] rejects requests with 403 when the operator lacks a
//     permission code.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into guard calls. Every decision is
// made by the guard or the permission checker.
//
// # What this package must NOT do
//
//   - Read or write credentials.
//   - Notify the operator.
package middleware
