// Package transport carries console requests to the vessel schedule backend.
//
// # Layers
//
//   - [HTTPDoer]: the base client. Builds the URL under the API prefix, encodes
//     JSON bodies, stamps X-Request-ID, normalises the {code, message, data}
//     envelope, and turns failures into [*Error].
//   - [Interceptor]: wraps any [Doer] with bearer attachment, single-flight
//     token refresh on 401, a FIFO wait queue for requests that hit 401 while a
//     refresh is in flight, and operator-facing failure messages.
//
// [Classify] sorts any error into network, auth, validation, or unknown.
//
// # Architecture boundaries
//
// The base doer holds no credentials; callers set [Request.Bearer]. The
// interceptor reads and refreshes credentials through the [Session] interface
// supplied at construction. The refresh flag and queue belong to one
// interceptor instance.
//
// # What this package must NOT do
//
//   - Persist or log token values.
//   - Refresh from inside a refresh (401 on the refresh endpoint is terminal).
//   - Retry a request more than once per 401.
package transport
