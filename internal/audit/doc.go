// Package audit relays session lifecycle records to a sink without blocking
// the caller.
//
// # Components
//
//   - [Sink] consumes events. Channel, JSON-lines and no-op sinks are provided.
//   - [Dispatcher] buffers events and delivers them from one goroutine, dropping
//     or blocking when the buffer is full. Metadata keys naming a credential
//     are masked by [Redact] before queueing.
//   - [Event] is the record: time, source, type, operator, outcome, metadata.
//
// # Architecture boundaries
//
// This package owns buffering and delivery. Which events exist and when they
// fire is decided by the session, transport and guard packages, and the root
// client translates their notifications into [Event] values.
//
// # What this package must NOT do
//
//   - Filter events by business rules.
//   - Import goSession or any sibling package.
//   - Record token or password values.
package audit
