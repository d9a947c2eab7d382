// Package internal holds helpers private to goSession.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher plus Sink implementations)
//   - metrics: lock-free counters and latency histograms
//   - testserver: an in-process fake of the console backend for tests, the
//     example server and the load test
//
// # What this package must NOT do
//
//   - Export types that appear in the public goSession API.
//   - Be imported from outside the goSession module.
package internal
