// Package prometheus exposes goSession metrics through client_golang.
//
// [Collector] implements prometheus.Collector over a [goSession.Client]
// snapshot, so callers register it with their own registry. [Handler] is a
// shortcut that serves a private registry holding only the collector.
// Counter names are gosession_*_total; the single histogram is
// gosession_request_latency_seconds. gosession_refresh_in_flight and
// gosession_refresh_waiters are gauges read from [goSession.Client.Refreshing].
//
// # What this package must NOT do
//
//   - Register with the global Prometheus registry.
//   - Mutate client state.
package prometheus
