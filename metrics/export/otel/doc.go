// Package otel publishes goSession metrics as OpenTelemetry observable
// instruments.
//
// [NewExporter] registers one Int64ObservableCounter per counter and one
// Int64ObservableGauge per latency bucket, all read by a single callback from
// [goSession.Client.MetricsSnapshot] on each collection. Sources that report
// refresh state also get the refresh in-flight and waiter gauges.
//
// # What this package must NOT do
//
//   - Own the MeterProvider; callers supply the Meter.
//   - Mutate client state.
package otel
