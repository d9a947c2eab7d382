// Package internaldefs holds the metric names, help strings and bucket bounds
// shared by the exporters, so Prometheus and OTel publish identical series.
//
// # What this package must NOT do
//
//   - Import any exporter package.
//   - Perform I/O.
package internaldefs
