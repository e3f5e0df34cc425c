// Package internaldefs holds the metric names and bucket boundaries shared by
// the exporters, so the Prometheus and OTel outputs always agree.
//
// # What this package must NOT do
//
//   - Import any exporter package.
//   - Perform I/O.
package internaldefs
