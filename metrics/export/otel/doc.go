// Package otel publishes goSession counters and the renewal latency histogram
// as OpenTelemetry observable instruments.
//
// [NewOTelExporter] registers one Int64ObservableCounter per counter, and per
// histogram a bucket gauge carrying an le attribute plus a count gauge. A
// single callback reads [goSession.Client.MetricsSnapshot] on each collection.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate client state.
package otel
