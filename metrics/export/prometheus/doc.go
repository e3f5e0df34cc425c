// Package prometheus exposes goSession metrics through client_golang.
//
// [NewPrometheusExporter] reads from a [goSession.Client] and serves its
// counters and the renewal latency histogram from a private registry.
// Counter names follow gosession_*_total; the histogram is
// gosession_refresh_latency_seconds. [Collector] can be registered on an
// application registry directly.
//
// # What this package must NOT do
//
//   - Register metrics in the global Prometheus registry.
//   - Mutate client state.
package prometheus
