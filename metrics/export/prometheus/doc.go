// Package prometheus exposes Engine counters through a client_golang Collector.
//
// Counter names are lockana_*_total; the single histogram is
// lockana_validate_latency_seconds. Register the [Collector] in any registry or
// mount [Collector.Handler] directly.
//
// # What this package must NOT do
//
//   - Register metrics in the global Prometheus registry.
//   - Mutate engine state.
package prometheus
