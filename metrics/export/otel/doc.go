// Package otel publishes Engine metrics through OpenTelemetry observable
// instruments.
//
// [NewExporter] registers one Int64ObservableCounter per Engine counter and one
// Int64ObservableGauge per latency bucket. A single callback reads
// [lockana.Engine.MetricsSnapshot] on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate engine state.
package otel
