// Package otel publishes blogAuth metrics as OpenTelemetry observable
// instruments.
//
// Callers own the MeterProvider and pass a Meter to [NewExporter]. Counters
// map to Int64ObservableCounter; the latency histogram is exposed as one
// cumulative Int64ObservableGauge per bucket plus a count gauge.
package otel
