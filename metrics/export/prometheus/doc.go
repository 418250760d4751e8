// Package prometheus exposes blogAuth metrics through client_golang.
//
// [NewExporter] registers a [Collector] on a private registry and returns a
// handler for mounting at /metrics. Counters are named blogauth_*_total and
// verification latency is the blogauth_verify_latency_seconds histogram.
// Nothing is registered on the global default registry.
package prometheus
