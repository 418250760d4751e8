// Package metrics provides lock-free counters and a latency histogram.
//
// Counters live in cache-line-padded uint64 slots incremented with
// sync/atomic. The histogram uses 8 fixed buckets (<=5ms ... +Inf). Export to
// Prometheus and OpenTelemetry lives in metrics/export and reads [Snapshot].
package metrics
