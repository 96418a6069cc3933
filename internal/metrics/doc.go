// Package metrics aggregates per-dependency call counters and latency
// histograms for the status API and CLI. Counters only ever grow; consumers
// read point-in-time snapshots.
package metrics
