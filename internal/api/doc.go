// Package api defines wire-format types and converters for the IPC and HTTP
// API layer. It translates internal queue and orchestrator models into
// transport-friendly DTOs so consumers never couple to internal types.
//
// DTOs use camelCase JSON tags for JavaScript/TypeScript consumers. Internal
// enums (queue.Status, breaker states) are exposed as lowercase strings.
// Timestamps use RFC3339 with milliseconds.
package api
