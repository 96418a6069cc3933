// Package services defines shared utilities consumed by the pipeline
// orchestrator and the external API clients.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, stage names, dependency names, and
//     correlation identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that classify remote
//     failures into retryable and permanent categories.
//
// Use these helpers when wiring new stage operations so error handling and
// observability stay uniform across the pipeline.
package services
