// Package operations binds the operation names used in pipeline configuration
// to concrete dependency calls. Each operation reads and writes the shared
// per-job state, so later stages can consume what earlier stages produced.
package operations
