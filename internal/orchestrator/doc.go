// Package orchestrator drives analysis jobs through the configured pipeline.
//
// A Coordinator polls the queue for pending jobs and runs each one through
// its stage groups in order. Stages within a group execute concurrently;
// groups execute sequentially. Every dependency call goes through the shared
// retry executor, so rate limits and circuit breakers apply uniformly no
// matter which stage makes the call.
//
// Required stage failures stop the pipeline and fail the job. Optional stage
// failures are recorded and the job continues, finishing as partial_failure
// when everything required still succeeded. Lifecycle transitions are
// published on the event bus.
package orchestrator
