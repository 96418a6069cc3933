package orchestrator

import (
	"context"

	"loom/internal/logging"
	"loom/internal/queue"
	"loom/internal/registry"
)

// StatusSummary represents lightweight orchestrator diagnostics.
type StatusSummary struct {
	Running      bool                 `json:"running"`
	LastError    string               `json:"last_error,omitempty"`
	LastJob      *queue.Job           `json:"last_job,omitempty"`
	JobStats     map[queue.Status]int `json:"job_stats"`
	Dependencies []registry.State     `json:"dependencies"`
}

// Status returns the latest orchestrator information.
func (c *Coordinator) Status(ctx context.Context) StatusSummary {
	c.mu.RLock()
	running := c.running
	lastErr := c.lastErr
	lastJob := c.lastJob
	c.mu.RUnlock()

	stats, err := c.store.Stats(ctx)
	if err != nil {
		c.logger.Warn("failed to read job stats", logging.Error(err))
	}

	summary := StatusSummary{
		Running:      running,
		JobStats:     stats,
		Dependencies: c.deps.Snapshot(),
	}
	if lastErr != nil {
		summary.LastError = lastErr.Error()
	}
	if lastJob != nil {
		cp := *lastJob
		summary.LastJob = &cp
	}
	return summary
}
