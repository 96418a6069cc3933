package orchestrator

import (
	"context"
)

// DefaultCancelReason is recorded when no reason accompanies a cancellation.
const DefaultCancelReason = "cancel requested by user"

// CancelJob stops a job. Running jobs have their context cancelled and finish
// as cancelled once in-flight stage calls unwind; pending jobs are marked
// cancelled directly. Returns false when the job is already terminal or
// unknown.
func (c *Coordinator) CancelJob(ctx context.Context, jobID int64, reason string) (bool, error) {
	if reason == "" {
		reason = DefaultCancelReason
	}

	c.mu.Lock()
	handle, running := c.cancels[jobID]
	if running {
		handle.requested = true
		handle.reason = reason
	}
	c.mu.Unlock()

	if running {
		handle.cancel()
		return true, nil
	}
	return c.store.MarkCancelled(ctx, jobID, reason)
}
