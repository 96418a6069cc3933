package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a job.
type Status string

const (
	StatusPending        Status = "pending"
	StatusRunning        Status = "running"
	StatusCompleted      Status = "completed"
	StatusPartialFailure Status = "partial_failure"
	StatusFailed         Status = "failed"
	StatusCancelled      Status = "cancelled"
)

// DaemonStopReason is the note recorded when running jobs are returned to
// pending because the daemon shut down.
const DaemonStopReason = "Daemon stopped"

// StaleReclaimReason is the note recorded when a running job is reclaimed
// after its heartbeat expired.
const StaleReclaimReason = "Reclaimed after stale heartbeat"

var allStatuses = []Status{
	StatusPending,
	StatusRunning,
	StatusCompleted,
	StatusPartialFailure,
	StatusFailed,
	StatusCancelled,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var terminalStatuses = map[Status]struct{}{
	StatusCompleted:      {},
	StatusPartialFailure: {},
	StatusFailed:         {},
	StatusCancelled:      {},
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status reflects a finished job.
func IsTerminal(status Status) bool {
	_, ok := terminalStatuses[status]
	return ok
}

// Job represents one analysis request persisted in SQLite.
type Job struct {
	ID            int64
	VideoID       string
	SourceURL     string
	Title         string
	Status        Status
	CurrentStage  string
	ErrorMessage  string
	ArtifactPath  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	StartedAt     *time.Time
	FinishedAt    *time.Time
	LastHeartbeat *time.Time
}

// IsActive reports whether the job still needs (or is receiving) work.
func (j Job) IsActive() bool {
	return j.Status == StatusPending || j.Status == StatusRunning
}

// SetFailed marks the job as failed with the given error message and clears
// the heartbeat so the monitor stops watching it.
func (j *Job) SetFailed(message string) {
	j.Status = StatusFailed
	j.ErrorMessage = message
	j.LastHeartbeat = nil
}

// StageStatus represents the outcome of one pipeline stage within a job.
type StageStatus string

const (
	StageCompleted StageStatus = "completed"
	StageFailed    StageStatus = "failed"
	StageSkipped   StageStatus = "skipped"
)

// StageResult records what a single stage produced for a job. One row exists
// per (job, stage); re-running a job overwrites its previous results.
type StageResult struct {
	ID           int64
	JobID        int64
	Stage        string
	Dependency   string
	Status       StageStatus
	Required     bool
	Attempts     int
	FailureKind  string
	ErrorMessage string
	OutputJSON   string
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Duration returns the wall-clock time the stage spent executing.
func (r StageResult) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// HealthSummary describes aggregated job counts per key lifecycle states.
type HealthSummary struct {
	Total          int
	Pending        int
	Running        int
	Completed      int
	PartialFailure int
	Failed         int
	Cancelled      int
}
