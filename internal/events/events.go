package events

import (
	"time"

	"loom/internal/queue"
)

// Type identifies the kind of lifecycle event.
type Type string

const (
	TypeJobStarted     Type = "job_started"
	TypeJobFinished    Type = "job_finished"
	TypeJobCancelled   Type = "job_cancelled"
	TypeStageStarted   Type = "stage_started"
	TypeStageFinished  Type = "stage_finished"
	TypeBreakerChanged Type = "breaker_changed"
)

// Event is one lifecycle notification. Fields are populated according to the
// event type; zero values mean "not applicable".
type Event struct {
	Type    Type      `json:"type"`
	At      time.Time `json:"at"`
	JobID   int64     `json:"job_id,omitempty"`
	VideoID string    `json:"video_id,omitempty"`

	// Job events.
	JobStatus queue.Status `json:"job_status,omitempty"`

	// Stage events.
	Stage       string            `json:"stage,omitempty"`
	StageStatus queue.StageStatus `json:"stage_status,omitempty"`
	Attempts    int               `json:"attempts,omitempty"`

	// Stage and breaker events.
	Dependency string `json:"dependency,omitempty"`

	// Breaker events.
	FromState string `json:"from_state,omitempty"`
	ToState   string `json:"to_state,omitempty"`

	Detail string `json:"detail,omitempty"`
}

// JobStarted builds the event emitted when a job leaves pending.
func JobStarted(job *queue.Job) Event {
	return Event{
		Type:      TypeJobStarted,
		At:        time.Now().UTC(),
		JobID:     job.ID,
		VideoID:   job.VideoID,
		JobStatus: queue.StatusRunning,
	}
}

// JobFinished builds the event emitted when a job reaches a terminal status.
func JobFinished(job *queue.Job) Event {
	return Event{
		Type:      TypeJobFinished,
		At:        time.Now().UTC(),
		JobID:     job.ID,
		VideoID:   job.VideoID,
		JobStatus: job.Status,
		Detail:    job.ErrorMessage,
	}
}

// JobCancelled builds the event emitted when a cancellation takes effect.
func JobCancelled(job *queue.Job, reason string) Event {
	return Event{
		Type:      TypeJobCancelled,
		At:        time.Now().UTC(),
		JobID:     job.ID,
		VideoID:   job.VideoID,
		JobStatus: queue.StatusCancelled,
		Detail:    reason,
	}
}

// StageStarted builds the event emitted when a stage begins executing.
func StageStarted(job *queue.Job, stage, dependency string) Event {
	return Event{
		Type:       TypeStageStarted,
		At:         time.Now().UTC(),
		JobID:      job.ID,
		VideoID:    job.VideoID,
		Stage:      stage,
		Dependency: dependency,
	}
}

// StageFinished builds the event emitted when a stage completes, fails, or is
// skipped.
func StageFinished(job *queue.Job, result *queue.StageResult) Event {
	return Event{
		Type:        TypeStageFinished,
		At:          time.Now().UTC(),
		JobID:       job.ID,
		VideoID:     job.VideoID,
		Stage:       result.Stage,
		StageStatus: result.Status,
		Attempts:    result.Attempts,
		Dependency:  result.Dependency,
		Detail:      result.ErrorMessage,
	}
}

// BreakerChanged builds the event emitted on a circuit state transition.
func BreakerChanged(dependency, from, to string) Event {
	return Event{
		Type:       TypeBreakerChanged,
		At:         time.Now().UTC(),
		Dependency: dependency,
		FromState:  from,
		ToState:    to,
	}
}
