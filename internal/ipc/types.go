package ipc

import "loom/internal/api"

// Job mirrors the HTTP API job DTO for internal IPC callers.
type Job = api.Job

// DependencyView mirrors the HTTP API dependency DTO.
type DependencyView = api.DependencyView

// StartRequest triggers daemon startup.
type StartRequest struct{}

// StartResponse indicates whether the daemon was started.
type StartResponse struct {
	Started bool   `json:"started"`
	Message string `json:"message"`
}

// StopRequest stops the daemon.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse represents combined daemon/orchestrator status information.
type StatusResponse struct {
	Running      bool             `json:"running"`
	PID          int              `json:"pid"`
	JobStats     map[string]int   `json:"job_stats"`
	LastError    string           `json:"last_error"`
	LastJob      *Job             `json:"last_job"`
	LockPath     string           `json:"lock_path"`
	QueueDBPath  string           `json:"queue_db_path"`
	Dependencies []DependencyView `json:"dependencies"`
}

// SubmitRequest enqueues a video for analysis.
type SubmitRequest struct {
	VideoID   string `json:"video_id"`
	SourceURL string `json:"source_url"`
}

// SubmitResponse reports the enqueued (or already active) job.
type SubmitResponse struct {
	Job     Job  `json:"job"`
	Created bool `json:"created"`
}

// JobListRequest filters job listing by status.
type JobListRequest struct {
	Statuses []string `json:"statuses"`
}

// JobListResponse contains job entries.
type JobListResponse struct {
	Jobs []Job `json:"jobs"`
}

// JobDescribeRequest fetches a single job by id.
type JobDescribeRequest struct {
	ID int64 `json:"id"`
}

// JobDescribeResponse contains one job with its stage results.
type JobDescribeResponse struct {
	Job Job `json:"job"`
}

// JobCancelRequest asks the daemon to cancel a pending or running job.
type JobCancelRequest struct {
	ID     int64  `json:"id"`
	Reason string `json:"reason"`
}

// JobCancelResponse reports whether the cancellation took effect.
type JobCancelResponse struct {
	Cancelled bool `json:"cancelled"`
}

// JobClearRequest removes all jobs.
type JobClearRequest struct{}

// JobClearResponse reports removed row count.
type JobClearResponse struct {
	Removed int64 `json:"removed"`
}

// JobClearCompletedRequest removes completed and cancelled jobs.
type JobClearCompletedRequest struct{}

// JobClearCompletedResponse reports removed row count.
type JobClearCompletedResponse struct {
	Removed int64 `json:"removed"`
}

// JobClearFailedRequest removes failed and partially failed jobs.
type JobClearFailedRequest struct{}

// JobClearFailedResponse reports removed row count.
type JobClearFailedResponse struct {
	Removed int64 `json:"removed"`
}

// JobRetryRequest retries failed jobs, optionally a subset by id.
type JobRetryRequest struct {
	IDs []int64 `json:"ids"`
}

// JobRetryResponse reports requeued row count.
type JobRetryResponse struct {
	Updated int64 `json:"updated"`
}

// JobHealthRequest fetches aggregate queue diagnostics.
type JobHealthRequest struct{}

// JobHealthResponse carries job counts per lifecycle state.
type JobHealthResponse struct {
	Total          int `json:"total"`
	Pending        int `json:"pending"`
	Running        int `json:"running"`
	Completed      int `json:"completed"`
	PartialFailure int `json:"partial_failure"`
	Failed         int `json:"failed"`
	Cancelled      int `json:"cancelled"`
}

// MetricsRequest fetches per-dependency resilience metrics.
type MetricsRequest struct{}

// MetricsResponse carries per-dependency resilience metrics.
type MetricsResponse struct {
	Dependencies []DependencyView `json:"dependencies"`
}

// LogTailRequest reads lines from the daemon log.
type LogTailRequest struct {
	Offset     int64 `json:"offset"`
	Limit      int   `json:"limit"`
	Follow     bool  `json:"follow"`
	WaitMillis int64 `json:"wait_millis"`
}

// LogTailResponse returns log lines and the next read offset.
type LogTailResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}

// TestNotificationRequest triggers a test notification.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification delivery.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
