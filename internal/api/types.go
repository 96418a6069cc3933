package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Job describes an analysis job in a transport-friendly format.
type Job struct {
	ID           int64         `json:"id"`
	VideoID      string        `json:"videoId"`
	SourceURL    string        `json:"sourceUrl,omitempty"`
	Title        string        `json:"title,omitempty"`
	Status       string        `json:"status"`
	CurrentStage string        `json:"currentStage,omitempty"`
	ErrorMessage string        `json:"errorMessage,omitempty"`
	ArtifactPath string        `json:"artifactPath,omitempty"`
	CreatedAt    string        `json:"createdAt,omitempty"`
	UpdatedAt    string        `json:"updatedAt,omitempty"`
	StartedAt    string        `json:"startedAt,omitempty"`
	FinishedAt   string        `json:"finishedAt,omitempty"`
	Stages       []StageResult `json:"stages,omitempty"`
}

// StageResult describes one stage outcome within a job.
type StageResult struct {
	Stage        string  `json:"stage"`
	Dependency   string  `json:"dependency"`
	Status       string  `json:"status"`
	Required     bool    `json:"required"`
	Attempts     int     `json:"attempts"`
	FailureKind  string  `json:"failureKind,omitempty"`
	ErrorMessage string  `json:"errorMessage,omitempty"`
	Output       string  `json:"output,omitempty"`
	DurationMS   float64 `json:"durationMs"`
}

// OrchestratorStatus summarizes coordinator execution state.
type OrchestratorStatus struct {
	Running      bool             `json:"running"`
	JobStats     map[string]int   `json:"jobStats"`
	LastError    string           `json:"lastError,omitempty"`
	LastJob      *Job             `json:"lastJob,omitempty"`
	Dependencies []DependencyView `json:"dependencies"`
}

// DependencyView captures one dependency's resilience state.
type DependencyView struct {
	Name         string            `json:"name"`
	BreakerState string            `json:"breakerState"`
	Failures     int               `json:"consecutiveFailures"`
	Tokens       float64           `json:"tokens"`
	Burst        float64           `json:"burst"`
	Metrics      DependencyMetrics `json:"metrics"`
}

// DependencyMetrics reports call counters for one dependency.
type DependencyMetrics struct {
	Attempts     uint64          `json:"attempts"`
	Successes    uint64          `json:"successes"`
	Failures     uint64          `json:"failures"`
	CircuitOpen  uint64          `json:"circuitOpenRejections"`
	RateLimited  uint64          `json:"rateLimitedRejections"`
	AvgLatencyMS float64         `json:"avgLatencyMs"`
	Latency      []LatencyBucket `json:"latencyBuckets,omitempty"`
}

// LatencyBucket is one histogram cell. UpperMS of zero marks the overflow
// bucket.
type LatencyBucket struct {
	UpperMS int64  `json:"upperMs"`
	Count   uint64 `json:"count"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	QueueDBPath  string             `json:"queueDbPath"`
	LockFilePath string             `json:"lockFilePath"`
	Orchestrator OrchestratorStatus `json:"orchestrator"`
}

// SubmitRequest asks the daemon to enqueue a video for analysis.
type SubmitRequest struct {
	VideoID   string `json:"videoId"`
	SourceURL string `json:"sourceUrl,omitempty"`
}

// JobListResponse wraps a collection of jobs for API responses.
type JobListResponse struct {
	Jobs []Job `json:"jobs"`
}

// JobResponse wraps a single job.
type JobResponse struct {
	Job Job `json:"job"`
}

// JobStatsResponse provides a normalized job stats payload.
type JobStatsResponse struct {
	Counts map[string]int `json:"counts"`
}

// MetricsResponse carries per-dependency call metrics.
type MetricsResponse struct {
	Dependencies []DependencyView `json:"dependencies"`
}
