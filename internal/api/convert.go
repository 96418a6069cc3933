package api

import (
	"time"

	"loom/internal/metrics"
	"loom/internal/orchestrator"
	"loom/internal/queue"
	"loom/internal/registry"
)

// FromJob converts a queue job into its API representation.
func FromJob(job *queue.Job) Job {
	if job == nil {
		return Job{}
	}
	return Job{
		ID:           job.ID,
		VideoID:      job.VideoID,
		SourceURL:    job.SourceURL,
		Title:        job.Title,
		Status:       string(job.Status),
		CurrentStage: job.CurrentStage,
		ErrorMessage: job.ErrorMessage,
		ArtifactPath: job.ArtifactPath,
		CreatedAt:    formatTime(job.CreatedAt),
		UpdatedAt:    formatTime(job.UpdatedAt),
		StartedAt:    formatTimePtr(job.StartedAt),
		FinishedAt:   formatTimePtr(job.FinishedAt),
	}
}

// FromJobs converts a slice of queue jobs.
func FromJobs(jobs []*queue.Job) []Job {
	out := make([]Job, 0, len(jobs))
	for _, job := range jobs {
		if job == nil {
			continue
		}
		out = append(out, FromJob(job))
	}
	return out
}

// FromStageResult converts one persisted stage outcome.
func FromStageResult(result *queue.StageResult) StageResult {
	if result == nil {
		return StageResult{}
	}
	return StageResult{
		Stage:        result.Stage,
		Dependency:   result.Dependency,
		Status:       string(result.Status),
		Required:     result.Required,
		Attempts:     result.Attempts,
		FailureKind:  result.FailureKind,
		ErrorMessage: result.ErrorMessage,
		Output:       result.OutputJSON,
		DurationMS:   durationMS(result.Duration()),
	}
}

// FromStageResults converts a slice of stage outcomes.
func FromStageResults(results []*queue.StageResult) []StageResult {
	out := make([]StageResult, 0, len(results))
	for _, result := range results {
		if result == nil {
			continue
		}
		out = append(out, FromStageResult(result))
	}
	return out
}

// FromDependencyState converts a registry dependency view.
func FromDependencyState(state registry.State) DependencyView {
	return DependencyView{
		Name:         state.Name,
		BreakerState: state.BreakerState,
		Failures:     state.Failures,
		Tokens:       state.Tokens,
		Burst:        state.Burst,
		Metrics:      fromDependencyMetrics(state.Metrics),
	}
}

// FromDependencyStates converts a slice of registry dependency views.
func FromDependencyStates(states []registry.State) []DependencyView {
	out := make([]DependencyView, 0, len(states))
	for _, state := range states {
		out = append(out, FromDependencyState(state))
	}
	return out
}

// FromStatusSummary converts the coordinator status into its API form.
func FromStatusSummary(summary orchestrator.StatusSummary) OrchestratorStatus {
	status := OrchestratorStatus{
		Running:      summary.Running,
		LastError:    summary.LastError,
		JobStats:     normalizeJobStats(summary.JobStats),
		Dependencies: FromDependencyStates(summary.Dependencies),
	}
	if summary.LastJob != nil {
		job := FromJob(summary.LastJob)
		status.LastJob = &job
	}
	return status
}

// normalizeJobStats produces a stats map that includes every known status,
// so API consumers see zero counts instead of missing keys.
func normalizeJobStats(stats map[queue.Status]int) map[string]int {
	out := make(map[string]int, len(queue.AllStatuses()))
	for _, status := range queue.AllStatuses() {
		out[string(status)] = stats[status]
	}
	return out
}

func fromDependencyMetrics(snap metrics.DependencySnapshot) DependencyMetrics {
	view := DependencyMetrics{
		Attempts:     snap.Attempts,
		Successes:    snap.Successes,
		Failures:     snap.Failures,
		CircuitOpen:  snap.CircuitOpen,
		RateLimited:  snap.RateLimited,
		AvgLatencyMS: durationMS(snap.AvgLatency),
	}
	if len(snap.Latency) > 0 {
		view.Latency = make([]LatencyBucket, len(snap.Latency))
		for i, bucket := range snap.Latency {
			view.Latency[i] = LatencyBucket{UpperMS: bucket.UpperMS, Count: bucket.Count}
		}
	}
	return view
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format(dateTimeFormat)
}

func formatTimePtr(value *time.Time) string {
	if value == nil {
		return ""
	}
	return formatTime(*value)
}

func durationMS(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
