package api

import (
	"context"
	"fmt"
	"strings"

	"loom/internal/queue"
	"loom/internal/services"
)

// JobStore abstracts the queue persistence interactions needed for API
// queries and submissions.
type JobStore interface {
	List(ctx context.Context, statuses ...queue.Status) ([]*queue.Job, error)
	Stats(ctx context.Context) (map[queue.Status]int, error)
	GetByID(ctx context.Context, id int64) (*queue.Job, error)
	StageResultsForJob(ctx context.Context, jobID int64) ([]*queue.StageResult, error)
	FindActiveByVideoID(ctx context.Context, videoID string) (*queue.Job, error)
	NewJob(ctx context.Context, videoID, sourceURL string) (*queue.Job, error)
}

// JobService exposes job operations returning API DTOs.
type JobService struct {
	store JobStore
}

// NewJobService constructs a JobService around the provided store.
func NewJobService(store JobStore) *JobService {
	if store == nil {
		return nil
	}
	return &JobService{store: store}
}

// List returns jobs filtered by status.
func (s *JobService) List(ctx context.Context, statuses ...queue.Status) ([]Job, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	jobs, err := s.store.List(ctx, statuses...)
	if err != nil {
		return nil, err
	}
	return FromJobs(jobs), nil
}

// Stats returns job summary counts keyed by status string.
func (s *JobService) Stats(ctx context.Context) (map[string]int, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return normalizeJobStats(stats), nil
}

// Describe fetches a single job along with its recorded stage results.
func (s *JobService) Describe(ctx context.Context, id int64) (*Job, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	job, err := s.store.GetByID(ctx, id)
	if err != nil || job == nil {
		return nil, err
	}
	results, err := s.store.StageResultsForJob(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := FromJob(job)
	dto.Stages = FromStageResults(results)
	return &dto, nil
}

// Submit enqueues a new analysis job for the given video. A video that
// already has an active job is not enqueued twice; the existing job is
// returned instead.
func (s *JobService) Submit(ctx context.Context, req SubmitRequest) (Job, bool, error) {
	if s == nil || s.store == nil {
		return Job{}, false, fmt.Errorf("job service unavailable: %w", services.ErrConfiguration)
	}
	videoID := strings.TrimSpace(req.VideoID)
	if videoID == "" {
		return Job{}, false, fmt.Errorf("video id is required: %w", services.ErrValidation)
	}
	existing, err := s.store.FindActiveByVideoID(ctx, videoID)
	if err != nil {
		return Job{}, false, err
	}
	if existing != nil {
		return FromJob(existing), false, nil
	}
	job, err := s.store.NewJob(ctx, videoID, strings.TrimSpace(req.SourceURL))
	if err != nil {
		return Job{}, false, err
	}
	return FromJob(job), true, nil
}
