package api

import (
	"context"
	"errors"
	"testing"
	"time"

	"loom/internal/queue"
	"loom/internal/services"
)

type mockJobStore struct {
	jobs     []*queue.Job
	results  []*queue.StageResult
	stats    map[queue.Status]int
	active   *queue.Job
	created  *queue.Job
	jobErr   error
	statsErr error
}

func (m *mockJobStore) List(context.Context, ...queue.Status) ([]*queue.Job, error) {
	return m.jobs, m.jobErr
}

func (m *mockJobStore) Stats(context.Context) (map[queue.Status]int, error) {
	return m.stats, m.statsErr
}

func (m *mockJobStore) GetByID(context.Context, int64) (*queue.Job, error) {
	if len(m.jobs) == 0 {
		return nil, m.jobErr
	}
	return m.jobs[0], m.jobErr
}

func (m *mockJobStore) StageResultsForJob(context.Context, int64) ([]*queue.StageResult, error) {
	return m.results, nil
}

func (m *mockJobStore) FindActiveByVideoID(context.Context, string) (*queue.Job, error) {
	return m.active, m.jobErr
}

func (m *mockJobStore) NewJob(ctx context.Context, videoID, sourceURL string) (*queue.Job, error) {
	if m.jobErr != nil {
		return nil, m.jobErr
	}
	m.created = &queue.Job{ID: 42, VideoID: videoID, SourceURL: sourceURL, Status: queue.StatusPending}
	return m.created, nil
}

func TestJobService_List(t *testing.T) {
	now := time.Now().UTC()
	store := &mockJobStore{
		jobs: []*queue.Job{{
			ID:        1,
			VideoID:   "dQw4w9WgXcQ",
			Title:     "Example",
			Status:    queue.StatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		}},
	}
	svc := NewJobService(store)
	got, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("unexpected job count: %d", len(got))
	}
	if got[0].VideoID != "dQw4w9WgXcQ" {
		t.Fatalf("unexpected video id: %q", got[0].VideoID)
	}
	if got[0].Status != string(queue.StatusPending) {
		t.Fatalf("unexpected status: %q", got[0].Status)
	}
	if got[0].CreatedAt == "" || got[0].UpdatedAt == "" {
		t.Fatalf("expected timestamps to be formatted")
	}
}

func TestJobService_ListError(t *testing.T) {
	errSentinel := errors.New("boom")
	svc := NewJobService(&mockJobStore{jobErr: errSentinel})
	_, err := svc.List(context.Background())
	if !errors.Is(err, errSentinel) {
		t.Fatalf("expected error %v, got %v", errSentinel, err)
	}
}

func TestJobService_StatsIncludesAllStatuses(t *testing.T) {
	svc := NewJobService(&mockJobStore{stats: map[queue.Status]int{
		queue.StatusPending: 2,
		queue.StatusFailed:  1,
	}})
	got, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats returned error: %v", err)
	}
	if got[string(queue.StatusPending)] != 2 {
		t.Fatalf("expected pending count 2, got %d", got[string(queue.StatusPending)])
	}
	if got[string(queue.StatusFailed)] != 1 {
		t.Fatalf("expected failed count 1, got %d", got[string(queue.StatusFailed)])
	}
	for _, status := range queue.AllStatuses() {
		if _, ok := got[string(status)]; !ok {
			t.Fatalf("expected stats to include status %q", status)
		}
	}
}

func TestJobService_DescribeIncludesStageResults(t *testing.T) {
	started := time.Now().UTC()
	store := &mockJobStore{
		jobs: []*queue.Job{{ID: 7, VideoID: "abc123", Status: queue.StatusCompleted}},
		results: []*queue.StageResult{{
			JobID:      7,
			Stage:      "extract",
			Dependency: "youtube-api",
			Status:     queue.StageCompleted,
			Required:   true,
			Attempts:   1,
			StartedAt:  started,
			FinishedAt: started.Add(120 * time.Millisecond),
		}},
	}
	svc := NewJobService(store)
	job, err := svc.Describe(context.Background(), 7)
	if err != nil {
		t.Fatalf("Describe returned error: %v", err)
	}
	if job == nil {
		t.Fatal("Describe returned nil job")
	}
	if job.ID != 7 {
		t.Fatalf("unexpected id: %d", job.ID)
	}
	if len(job.Stages) != 1 {
		t.Fatalf("expected 1 stage result, got %d", len(job.Stages))
	}
	if job.Stages[0].Stage != "extract" {
		t.Fatalf("unexpected stage: %q", job.Stages[0].Stage)
	}
	if job.Stages[0].DurationMS != 120 {
		t.Fatalf("unexpected duration: %v", job.Stages[0].DurationMS)
	}
}

func TestJobService_DescribeMissingJob(t *testing.T) {
	svc := NewJobService(&mockJobStore{})
	job, err := svc.Describe(context.Background(), 99)
	if err != nil {
		t.Fatalf("Describe returned error: %v", err)
	}
	if job != nil {
		t.Fatalf("expected nil job, got %+v", job)
	}
}

func TestJobService_SubmitCreatesJob(t *testing.T) {
	store := &mockJobStore{}
	svc := NewJobService(store)
	job, created, err := svc.Submit(context.Background(), SubmitRequest{
		VideoID:   "abc123",
		SourceURL: "https://youtube.com/watch?v=abc123",
	})
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if !created {
		t.Fatal("expected job to be created")
	}
	if job.ID != 42 || job.VideoID != "abc123" {
		t.Fatalf("unexpected job: %+v", job)
	}
	if store.created == nil {
		t.Fatal("expected store.NewJob to be called")
	}
}

func TestJobService_SubmitDeduplicatesActiveVideo(t *testing.T) {
	store := &mockJobStore{active: &queue.Job{ID: 5, VideoID: "abc123", Status: queue.StatusRunning}}
	svc := NewJobService(store)
	job, created, err := svc.Submit(context.Background(), SubmitRequest{VideoID: "abc123"})
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if created {
		t.Fatal("expected existing job to be returned without creating a new one")
	}
	if job.ID != 5 {
		t.Fatalf("unexpected job id: %d", job.ID)
	}
	if store.created != nil {
		t.Fatal("expected store.NewJob not to be called")
	}
}

func TestJobService_SubmitRequiresVideoID(t *testing.T) {
	svc := NewJobService(&mockJobStore{})
	_, _, err := svc.Submit(context.Background(), SubmitRequest{VideoID: "   "})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
