package jobaccess_test

import (
	"context"
	"testing"

	"loom/internal/jobaccess"
	"loom/internal/queue"
	"loom/internal/testsupport"
)

func TestStoreAccessJobLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	defer store.Close()

	access := jobaccess.NewStoreAccess(store)
	ctx := context.Background()

	job, created, err := access.Submit(ctx, "dQw4w9WgXcQ", "https://youtu.be/dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !created {
		t.Fatal("expected a new job")
	}

	_, created, err = access.Submit(ctx, "dQw4w9WgXcQ", "")
	if err != nil {
		t.Fatalf("Submit duplicate: %v", err)
	}
	if created {
		t.Fatal("expected duplicate submit to return the active job")
	}

	jobs, err := access.List(ctx, []string{"pending"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(jobs) != 1 || jobs[0].ID != job.ID {
		t.Fatalf("unexpected listing: %#v", jobs)
	}

	described, err := access.Describe(ctx, job.ID)
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if described == nil || described.VideoID != "dQw4w9WgXcQ" {
		t.Fatalf("unexpected job: %#v", described)
	}

	cancelled, err := access.Cancel(ctx, job.ID, "operator request")
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if !cancelled {
		t.Fatal("expected pending job to cancel")
	}

	health, err := access.Health(ctx)
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if health.Total != 1 || health.Cancelled != 1 {
		t.Fatalf("unexpected health summary: %#v", health)
	}
}

func TestStoreAccessListIgnoresUnknownStatuses(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	defer store.Close()

	testsupport.NewJob(t, store, "abc123def45")

	access := jobaccess.NewStoreAccess(store)
	jobs, err := access.List(context.Background(), []string{"bogus"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected unfiltered listing, got %d jobs", len(jobs))
	}
}

func TestStoreAccessRetryRequeuesFailedJobs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	defer store.Close()

	job := testsupport.NewJob(t, store, "failvid01234")
	job.SetFailed("transcription provider unavailable")
	if err := store.Update(context.Background(), job); err != nil {
		t.Fatalf("Update: %v", err)
	}

	access := jobaccess.NewStoreAccess(store)
	updated, err := access.Retry(context.Background(), nil)
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if updated != 1 {
		t.Fatalf("expected one requeued job, got %d", updated)
	}

	stats, err := access.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats[string(queue.StatusPending)] != 1 {
		t.Fatalf("unexpected stats: %#v", stats)
	}
}
