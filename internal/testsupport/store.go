package testsupport

import (
	"context"
	"testing"

	"loom/internal/config"
	"loom/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewJob creates a pending job for tests using the provided store.
func NewJob(t testing.TB, store *queue.Store, videoID string) *queue.Job {
	t.Helper()

	job, err := store.NewJob(context.Background(), videoID, "https://youtube.com/watch?v="+videoID)
	if err != nil {
		t.Fatalf("store.NewJob: %v", err)
	}
	return job
}
