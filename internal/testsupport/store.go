package testsupport

import (
	"context"
	"encoding/json"
	"testing"

	"renderforge/internal/config"
	"renderforge/internal/jobstore"
)

// MustOpenStore opens a job store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) jobstore.Store {
	t.Helper()

	store, err := jobstore.Open(cfg)
	if err != nil {
		t.Fatalf("jobstore.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustEnqueue inserts a job for tests using the provided store.
func MustEnqueue(t testing.TB, store jobstore.Store, jobType jobstore.JobType, payload json.RawMessage) *jobstore.Job {
	t.Helper()

	job, err := store.Enqueue(context.Background(), jobType, payload)
	if err != nil {
		t.Fatalf("store.Enqueue: %v", err)
	}
	return job
}
