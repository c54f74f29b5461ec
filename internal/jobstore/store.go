package jobstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"renderforge/internal/config"
	"renderforge/internal/services"
)

// ErrClaimConflict is returned by Claim when the job was no longer queued
// at claim time, typically because another worker won the race.
var ErrClaimConflict = errors.New("job claim conflict")

// Store is the persistence contract the workflow manager runs against.
// Both backends guarantee the same claim semantics: at most one worker
// can move a given job from queued to processing.
type Store interface {
	// NextQueued returns the oldest queued job, or nil when the queue is
	// empty. It does not mutate the job.
	NextQueued(ctx context.Context) (*Job, error)

	// Claim transitions the job from queued to processing and returns the
	// claimed record. It returns ErrClaimConflict when the job exists but
	// is not queued, and services.ErrNotFound when it does not exist.
	Claim(ctx context.Context, id string) (*Job, error)

	// Update applies a partial field update to the job record.
	Update(ctx context.Context, id string, update Update) error

	// GetByID fetches a single job, or nil when no such job exists.
	GetByID(ctx context.Context, id string) (*Job, error)

	// Enqueue inserts a new queued job and returns the stored record.
	Enqueue(ctx context.Context, jobType JobType, payload json.RawMessage) (*Job, error)

	// List returns jobs filtered by status, newest first. With no statuses
	// it returns everything.
	List(ctx context.Context, statuses ...Status) ([]*Job, error)

	// Health reports aggregate job counts and confirms the backend is
	// reachable.
	Health(ctx context.Context) (HealthSummary, error)

	Close() error
}

// Open builds the store selected by the configuration.
func Open(cfg *config.Config) (Store, error) {
	switch cfg.Store.Backend {
	case config.StoreBackendSQLite:
		return OpenSQLite(cfg.Store.DBPath)
	case config.StoreBackendREST:
		return NewRESTStore(cfg.Store), nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "store", "open",
			fmt.Sprintf("unknown store backend %q", cfg.Store.Backend), nil)
	}
}
