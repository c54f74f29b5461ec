// Package workflow drives the job lifecycle: it polls the store for
// queued jobs, claims them, runs the pipeline, and writes the terminal
// status back. Exactly one worker processes a given job; the claim race
// is settled by the store.
package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"renderforge/internal/config"
	"renderforge/internal/jobstore"
	"renderforge/internal/logging"
	"renderforge/internal/services"
	"renderforge/internal/stage"
)

// Runner executes the stages of one job. The pipeline executor satisfies
// this; tests substitute fakes.
type Runner interface {
	Execute(ctx context.Context, jobType jobstore.JobType, raw json.RawMessage, progress func(int)) (stage.Result, error)
}

// Manager coordinates job processing against the store.
type Manager struct {
	store         jobstore.Store
	runner        Runner
	logger        *slog.Logger
	pollInterval  time.Duration
	retryInterval time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewManager constructs a workflow manager.
func NewManager(store jobstore.Store, runner Runner, cfg config.Workflow, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		store:         store,
		runner:        runner,
		logger:        logger,
		pollInterval:  time.Duration(cfg.QueuePollInterval) * time.Second,
		retryInterval: time.Duration(cfg.ErrorRetryInterval) * time.Second,
	}
}

// Start begins background processing.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return errors.New("workflow already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.loop(runCtx)
	}()
	return nil
}

// Stop terminates background processing and waits for the in-flight job
// to reach a terminal state.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

func (m *Manager) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		processed, err := m.RunOnce(ctx)
		switch {
		case errors.Is(err, context.Canceled):
			return
		case err != nil:
			m.logger.Warn("queue poll failed",
				logging.Error(err),
				logging.String(logging.FieldEventType, "queue_poll_failed"))
			m.sleep(ctx, m.retryInterval)
		case !processed:
			m.sleep(ctx, m.pollInterval)
		}
	}
}

func (m *Manager) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}

// RunOnce claims and processes at most one job. It reports whether a job
// ran. Losing the claim race to another worker is not an error; the job
// is simply abandoned to its winner.
func (m *Manager) RunOnce(ctx context.Context) (bool, error) {
	job, err := m.store.NextQueued(ctx)
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}

	claimed, err := m.store.Claim(ctx, job.ID)
	if errors.Is(err, jobstore.ErrClaimConflict) || errors.Is(err, services.ErrNotFound) {
		m.logger.Debug("job claimed elsewhere",
			logging.String(logging.FieldJobID, job.ID),
			logging.String(logging.FieldEventType, "claim_lost"))
		return false, nil
	}
	if err != nil {
		return false, err
	}

	m.process(ctx, claimed)
	return true, nil
}

// RunJob claims and processes one specific job synchronously and returns
// its terminal record. Unlike RunOnce, a lost claim race is surfaced to
// the caller, since the job was named explicitly.
func (m *Manager) RunJob(ctx context.Context, id string) (*jobstore.Job, error) {
	claimed, err := m.store.Claim(ctx, id)
	if err != nil {
		return nil, err
	}

	m.process(ctx, claimed)
	return m.store.GetByID(ctx, id)
}

// process runs a claimed job to a terminal state. The job keeps running
// through shutdown; a cancel between claim and terminal write would strand
// the record in processing forever.
func (m *Manager) process(parent context.Context, job *jobstore.Job) {
	ctx := context.WithoutCancel(parent)
	ctx = services.WithJobID(ctx, job.ID)
	ctx = services.WithJobType(ctx, string(job.Type))
	logger := logging.WithContext(ctx, m.logger)

	logger.Info("job started", logging.String(logging.FieldEventType, "job_started"))
	started := time.Now()

	progress := func(percent int) {
		if err := m.store.Update(ctx, job.ID, jobstore.Update{Progress: jobstore.IntOf(percent)}); err != nil {
			logger.Warn("progress update failed", logging.Error(err))
		}
	}

	result, err := m.runner.Execute(ctx, job.Type, job.Payload, progress)
	if err != nil {
		m.fail(ctx, logger, job, err)
		return
	}
	m.complete(ctx, logger, job, result, time.Since(started))
}

func (m *Manager) complete(ctx context.Context, logger *slog.Logger, job *jobstore.Job, result stage.Result, elapsed time.Duration) {
	update := jobstore.Update{
		Status:   jobstore.StatusOf(jobstore.StatusCompleted),
		Progress: jobstore.IntOf(100),
		Result:   jobstore.StringOf(result.OutputPath),
		Degraded: jobstore.BoolOf(result.Degraded),
	}
	if err := m.store.Update(ctx, job.ID, update); err != nil {
		logger.Error("terminal update failed; job stuck in processing",
			logging.Error(err),
			logging.Alert("job_finalize_failed"))
		return
	}
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "job_completed"),
		logging.String("result", result.OutputPath),
		logging.Duration("elapsed", elapsed),
	}
	if result.Degraded {
		attrs = append(attrs, logging.Bool("degraded", true), logging.String("note", result.Note))
	}
	logger.Info("job completed", logging.Args(attrs...)...)
}

func (m *Manager) fail(ctx context.Context, logger *slog.Logger, job *jobstore.Job, cause error) {
	update := jobstore.Update{
		Status: jobstore.StatusOf(jobstore.StatusError),
		Error:  jobstore.StringOf(services.Message(cause)),
	}
	if err := m.store.Update(ctx, job.ID, update); err != nil {
		logger.Error("terminal update failed; job stuck in processing",
			logging.Error(err),
			logging.Alert("job_finalize_failed"))
		return
	}
	attrs := []logging.Attr{
		logging.Error(cause),
		logging.String(logging.FieldEventType, "job_failed"),
		logging.Bool("retryable", services.Retryable(cause)),
	}
	if hint := services.Hint(cause); hint != "" {
		attrs = append(attrs, logging.String(logging.FieldErrorHint, hint))
	}
	logger.Error("job failed", logging.Args(attrs...)...)
}
