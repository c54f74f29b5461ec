package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"renderforge/internal/config"
	"renderforge/internal/jobstore"
	"renderforge/internal/logging"
	"renderforge/internal/services"
	"renderforge/internal/stage"
)

type fakeRunner struct {
	result stage.Result
	err    error
	calls  int
	onRun  func(ctx context.Context, jobType jobstore.JobType, raw json.RawMessage, progress func(int))
}

func (f *fakeRunner) Execute(ctx context.Context, jobType jobstore.JobType, raw json.RawMessage, progress func(int)) (stage.Result, error) {
	f.calls++
	if f.onRun != nil {
		f.onRun(ctx, jobType, raw, progress)
	}
	if f.err != nil {
		return stage.Result{}, f.err
	}
	return f.result, nil
}

func newTestStore(t *testing.T) jobstore.Store {
	t.Helper()
	store, err := jobstore.OpenSQLite(filepath.Join(t.TempDir(), "queue.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newManager(store jobstore.Store, runner Runner) *Manager {
	return NewManager(store, runner, config.Workflow{QueuePollInterval: 1, ErrorRetryInterval: 1}, nil)
}

func TestRunOnceEmptyQueue(t *testing.T) {
	runner := &fakeRunner{}
	processed, err := newManager(newTestStore(t), runner).RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if processed {
		t.Fatal("empty queue must not report work")
	}
	if runner.calls != 0 {
		t.Fatal("no stage may run against an empty queue")
	}
}

func TestRunOnceCompletesJob(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	job, err := store.Enqueue(ctx, jobstore.TypeVoice, json.RawMessage(`{"text":"hi"}`))
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	runner := &fakeRunner{result: stage.Result{OutputPath: "/out/voice.wav"}}
	processed, err := newManager(store, runner).RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if !processed {
		t.Fatal("expected a job to be processed")
	}

	got, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != jobstore.StatusCompleted {
		t.Fatalf("expected completed, got %s", got.Status)
	}
	if got.Progress != 100 {
		t.Fatalf("expected progress 100, got %d", got.Progress)
	}
	if got.ResultURL != "/out/voice.wav" {
		t.Fatalf("unexpected result %q", got.ResultURL)
	}
	if got.Degraded {
		t.Fatal("unexpected degraded flag")
	}
}

func TestRunOnceRecordsFailure(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	job, err := store.Enqueue(ctx, jobstore.TypeFinal, json.RawMessage(`{"voice_path":"/v","avatar_path":"/a"}`))
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	runner := &fakeRunner{err: services.Wrap(services.ErrExternalTool, "encode", "compose video pass", "ffmpeg failed", nil)}
	processed, err := newManager(store, runner).RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if !processed {
		t.Fatal("expected the job to be processed")
	}

	got, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != jobstore.StatusError {
		t.Fatalf("expected error status, got %s", got.Status)
	}
	if got.ErrorMessage == "" {
		t.Fatal("failure must record a cause")
	}
}

func TestRunOnceMarksDegradedSuccess(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	job, err := store.Enqueue(ctx, jobstore.TypeFinal, json.RawMessage(`{"voice_path":"/v","avatar_path":"/a"}`))
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	runner := &fakeRunner{result: stage.Result{
		OutputPath: "/out/final.mp4",
		Degraded:   true,
		Note:       "audio mux failed",
	}}
	if _, err := newManager(store, runner).RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	got, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != jobstore.StatusCompleted {
		t.Fatalf("degraded success must still complete, got %s", got.Status)
	}
	if !got.Degraded {
		t.Fatal("degraded flag must persist on the record")
	}
}

func TestRunOnceWritesProgressCheckpoints(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	job, err := store.Enqueue(ctx, jobstore.TypeFullAvatar, json.RawMessage(`{"script":"hi","images":"/f"}`))
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	var midProgress int
	runner := &fakeRunner{result: stage.Result{OutputPath: "/out/final.mp4"}}
	runner.onRun = func(runCtx context.Context, _ jobstore.JobType, _ json.RawMessage, progress func(int)) {
		progress(25)
		got, err := store.GetByID(runCtx, job.ID)
		if err != nil {
			t.Errorf("GetByID mid-run: %v", err)
			return
		}
		midProgress = got.Progress
	}
	if _, err := newManager(store, runner).RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if midProgress != 25 {
		t.Fatalf("expected checkpoint 25 visible mid-run, got %d", midProgress)
	}
}

func TestRunOnceJobContextCarriesIdentity(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	job, err := store.Enqueue(ctx, jobstore.TypeVoice, json.RawMessage(`{"text":"hi"}`))
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	runner := &fakeRunner{result: stage.Result{OutputPath: "/out/voice.wav"}}
	runner.onRun = func(runCtx context.Context, jobType jobstore.JobType, _ json.RawMessage, _ func(int)) {
		if id, ok := services.JobIDFromContext(runCtx); !ok || id != job.ID {
			t.Errorf("job id missing from run context")
		}
		if jt, ok := services.JobTypeFromContext(runCtx); !ok || jt != string(jobstore.TypeVoice) {
			t.Errorf("job type missing from run context, got %q", jt)
		}
		if jobType != jobstore.TypeVoice {
			t.Errorf("unexpected job type %s", jobType)
		}
	}
	if _, err := newManager(store, runner).RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
}

// conflictStore simulates another worker winning every claim race.
type conflictStore struct {
	jobstore.Store
}

func (c conflictStore) Claim(ctx context.Context, id string) (*jobstore.Job, error) {
	return nil, fmt.Errorf("job %s is processing: %w", id, jobstore.ErrClaimConflict)
}

func TestRunOnceAbandonsLostClaim(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	if _, err := store.Enqueue(ctx, jobstore.TypeVoice, json.RawMessage(`{"text":"hi"}`)); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	runner := &fakeRunner{}
	processed, err := newManager(conflictStore{store}, runner).RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if processed {
		t.Fatal("a lost claim must not count as processed work")
	}
	if runner.calls != 0 {
		t.Fatal("a lost claim must not run any stage")
	}
}

func TestRunOnceSurvivesShutdownMidJob(t *testing.T) {
	store := newTestStore(t)
	job, err := store.Enqueue(context.Background(), jobstore.TypeVoice, json.RawMessage(`{"text":"hi"}`))
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	runner := &fakeRunner{result: stage.Result{OutputPath: "/out/voice.wav"}}
	runner.onRun = func(runCtx context.Context, _ jobstore.JobType, _ json.RawMessage, _ func(int)) {
		cancel()
		if runCtx.Err() != nil {
			t.Error("job context must survive parent cancellation")
		}
	}

	if _, err := newManager(store, runner).RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	got, err := store.GetByID(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != jobstore.StatusCompleted {
		t.Fatalf("job must reach a terminal state despite shutdown, got %s", got.Status)
	}
}

func TestStartStop(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	if _, err := store.Enqueue(ctx, jobstore.TypeVoice, json.RawMessage(`{"text":"hi"}`)); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	runner := &fakeRunner{result: stage.Result{OutputPath: "/out/voice.wav"}}
	manager := newManager(store, runner)
	if err := manager.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := manager.Start(ctx); err == nil {
		t.Fatal("second Start must fail while running")
	}

	deadline := time.After(5 * time.Second)
	for {
		jobs, err := store.List(ctx, jobstore.StatusCompleted)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(jobs) == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("job was not processed in time")
		case <-time.After(10 * time.Millisecond):
		}
	}
	manager.Stop()
	manager.Stop()
}

func TestRunJobProcessesNamedJob(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	first, err := store.Enqueue(ctx, jobstore.TypeVoice, json.RawMessage(`{"text":"older"}`))
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	second, err := store.Enqueue(ctx, jobstore.TypeVideo, json.RawMessage(`{"script":"newer"}`))
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	runner := &fakeRunner{result: stage.Result{OutputPath: "/out/video.mp4"}}
	got, err := newManager(store, runner).RunJob(ctx, second.ID)
	if err != nil {
		t.Fatalf("RunJob: %v", err)
	}
	if got.Status != jobstore.StatusCompleted {
		t.Fatalf("expected completed, got %s", got.Status)
	}
	if got.ResultURL != "/out/video.mp4" {
		t.Fatalf("unexpected result %q", got.ResultURL)
	}

	untouched, err := store.GetByID(ctx, first.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if untouched.Status != jobstore.StatusQueued {
		t.Fatalf("older job must stay queued, got %s", untouched.Status)
	}
}

func TestRunJobSurfacesClaimConflict(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	job, err := store.Enqueue(ctx, jobstore.TypeVoice, json.RawMessage(`{"text":"hi"}`))
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if _, err := store.Claim(ctx, job.ID); err != nil {
		t.Fatalf("Claim: %v", err)
	}

	runner := &fakeRunner{}
	if _, err := newManager(store, runner).RunJob(ctx, job.ID); !errors.Is(err, jobstore.ErrClaimConflict) {
		t.Fatalf("expected claim conflict, got %v", err)
	}
	if runner.calls != 0 {
		t.Fatal("no stage may run after a lost claim")
	}
}

func TestRunJobUnknownID(t *testing.T) {
	store := newTestStore(t)
	runner := &fakeRunner{}
	if _, err := newManager(store, runner).RunJob(context.Background(), "no-such-job"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

// logSink records emitted log fields so tests can assert on them. Handlers
// derived with WithAttrs share the same record list.
type logSink struct {
	shared *logRecords
	base   []slog.Attr
}

type logRecords struct {
	mu      sync.Mutex
	records []map[string]any
}

func newLogSink() *logSink {
	return &logSink{shared: &logRecords{}}
}

func (s *logSink) Enabled(context.Context, slog.Level) bool { return true }

func (s *logSink) Handle(_ context.Context, r slog.Record) error {
	fields := map[string]any{"msg": r.Message}
	for _, a := range s.base {
		fields[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		fields[a.Key] = a.Value.Any()
		return true
	})
	s.shared.mu.Lock()
	defer s.shared.mu.Unlock()
	s.shared.records = append(s.shared.records, fields)
	return nil
}

func (s *logSink) WithAttrs(attrs []slog.Attr) slog.Handler {
	base := append(append([]slog.Attr{}, s.base...), attrs...)
	return &logSink{shared: s.shared, base: base}
}

func (s *logSink) WithGroup(string) slog.Handler { return s }

func (s *logSink) find(msg string) (map[string]any, bool) {
	s.shared.mu.Lock()
	defer s.shared.mu.Unlock()
	for _, record := range s.shared.records {
		if record["msg"] == msg {
			return record, true
		}
	}
	return nil, false
}

func TestFailureLogCarriesOperatorHint(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	if _, err := store.Enqueue(ctx, jobstore.TypeFinal, json.RawMessage(`{"voice_path":"/v","avatar_path":"/a"}`)); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	cause := services.Wrap(services.ErrExternalTool, "encode", "compose video pass", "ffmpeg failed", nil)
	runner := &fakeRunner{err: cause}
	sink := newLogSink()
	manager := NewManager(store, runner, config.Workflow{QueuePollInterval: 1, ErrorRetryInterval: 1}, slog.New(sink))
	if _, err := manager.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	record, ok := sink.find("job failed")
	if !ok {
		t.Fatal("expected a job failed record")
	}
	hint, _ := record[logging.FieldErrorHint].(string)
	if hint != services.Hint(cause) {
		t.Fatalf("error hint = %q, want %q", hint, services.Hint(cause))
	}
	if hint == "" {
		t.Fatal("classified failures must carry an operator hint")
	}
}
