package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"renderforge/internal/jobstore"
)

type cliTestEnv struct {
	baseDir    string
	configPath string
	dbPath     string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	dbPath := filepath.Join(base, "logs", "queue.db")
	configPath := filepath.Join(base, "config.toml")

	content := fmt.Sprintf(`[paths]
output_dir = %q
staging_dir = %q
log_dir = %q

[store]
backend = "sqlite"
db_path = %q

[preflight]
enabled = false

[logging]
format = "json"
level = "error"
`,
		filepath.Join(base, "output"),
		filepath.Join(base, "staging"),
		filepath.Join(base, "logs"),
		dbPath,
	)
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	return &cliTestEnv{baseDir: base, configPath: configPath, dbPath: dbPath}
}

func (env *cliTestEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var buf bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.Execute()
	return buf.String(), err
}

func (env *cliTestEnv) openStore(t *testing.T) jobstore.Store {
	t.Helper()

	store, err := jobstore.OpenSQLite(env.dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

func TestQueueAddListShow(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(t, "queue", "add", "voice", "--payload", `{"text":"hello world"}`)
	if err != nil {
		t.Fatalf("queue add: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Queued voice job ") {
		t.Fatalf("unexpected add output: %s", out)
	}
	id := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(out), "Queued voice job "))

	out, err = env.run(t, "queue", "list")
	if err != nil {
		t.Fatalf("queue list: %v\n%s", err, out)
	}
	if !strings.Contains(out, id) || !strings.Contains(out, "queued") {
		t.Fatalf("unexpected list output: %s", out)
	}

	out, err = env.run(t, "queue", "show", id)
	if err != nil {
		t.Fatalf("queue show: %v\n%s", err, out)
	}
	if !strings.Contains(out, "hello world") || !strings.Contains(out, "Status:   queued") {
		t.Fatalf("unexpected show output: %s", out)
	}
}

func TestQueueAddRejectsUnknownType(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, err := env.run(t, "queue", "add", "hologram"); err == nil {
		t.Fatal("expected error for unknown job type")
	}
}

func TestQueueAddRejectsInvalidPayload(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, err := env.run(t, "queue", "add", "voice", "--payload", "{not json"); err == nil {
		t.Fatal("expected error for invalid payload")
	}
}

func TestQueueListEmpty(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(t, "queue", "list")
	if err != nil {
		t.Fatalf("queue list: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Queue is empty") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestQueueHealthCounts(t *testing.T) {
	env := setupCLITestEnv(t)
	store := env.openStore(t)

	if _, err := store.Enqueue(context.Background(), jobstore.TypeVoice, []byte(`{"text":"a"}`)); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if _, err := store.Enqueue(context.Background(), jobstore.TypeFinal, []byte(`{}`)); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	out, err := env.run(t, "queue", "health")
	if err != nil {
		t.Fatalf("queue health: %v\n%s", err, out)
	}
	if !strings.Contains(out, "queued") || !strings.Contains(out, "2") {
		t.Fatalf("unexpected health output: %s", out)
	}
}

func TestOnceEmptyQueue(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(t, "once")
	if err != nil {
		t.Fatalf("once: %v\n%s", err, out)
	}
	if !strings.Contains(out, "No queued jobs") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestOnceProcessesVoiceJob(t *testing.T) {
	env := setupCLITestEnv(t)
	store := env.openStore(t)

	job, err := store.Enqueue(context.Background(), jobstore.TypeVoice, []byte(`{"text":"hello from the queue"}`))
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	out, err := env.run(t, "once")
	if err != nil {
		t.Fatalf("once: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Processed one job") {
		t.Fatalf("unexpected output: %s", out)
	}

	current, err := store.GetByID(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if current.Status != jobstore.StatusCompleted {
		t.Fatalf("expected completed, got %s (%s)", current.Status, current.ErrorMessage)
	}
	if current.ResultURL == "" {
		t.Fatal("expected a result path")
	}
	if _, err := os.Stat(current.ResultURL); err != nil {
		t.Fatalf("result file missing: %v", err)
	}
}

func TestOnceRecordsFailureForInvalidPayload(t *testing.T) {
	env := setupCLITestEnv(t)
	store := env.openStore(t)

	job, err := store.Enqueue(context.Background(), jobstore.TypeVoice, []byte(`{}`))
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	if _, err := env.run(t, "once"); err != nil {
		t.Fatalf("once: %v", err)
	}

	current, err := store.GetByID(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if current.Status != jobstore.StatusError {
		t.Fatalf("expected error status, got %s", current.Status)
	}
	if current.ErrorMessage == "" {
		t.Fatal("expected an error message")
	}
}

func TestRunProcessesNamedJob(t *testing.T) {
	env := setupCLITestEnv(t)
	store := env.openStore(t)

	job, err := store.Enqueue(context.Background(), jobstore.TypeVoice, []byte(`{"text":"run me"}`))
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	out, err := env.run(t, "run", job.ID)
	if err != nil {
		t.Fatalf("run: %v\n%s", err, out)
	}
	if !strings.Contains(out, "completed") {
		t.Fatalf("unexpected output: %s", out)
	}

	current, err := store.GetByID(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if current.Status != jobstore.StatusCompleted {
		t.Fatalf("expected completed, got %s", current.Status)
	}
}

func TestRunUnknownJobFails(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, err := env.run(t, "run", "no-such-id"); err == nil {
		t.Fatal("expected error for unknown job id")
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)
	target := filepath.Join(env.baseDir, "fresh", "config.toml")

	out, err := env.run(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v\n%s", err, out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file: %v", err)
	}

	if _, err := env.run(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected error when config already exists")
	}
	if out, err := env.run(t, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite: %v\n%s", err, out)
	}

	out, err = env.run(t, "config", "validate", "--path", env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Configuration valid") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestConfigShow(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(t, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v\n%s", err, out)
	}
	if !strings.Contains(out, "[store]") || !strings.Contains(out, "backend = 'sqlite'") {
		t.Fatalf("unexpected show output: %s", out)
	}
}

func TestHealthCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	binDir := filepath.Join(env.baseDir, "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		t.Fatalf("mkdir bin: %v", err)
	}
	stub := filepath.Join(binDir, "ffmpeg")
	if err := os.WriteFile(stub, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))

	out, err := env.run(t, "health")
	if err != nil {
		t.Fatalf("health: %v\n%s", err, out)
	}
	for _, want := range []string{"FFmpeg", "Job store", "Stage Voice", "PASS"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in health output: %s", want, out)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(t, "version")
	if err != nil {
		t.Fatalf("version: %v\n%s", err, out)
	}
	if !strings.Contains(out, "renderforge ") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestQueueListFiltersByStatus(t *testing.T) {
	env := setupCLITestEnv(t)
	store := env.openStore(t)

	queued, err := store.Enqueue(context.Background(), jobstore.TypeVoice, []byte(`{"text":"a"}`))
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	done, err := store.Enqueue(context.Background(), jobstore.TypeFinal, []byte(`{}`))
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	completed := jobstore.StatusCompleted
	if err := store.Update(context.Background(), done.ID, jobstore.Update{Status: &completed}); err != nil {
		t.Fatalf("update: %v", err)
	}

	out, err := env.run(t, "queue", "list", "--status", "completed")
	if err != nil {
		t.Fatalf("queue list: %v\n%s", err, out)
	}
	if strings.Contains(out, queued.ID) || !strings.Contains(out, done.ID) {
		t.Fatalf("unexpected filtered output: %s", out)
	}
}
