package preflight_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"renderforge/internal/config"
	"renderforge/internal/jobstore"
	"renderforge/internal/preflight"
	"renderforge/internal/stage"
)

type stubStages struct {
	health []stage.Health
}

func (s stubStages) Health(ctx context.Context) []stage.Health {
	return s.health
}

func TestCheckDirectoryAccess(t *testing.T) {
	dir := t.TempDir()

	result := preflight.CheckDirectoryAccess("Staging directory", dir)
	if !result.Passed {
		t.Fatalf("expected pass for %s: %s", dir, result.Detail)
	}

	missing := preflight.CheckDirectoryAccess("Staging directory", filepath.Join(dir, "absent"))
	if missing.Passed {
		t.Fatal("expected failure for missing directory")
	}
	if !strings.Contains(missing.Detail, "does not exist") {
		t.Fatalf("unexpected detail: %s", missing.Detail)
	}
}

func TestCheckFFmpeg(t *testing.T) {
	if result := preflight.CheckFFmpeg("sh"); !result.Passed {
		t.Fatalf("expected sh to resolve: %s", result.Detail)
	}
	if result := preflight.CheckFFmpeg("renderforge-no-such-binary"); result.Passed {
		t.Fatal("expected failure for missing binary")
	}
}

func TestCheckStore(t *testing.T) {
	store, err := jobstore.OpenSQLite(filepath.Join(t.TempDir(), "jobs.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	if _, err := store.Enqueue(context.Background(), jobstore.TypeVoice, []byte(`{"text":"hi"}`)); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	result := preflight.CheckStore(context.Background(), store)
	if !result.Passed {
		t.Fatalf("expected store check to pass: %s", result.Detail)
	}
	if !strings.Contains(result.Detail, "1 queued") {
		t.Fatalf("unexpected detail: %s", result.Detail)
	}
}

func TestRunAllIncludesStageHealth(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Paths.OutputDir = dir
	cfg.Paths.StagingDir = dir
	cfg.Preflight.Enabled = false

	stages := stubStages{health: []stage.Health{
		stage.Healthy("voice"),
		stage.Unhealthy("full_avatar", "engine unreachable"),
	}}

	results := preflight.RunAll(context.Background(), &cfg, nil, stages)

	byName := make(map[string]preflight.Result, len(results))
	for _, result := range results {
		byName[result.Name] = result
	}

	voice, ok := byName["Stage Voice"]
	if !ok || !voice.Passed {
		t.Fatalf("expected passing voice stage check, got %+v", voice)
	}
	full, ok := byName["Stage Full Avatar"]
	if !ok || full.Passed {
		t.Fatalf("expected failing full_avatar stage check, got %+v", full)
	}
	if full.Detail != "engine unreachable" {
		t.Fatalf("unexpected detail: %s", full.Detail)
	}

	if preflight.AllPassed(results) {
		t.Fatal("expected AllPassed to report failure")
	}
}
