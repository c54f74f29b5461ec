package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"renderforge/internal/config"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantOutput := filepath.Join(tempHome, ".local", "share", "renderforge", "output")
	if cfg.Paths.OutputDir != wantOutput {
		t.Fatalf("unexpected output dir: got %q want %q", cfg.Paths.OutputDir, wantOutput)
	}
	if cfg.Store.Backend != "sqlite" {
		t.Fatalf("unexpected store backend: %q", cfg.Store.Backend)
	}
	if cfg.Store.DBPath != filepath.Join(cfg.Paths.LogDir, "queue.db") {
		t.Fatalf("unexpected db path: %q", cfg.Store.DBPath)
	}
	if cfg.LipSync.FPS != 25 {
		t.Fatalf("unexpected lipsync fps: %d", cfg.LipSync.FPS)
	}
	if got := cfg.Voice.Backends; len(got) != 1 || got[0] != "stub" {
		t.Fatalf("unexpected voice backends: %v", got)
	}
}

func TestLoadParsesFileAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[store]
backend = "REST"
url = "https://store.example.com/rest/v1/"
service_key = "key"

[voice]
backends = ["HTTP", "stub"]
base_url = "http://voice.local/"

[logging]
format = "json"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if cfg.Store.Backend != "rest" {
		t.Fatalf("backend not lowercased: %q", cfg.Store.Backend)
	}
	if strings.HasSuffix(cfg.Store.URL, "/") {
		t.Fatalf("url not trimmed: %q", cfg.Store.URL)
	}
	if cfg.Voice.Backends[0] != "http" {
		t.Fatalf("voice backend not normalized: %v", cfg.Voice.Backends)
	}
	if cfg.Voice.BaseURL != "http://voice.local" {
		t.Fatalf("voice base url not trimmed: %q", cfg.Voice.BaseURL)
	}
}

func TestLoadRejectsRestWithoutURL(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[store]\nbackend = \"rest\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for rest backend without url")
	}
}

func TestLoadRejectsUnknownVoiceBackend(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[voice]\nbackends = [\"espeak\"]\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for unknown voice backend")
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}

	if _, _, exists, err := config.Load(path); err != nil || !exists {
		t.Fatalf("sample config should load cleanly: exists=%v err=%v", exists, err)
	}
}
