// Package lipsync is the lip-sync stage: it renders the frame sequence of
// an avatar speaking a voice track. It runs inside the full_avatar chain
// and is addressed with an internal payload naming the upstream artifacts.
package lipsync

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/lithammer/shortuuid/v4"

	"renderforge/internal/logging"
	"renderforge/internal/services"
	"renderforge/internal/services/wav2lip"
	"renderforge/internal/stage"
)

// Payload names the artifacts the lip-sync stage consumes.
type Payload struct {
	ModelPath string `json:"model_path"`
	AudioPath string `json:"audio_path"`
}

// Adapter runs lip-sync frame rendering.
type Adapter struct {
	syncer     wav2lip.Syncer
	fps        int
	stagingDir string
	logger     *slog.Logger
}

// New constructs the lip-sync stage adapter.
func New(syncer wav2lip.Syncer, fps int, stagingDir string, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Adapter{syncer: syncer, fps: fps, stagingDir: stagingDir, logger: logger}
}

// Name identifies the stage.
func (a *Adapter) Name() string { return "lip_sync" }

// Run renders the frame sequence and returns the frames directory.
func (a *Adapter) Run(ctx context.Context, raw json.RawMessage) (stage.Result, error) {
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return stage.Result{}, services.Wrap(services.ErrValidation, "lipsync", "run", "malformed lipsync payload", err)
	}
	if p.ModelPath == "" || p.AudioPath == "" {
		return stage.Result{}, services.Wrap(services.ErrValidation, "lipsync", "run", "model_path and audio_path are required", nil)
	}

	framesDir := filepath.Join(a.stagingDir, fmt.Sprintf("frames-%s", artifactID(ctx)))
	result, err := a.syncer.Sync(ctx, wav2lip.Request{
		ModelPath: p.ModelPath,
		AudioPath: p.AudioPath,
		FramesDir: framesDir,
		FPS:       a.fps,
	})
	if err != nil {
		return stage.Result{}, err
	}

	logging.WithContext(ctx, a.logger).Info("lip-sync frames rendered",
		logging.String("backend", a.syncer.Name()),
		logging.Int("frames", result.Frames),
		logging.String("frames_dir", result.FramesDir))
	return stage.Result{OutputPath: result.FramesDir}, nil
}

// HealthCheck reports whether the lip-sync engine responds.
func (a *Adapter) HealthCheck(ctx context.Context) stage.Health {
	if err := a.syncer.Ping(ctx); err != nil {
		return stage.Unhealthy(a.Name(), services.Message(err))
	}
	return stage.Healthy(a.Name())
}

func artifactID(ctx context.Context) string {
	if id, ok := services.JobIDFromContext(ctx); ok && id != "" {
		return id
	}
	return shortuuid.New()
}
