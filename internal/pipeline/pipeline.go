// Package pipeline maps job types onto stage executions. Single-stage
// jobs dispatch straight to their adapter; full_avatar runs the whole
// chain, threading each stage's artifact into the next and reporting
// progress checkpoints between stages.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"renderforge/internal/jobstore"
	"renderforge/internal/lipsync"
	"renderforge/internal/logging"
	"renderforge/internal/payload"
	"renderforge/internal/services"
	"renderforge/internal/stage"
)

// Progress receives percent checkpoints while a multi-stage job runs.
type Progress func(percent int)

// Checkpoints reached between the full_avatar chain stages.
const (
	progressAfterVoice   = 25
	progressAfterAvatar  = 50
	progressAfterLipSync = 75
)

// Executor owns the stage adapters and runs jobs against them.
type Executor struct {
	voice   stage.Adapter
	avatar  stage.Adapter
	lipSync stage.Adapter
	render  stage.Adapter
	video   stage.Adapter
	logger  *slog.Logger
}

// New constructs an executor over the five stage adapters.
func New(voice, avatar, lipSync, render, video stage.Adapter, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Executor{
		voice:   voice,
		avatar:  avatar,
		lipSync: lipSync,
		render:  render,
		video:   video,
		logger:  logger,
	}
}

// Execute runs the stages for the job type and returns the final stage
// result. The first stage failure aborts the run; later stages are never
// attempted against missing artifacts.
func (e *Executor) Execute(ctx context.Context, jobType jobstore.JobType, raw json.RawMessage, progress func(int)) (stage.Result, error) {
	if progress == nil {
		progress = func(int) {}
	}
	switch jobType {
	case jobstore.TypeVoice:
		return e.runStage(ctx, e.voice, raw)
	case jobstore.TypeAvatar:
		return e.runStage(ctx, e.avatar, raw)
	case jobstore.TypeFinal:
		return e.runStage(ctx, e.render, raw)
	case jobstore.TypeVideo:
		return e.runStage(ctx, e.video, raw)
	case jobstore.TypeFullAvatar:
		return e.runFullAvatar(ctx, raw, progress)
	default:
		return stage.Result{}, services.Wrap(services.ErrValidation, "pipeline", "execute",
			fmt.Sprintf("unknown job type %q", jobType), nil)
	}
}

func (e *Executor) runStage(ctx context.Context, adapter stage.Adapter, raw json.RawMessage) (stage.Result, error) {
	ctx = services.WithStage(ctx, adapter.Name())
	ctx = services.WithRequestID(ctx, uuid.NewString())
	logger := logging.WithContext(ctx, e.logger)
	logger.Info("stage started")

	result, err := adapter.Run(ctx, raw)
	if err != nil {
		logger.Error("stage failed", logging.Error(err))
		return stage.Result{}, err
	}
	logger.Info("stage finished", logging.String("output", result.OutputPath))
	return result, nil
}

// runFullAvatar executes voice -> avatar -> lip_sync -> render, handing
// each artifact to the next stage.
func (e *Executor) runFullAvatar(ctx context.Context, raw json.RawMessage, progress Progress) (stage.Result, error) {
	p, err := payload.ParseFullAvatar(raw)
	if err != nil {
		return stage.Result{}, err
	}

	voiceRaw, err := json.Marshal(payload.Voice{Text: p.Script, VoiceID: p.VoiceID})
	if err != nil {
		return stage.Result{}, fmt.Errorf("encode voice payload: %w", err)
	}
	voiceRes, err := e.runStage(ctx, e.voice, voiceRaw)
	if err != nil {
		return stage.Result{}, err
	}
	progress(progressAfterVoice)

	avatarRaw, err := json.Marshal(payload.Avatar{ImageDir: p.Images, Name: payload.DefaultAvatarName})
	if err != nil {
		return stage.Result{}, fmt.Errorf("encode avatar payload: %w", err)
	}
	avatarRes, err := e.runStage(ctx, e.avatar, avatarRaw)
	if err != nil {
		return stage.Result{}, err
	}
	progress(progressAfterAvatar)

	lipSyncRaw, err := json.Marshal(lipsync.Payload{
		ModelPath: avatarRes.OutputPath,
		AudioPath: voiceRes.OutputPath,
	})
	if err != nil {
		return stage.Result{}, fmt.Errorf("encode lipsync payload: %w", err)
	}
	framesRes, err := e.runStage(ctx, e.lipSync, lipSyncRaw)
	if err != nil {
		return stage.Result{}, err
	}
	progress(progressAfterLipSync)

	finalRaw, err := json.Marshal(map[string]string{
		"voice_path":  voiceRes.OutputPath,
		"avatar_path": framesRes.OutputPath,
	})
	if err != nil {
		return stage.Result{}, fmt.Errorf("encode render payload: %w", err)
	}
	return e.runStage(ctx, e.render, finalRaw)
}

// Health reports readiness of every stage adapter.
func (e *Executor) Health(ctx context.Context) []stage.Health {
	adapters := []stage.Adapter{e.voice, e.avatar, e.lipSync, e.render, e.video}
	healths := make([]stage.Health, 0, len(adapters))
	for _, adapter := range adapters {
		healths = append(healths, adapter.HealthCheck(ctx))
	}
	return healths
}
