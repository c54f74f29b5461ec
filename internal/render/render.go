// Package render is the composition stage: it assembles produced assets
// into the final deliverable video with the encoder service.
package render

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/lithammer/shortuuid/v4"

	"renderforge/internal/compose"
	"renderforge/internal/logging"
	"renderforge/internal/payload"
	"renderforge/internal/services"
	"renderforge/internal/services/ffmpeg"
	"renderforge/internal/stage"
)

// Adapter composes final videos from voice, avatar, background, and music
// assets. The avatar asset may be a frame directory from the lip-sync
// stage or an already-encoded video; frames are assembled first, then
// everything is composited.
type Adapter struct {
	encoder    *ffmpeg.Encoder
	fps        int
	width      int
	height     int
	stagingDir string
	outputDir  string
	logger     *slog.Logger
}

// New constructs the render stage adapter.
func New(encoder *ffmpeg.Encoder, fps, width, height int, stagingDir, outputDir string, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Adapter{
		encoder:    encoder,
		fps:        fps,
		width:      width,
		height:     height,
		stagingDir: stagingDir,
		outputDir:  outputDir,
		logger:     logger,
	}
}

// Name identifies the stage.
func (a *Adapter) Name() string { return "render" }

// Run produces the final video and reports its path. A mux failure
// downgrades the result instead of failing it; the degraded flag and note
// surface on the job record.
func (a *Adapter) Run(ctx context.Context, raw json.RawMessage) (stage.Result, error) {
	p, err := payload.ParseFinal(raw)
	if err != nil {
		return stage.Result{}, err
	}

	id := artifactID(ctx)
	avatarVideo := p.AvatarPath
	info, err := os.Stat(avatarVideo)
	if err != nil {
		return stage.Result{}, services.Wrap(services.ErrValidation, "render", "run",
			fmt.Sprintf("avatar asset %s is not readable", avatarVideo), err)
	}
	if info.IsDir() {
		assembled := filepath.Join(a.stagingDir, fmt.Sprintf("avatar-%s.mp4", id))
		defer func() { _ = os.Remove(assembled) }()
		if _, err := a.encoder.FramesToVideo(ctx, avatarVideo, a.fps, "", assembled); err != nil {
			return stage.Result{}, err
		}
		avatarVideo = assembled
	}

	graph, err := compose.Build(compose.Inputs{
		VideoPath:      avatarVideo,
		BackgroundPath: p.BackgroundPath,
		VoicePath:      p.VoicePath,
		MusicPath:      p.MusicPath,
		VoiceVolume:    p.Volume,
		MusicVolume:    p.MusicVolume,
		Width:          a.width,
		Height:         a.height,
	})
	if err != nil {
		return stage.Result{}, err
	}

	out := filepath.Join(a.outputDir, fmt.Sprintf("final-%s.mp4", id))
	result, err := a.encoder.Compose(ctx, graph, out)
	if err != nil {
		return stage.Result{}, err
	}

	logging.WithContext(ctx, a.logger).Info("final video rendered",
		logging.String("output", result.OutputPath),
		logging.Bool("degraded", result.Degraded))
	return stage.Result{
		OutputPath: result.OutputPath,
		Degraded:   result.Degraded,
		Note:       result.Note,
	}, nil
}

// HealthCheck reports whether the encoder binary is runnable.
func (a *Adapter) HealthCheck(ctx context.Context) stage.Health {
	if err := a.encoder.Ping(ctx); err != nil {
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
