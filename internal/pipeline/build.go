package pipeline

import (
	"fmt"
	"log/slog"

	"renderforge/internal/avatar"
	"renderforge/internal/config"
	"renderforge/internal/lipsync"
	"renderforge/internal/render"
	"renderforge/internal/services/facemesh"
	"renderforge/internal/services/ffmpeg"
	"renderforge/internal/services/tts"
	"renderforge/internal/services/wav2lip"
	"renderforge/internal/synthesis"
)

// FromConfig assembles the stage adapters and the executor from
// configuration. Both the daemon and the CLI build the pipeline through
// this path.
func FromConfig(cfg *config.Config, logger *slog.Logger) (*Executor, error) {
	chain, err := tts.FromConfig(cfg.Voice)
	if err != nil {
		return nil, fmt.Errorf("voice backends: %w", err)
	}
	extractor, err := facemesh.FromConfig(cfg.Avatar)
	if err != nil {
		return nil, fmt.Errorf("avatar backend: %w", err)
	}
	syncer, err := wav2lip.FromConfig(cfg.LipSync)
	if err != nil {
		return nil, fmt.Errorf("lip-sync backend: %w", err)
	}
	encoder, err := ffmpeg.New(cfg.Encode, ffmpeg.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("encoder: %w", err)
	}

	fps := cfg.LipSync.FPS
	width := cfg.Encode.ScaleWidth
	height := cfg.Encode.ScaleHeight
	staging := cfg.Paths.StagingDir
	output := cfg.Paths.OutputDir

	return New(
		synthesis.New(chain, cfg.Voice.DefaultVoice, output, logger),
		avatar.New(extractor, output, logger),
		lipsync.New(syncer, fps, staging, logger),
		render.New(encoder, fps, width, height, staging, output, logger),
		render.NewVideo(chain, encoder, cfg.Voice.DefaultVoice, fps, width, height, staging, output, logger),
		logger,
	), nil
}
