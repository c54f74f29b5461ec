package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"renderforge/internal/logging"
	"renderforge/internal/services"
)

// framePattern matches the numbered frames written by the lip-sync
// engine.
const framePattern = "frame_%05d.png"

// FramesToVideo assembles a numbered frame sequence and a voice track
// into the final video. With an empty audioPath the output is silent by
// request, not degraded. When audio was requested but the mux attempt
// fails, the frames are re-encoded without it and the result is marked
// degraded.
func (e *Encoder) FramesToVideo(ctx context.Context, framesDir string, fps int, audioPath, outputPath string) (ComposeResult, error) {
	if fps <= 0 {
		return ComposeResult{}, services.Wrap(services.ErrValidation, "encode", "frames", "fps must be positive", nil)
	}
	entries, err := os.ReadDir(framesDir)
	if err != nil {
		return ComposeResult{}, services.Wrap(services.ErrValidation, "encode", "frames",
			fmt.Sprintf("frames directory %s is not readable", framesDir), err)
	}
	if len(entries) == 0 {
		return ComposeResult{}, services.Wrap(services.ErrValidation, "encode", "frames",
			fmt.Sprintf("frames directory %s is empty", framesDir), nil)
	}
	if err := requireFiles("frames", audioPath); err != nil {
		return ComposeResult{}, err
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return ComposeResult{}, fmt.Errorf("create output directory: %w", err)
	}

	runErr := e.run(ctx, "frames to video", e.framesArgs(framesDir, fps, audioPath, outputPath))
	if runErr == nil {
		return ComposeResult{OutputPath: outputPath}, nil
	}
	if ctx.Err() != nil {
		return ComposeResult{}, ctx.Err()
	}
	if audioPath == "" {
		return ComposeResult{}, runErr
	}

	// Retry without the audio track before giving up on the job.
	silentErr := e.run(ctx, "frames to video", e.framesArgs(framesDir, fps, "", outputPath))
	if silentErr != nil {
		return ComposeResult{}, runErr
	}
	logging.WithContext(ctx, e.logger).Warn("audio mux failed, delivering video without audio",
		logging.Error(runErr), logging.String("output", outputPath))
	return ComposeResult{
		OutputPath: outputPath,
		Degraded:   true,
		Note:       "audio mux failed: " + services.Message(runErr),
	}, nil
}

func (e *Encoder) framesArgs(framesDir string, fps int, audioPath, outputPath string) []string {
	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-framerate", strconv.Itoa(fps),
		"-i", filepath.Join(framesDir, framePattern),
	}
	if audioPath != "" {
		args = append(args, "-i", audioPath)
	}
	args = append(args, e.videoCodecArgs()...)
	args = append(args, "-pix_fmt", "yuv420p")
	if audioPath != "" {
		args = append(args, e.audioCodecArgs()...)
		args = append(args, "-shortest")
	}
	args = append(args, e.extraArgs...)
	return append(args, outputPath)
}
