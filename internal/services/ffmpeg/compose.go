package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lithammer/shortuuid/v4"

	"renderforge/internal/compose"
	"renderforge/internal/logging"
	"renderforge/internal/services"
)

// ComposeResult reports a finished composition. Degraded marks a video
// delivered without its audio track after the mux pass failed.
type ComposeResult struct {
	OutputPath string
	Degraded   bool
	Note       string
}

// Compose renders the graph in two passes. The first pass flattens the
// visual layers into a silent intermediate; the second muxes the audio
// onto it. When the mux pass fails the silent intermediate is promoted to
// the output path instead of failing the whole job.
func (e *Encoder) Compose(ctx context.Context, graph compose.Graph, outputPath string) (ComposeResult, error) {
	inputs := append(append([]string{}, graph.VideoInputs...), graph.AudioInputs...)
	if err := requireFiles("compose", inputs...); err != nil {
		return ComposeResult{}, err
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return ComposeResult{}, fmt.Errorf("create output directory: %w", err)
	}

	intermediate := filepath.Join(filepath.Dir(outputPath), "video-"+shortuuid.New()+".mp4")
	defer func() { _ = os.Remove(intermediate) }()

	if err := e.run(ctx, "compose video pass", e.videoPassArgs(graph, intermediate)); err != nil {
		return ComposeResult{}, err
	}

	muxErr := e.run(ctx, "compose audio pass", e.audioPassArgs(graph, intermediate, outputPath))
	if muxErr == nil {
		return ComposeResult{OutputPath: outputPath}, nil
	}
	if ctx.Err() != nil {
		return ComposeResult{}, ctx.Err()
	}

	// The visual composition succeeded; deliver it silent rather than
	// discarding the work.
	if err := os.Rename(intermediate, outputPath); err != nil {
		return ComposeResult{}, fmt.Errorf("promote silent video: %w", err)
	}
	logging.WithContext(ctx, e.logger).Warn("audio mux failed, delivering video without audio",
		logging.Error(muxErr), logging.String("output", outputPath))
	return ComposeResult{
		OutputPath: outputPath,
		Degraded:   true,
		Note:       "audio mux failed: " + services.Message(muxErr),
	}, nil
}

func (e *Encoder) videoPassArgs(graph compose.Graph, intermediate string) []string {
	args := []string{"-y", "-hide_banner", "-loglevel", "error"}
	for _, input := range graph.VideoInputs {
		args = append(args, "-i", input)
	}
	if len(graph.VideoOps) > 0 {
		args = append(args, "-filter_complex", renderFilter(graph.VideoOps))
	}
	args = append(args, "-map", mapArg(graph.VideoOut), "-an")
	args = append(args, e.videoCodecArgs()...)
	args = append(args, e.extraArgs...)
	return append(args, intermediate)
}

func (e *Encoder) audioPassArgs(graph compose.Graph, intermediate, outputPath string) []string {
	args := []string{"-y", "-hide_banner", "-loglevel", "error", "-i", intermediate}
	for _, input := range graph.AudioInputs {
		args = append(args, "-i", input)
	}
	if len(graph.AudioOps) > 0 {
		args = append(args, "-filter_complex", renderFilter(graph.AudioOps))
	}
	args = append(args, "-map", "0:v", "-map", mapArg(graph.AudioOut), "-c:v", "copy")
	args = append(args, e.audioCodecArgs()...)
	args = append(args, "-shortest")
	return append(args, outputPath)
}
