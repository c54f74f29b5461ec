// Package wav2lip drives the lip-sync engine: given an avatar model and a
// voice track it produces the frame sequence of the speaking avatar. The
// stub backend fabricates placeholder frames so the pipeline stays
// runnable without the engine.
package wav2lip

import (
	"context"

	"renderforge/internal/config"
	"renderforge/internal/services"
)

// Request describes one lip-sync call. FramesDir receives the numbered
// frame images.
type Request struct {
	ModelPath string
	AudioPath string
	FramesDir string
	FPS       int
}

// Result reports the rendered frame sequence.
type Result struct {
	Frames    int
	FramesDir string
}

// Syncer renders lip-synced avatar frames for a voice track.
type Syncer interface {
	Name() string
	Sync(ctx context.Context, req Request) (Result, error)
	Ping(ctx context.Context) error
}

// FromConfig builds the syncer selected by the lip-sync configuration.
func FromConfig(cfg config.LipSync) (Syncer, error) {
	switch cfg.Backend {
	case "http":
		return NewHTTPClient(cfg.BaseURL), nil
	case "stub":
		return NewStub(), nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "lipsync", "configure",
			"unknown lipsync backend "+cfg.Backend, nil)
	}
}
