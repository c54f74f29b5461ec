// Package tts synthesizes speech audio from text scripts. Backends share
// one Synthesizer contract; a Chain tries them in configured order so a
// remote engine can fall back to the local stub.
package tts

import (
	"context"
	"fmt"

	"renderforge/internal/config"
	"renderforge/internal/services"
)

// Request describes one synthesis call. OutputPath names the file the
// backend writes the audio to.
type Request struct {
	Text       string
	VoiceID    string
	OutputPath string
}

// Synthesizer turns a text script into an audio file.
type Synthesizer interface {
	Name() string
	Synthesize(ctx context.Context, req Request) error
	Ping(ctx context.Context) error
}

// FromConfig builds the synthesis chain selected by the voice configuration.
func FromConfig(cfg config.Voice) (*Chain, error) {
	backends := make([]Synthesizer, 0, len(cfg.Backends))
	for _, name := range cfg.Backends {
		switch name {
		case "http":
			backends = append(backends, NewHTTPClient(cfg.BaseURL, cfg.APIKey))
		case "stub":
			backends = append(backends, NewStub())
		default:
			return nil, services.Wrap(services.ErrConfiguration, "voice", "configure",
				fmt.Sprintf("unknown voice backend %q", name), nil)
		}
	}
	return NewChain(backends...), nil
}
