// Package synthesis is the voice stage: it turns a job's text script into
// an audio artifact via the configured synthesis chain.
package synthesis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/lithammer/shortuuid/v4"

	"renderforge/internal/logging"
	"renderforge/internal/payload"
	"renderforge/internal/services"
	"renderforge/internal/services/tts"
	"renderforge/internal/stage"
)

// Adapter runs voice synthesis for a job.
type Adapter struct {
	chain        *tts.Chain
	defaultVoice string
	outputDir    string
	logger       *slog.Logger
}

// New constructs the voice stage adapter.
func New(chain *tts.Chain, defaultVoice, outputDir string, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Adapter{
		chain:        chain,
		defaultVoice: defaultVoice,
		outputDir:    outputDir,
		logger:       logger,
	}
}

// Name identifies the stage.
func (a *Adapter) Name() string { return "voice" }

// Run synthesizes the script and returns the audio artifact path.
func (a *Adapter) Run(ctx context.Context, raw json.RawMessage) (stage.Result, error) {
	p, err := payload.ParseVoice(raw)
	if err != nil {
		return stage.Result{}, err
	}
	voiceID := p.VoiceID
	if voiceID == "" {
		voiceID = a.defaultVoice
	}

	out := filepath.Join(a.outputDir, fmt.Sprintf("voice-%s.wav", artifactID(ctx)))
	backend, err := a.chain.Synthesize(ctx, tts.Request{
		Text:       p.Text,
		VoiceID:    voiceID,
		OutputPath: out,
	})
	if err != nil {
		return stage.Result{}, err
	}

	logging.WithContext(ctx, a.logger).Info("voice synthesized",
		logging.String("backend", backend),
		logging.String("voice_id", voiceID),
		logging.String("output", out))
	return stage.Result{OutputPath: out}, nil
}

// HealthCheck reports whether any synthesis backend responds.
func (a *Adapter) HealthCheck(ctx context.Context) stage.Health {
	if err := a.chain.Ping(ctx); err != nil {
		return stage.Unhealthy(a.Name(), services.Message(err))
	}
	return stage.Healthy(a.Name())
}

// artifactID keys output files to the job when one is on the context, and
// falls back to a fresh id for ad-hoc runs.
func artifactID(ctx context.Context) string {
	if id, ok := services.JobIDFromContext(ctx); ok && id != "" {
		return id
	}
	return shortuuid.New()
}
