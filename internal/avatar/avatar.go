// Package avatar is the extraction stage: it builds a reusable avatar
// model from a directory of face images.
package avatar

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
	"renderforge/internal/services/facemesh"
	"renderforge/internal/stage"
)

// Adapter runs avatar extraction for a job.
type Adapter struct {
	extractor facemesh.Extractor
	outputDir string
	logger    *slog.Logger
}

// New constructs the avatar stage adapter.
func New(extractor facemesh.Extractor, outputDir string, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Adapter{extractor: extractor, outputDir: outputDir, logger: logger}
}

// Name identifies the stage.
func (a *Adapter) Name() string { return "avatar" }

// Run extracts the avatar model and returns its path.
func (a *Adapter) Run(ctx context.Context, raw json.RawMessage) (stage.Result, error) {
	p, err := payload.ParseAvatar(raw)
	if err != nil {
		return stage.Result{}, err
	}

	out := filepath.Join(a.outputDir, fmt.Sprintf("%s-%s.model.json", p.Name, artifactID(ctx)))
	result, err := a.extractor.Extract(ctx, facemesh.Request{
		ImageDir:   p.ImageDir,
		Name:       p.Name,
		OutputPath: out,
	})
	if err != nil {
		return stage.Result{}, err
	}

	logging.WithContext(ctx, a.logger).Info("avatar model extracted",
		logging.String("backend", a.extractor.Name()),
		logging.Int("faces", result.Faces),
		logging.String("output", result.OutputPath))
	return stage.Result{OutputPath: result.OutputPath}, nil
}

// HealthCheck reports whether the extraction engine responds.
func (a *Adapter) HealthCheck(ctx context.Context) stage.Health {
	if err := a.extractor.Ping(ctx); err != nil {
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
