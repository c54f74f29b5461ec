package facemesh

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"renderforge/internal/services"
)

var imageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".webp": {},
}

// Stub counts face images on disk and writes a small model manifest. One
// image is treated as one face.
type Stub struct{}

// NewStub builds a stub extractor.
func NewStub() *Stub {
	return &Stub{}
}

// Name identifies the backend in logs and errors.
func (s *Stub) Name() string { return "stub" }

// Extract scans the image directory and writes the manifest to
// req.OutputPath. A directory with no images fails the same way a real
// engine finding no faces would.
func (s *Stub) Extract(ctx context.Context, req Request) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	entries, err := os.ReadDir(req.ImageDir)
	if err != nil {
		return Result{}, services.Wrap(services.ErrValidation, "avatar", "extract",
			fmt.Sprintf("image directory %s is not readable", req.ImageDir), err)
	}

	var images []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if _, ok := imageExtensions[ext]; ok {
			images = append(images, entry.Name())
		}
	}
	if len(images) == 0 {
		return Result{}, services.Wrap(services.ErrValidation, "avatar", "extract", "no faces detected in input images", nil)
	}

	manifest := map[string]any{
		"name":         req.Name,
		"faces":        len(images),
		"source_dir":   req.ImageDir,
		"images":       images,
		"generated_at": time.Now().UTC().Format(time.RFC3339),
	}
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return Result{}, fmt.Errorf("encode model manifest: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(req.OutputPath), 0o755); err != nil {
		return Result{}, fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(req.OutputPath, data, 0o644); err != nil {
		return Result{}, fmt.Errorf("write model manifest: %w", err)
	}
	return Result{Faces: len(images), OutputPath: req.OutputPath}, nil
}

// Ping always succeeds; the stub has no external dependency.
func (s *Stub) Ping(ctx context.Context) error {
	return ctx.Err()
}
