// Package facemesh extracts a reusable avatar model from a directory of
// face images. The HTTP backend fronts a mesh-extraction engine sharing a
// filesystem with the worker; the stub keeps the pipeline runnable
// without one.
package facemesh

import (
	"context"

	"renderforge/internal/config"
	"renderforge/internal/services"
)

// Request describes one extraction call.
type Request struct {
	ImageDir   string
	Name       string
	OutputPath string
}

// Result reports what the engine produced. Faces is the number of usable
// faces found across the input images.
type Result struct {
	Faces      int
	OutputPath string
}

// Extractor builds an avatar model from face images.
type Extractor interface {
	Name() string
	Extract(ctx context.Context, req Request) (Result, error)
	Ping(ctx context.Context) error
}

// FromConfig builds the extractor selected by the avatar configuration.
func FromConfig(cfg config.Avatar) (Extractor, error) {
	switch cfg.Backend {
	case "http":
		return NewHTTPClient(cfg.BaseURL), nil
	case "stub":
		return NewStub(), nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "avatar", "configure",
			"unknown avatar backend "+cfg.Backend, nil)
	}
}
