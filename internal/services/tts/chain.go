package tts

import (
	"context"
	"errors"
	"fmt"

	"renderforge/internal/services"
)

// Chain tries each synthesizer in order and returns the first success.
// Validation failures stop the chain immediately; a payload a backend
// rejects as malformed will be rejected by every backend.
type Chain struct {
	backends []Synthesizer
}

// NewChain builds a fallback chain over the given backends.
func NewChain(backends ...Synthesizer) *Chain {
	return &Chain{backends: backends}
}

// Backends returns the configured backend names in fallback order.
func (c *Chain) Backends() []string {
	names := make([]string, len(c.backends))
	for i, backend := range c.backends {
		names[i] = backend.Name()
	}
	return names
}

// Synthesize runs the chain. With no backends configured it fails with a
// configuration error rather than silently producing nothing.
func (c *Chain) Synthesize(ctx context.Context, req Request) (string, error) {
	if len(c.backends) == 0 {
		return "", services.Wrap(services.ErrConfiguration, "voice", "synthesize", "no synthesis backends configured", nil)
	}
	var lastErr error
	for _, backend := range c.backends {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		err := backend.Synthesize(ctx, req)
		if err == nil {
			return backend.Name(), nil
		}
		if errors.Is(err, services.ErrValidation) {
			return "", err
		}
		lastErr = fmt.Errorf("backend %s: %w", backend.Name(), err)
	}
	return "", lastErr
}

// Ping reports healthy when any backend in the chain responds.
func (c *Chain) Ping(ctx context.Context) error {
	if len(c.backends) == 0 {
		return services.Wrap(services.ErrConfiguration, "voice", "ping", "no synthesis backends configured", nil)
	}
	var lastErr error
	for _, backend := range c.backends {
		err := backend.Ping(ctx)
		if err == nil {
			return nil
		}
		lastErr = fmt.Errorf("backend %s: %w", backend.Name(), err)
	}
	return lastErr
}
