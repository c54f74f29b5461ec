package wav2lip

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"renderforge/internal/services"
)

const defaultRequestTimeout = 10 * time.Minute

// HTTPClient calls a lip-sync engine sharing a filesystem with the worker.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient builds a client for the engine at baseURL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: defaultRequestTimeout},
	}
}

// Name identifies the backend in logs and errors.
func (c *HTTPClient) Name() string { return "http" }

// Sync asks the engine to render the frame sequence into req.FramesDir.
func (c *HTTPClient) Sync(ctx context.Context, req Request) (Result, error) {
	body, err := json.Marshal(map[string]any{
		"model_path": req.ModelPath,
		"audio_path": req.AudioPath,
		"frames_dir": req.FramesDir,
		"fps":        req.FPS,
	})
	if err != nil {
		return Result{}, fmt.Errorf("encode lipsync request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/sync", bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("build lipsync request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return Result{}, services.Wrap(services.ErrTransient, "lipsync", "sync", "lipsync engine unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return Result{}, services.Wrap(services.ErrExternalTool, "lipsync", "sync",
			fmt.Sprintf("lipsync engine returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))), nil)
	}

	var payload struct {
		Frames    int    `json:"frames"`
		FramesDir string `json:"frames_dir"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, "lipsync", "sync", "decode lipsync response", err)
	}
	if payload.Frames == 0 {
		return Result{}, services.Wrap(services.ErrExternalTool, "lipsync", "sync", "engine rendered zero frames", nil)
	}
	result := Result{Frames: payload.Frames, FramesDir: payload.FramesDir}
	if result.FramesDir == "" {
		result.FramesDir = req.FramesDir
	}
	return result, nil
}

// Ping checks the engine health endpoint.
func (c *HTTPClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "lipsync", "ping", "lipsync engine unreachable", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return services.Wrap(services.ErrExternalTool, "lipsync", "ping",
			fmt.Sprintf("lipsync engine returned %d", resp.StatusCode), nil)
	}
	return nil
}
