package facemesh

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

const defaultRequestTimeout = 5 * time.Minute

// HTTPClient calls a mesh-extraction engine that shares a filesystem with
// the worker. The engine writes the model to the requested path and
// reports how many faces it found.
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

// Extract asks the engine to build an avatar model from the image
// directory. An extraction that finds no faces is permanent; retrying on
// the same images cannot succeed.
func (c *HTTPClient) Extract(ctx context.Context, req Request) (Result, error) {
	body, err := json.Marshal(map[string]string{
		"image_dir":   req.ImageDir,
		"name":        req.Name,
		"output_path": req.OutputPath,
	})
	if err != nil {
		return Result{}, fmt.Errorf("encode extraction request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/extract", bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("build extraction request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return Result{}, services.Wrap(services.ErrTransient, "avatar", "extract", "extraction engine unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return Result{}, services.Wrap(services.ErrExternalTool, "avatar", "extract",
			fmt.Sprintf("extraction engine returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))), nil)
	}

	var payload struct {
		Faces      int    `json:"faces"`
		OutputPath string `json:"output_path"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, "avatar", "extract", "decode extraction response", err)
	}
	if payload.Faces == 0 {
		return Result{}, services.Wrap(services.ErrValidation, "avatar", "extract", "no faces detected in input images", nil)
	}
	result := Result{Faces: payload.Faces, OutputPath: payload.OutputPath}
	if result.OutputPath == "" {
		result.OutputPath = req.OutputPath
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
		return services.Wrap(services.ErrTransient, "avatar", "ping", "extraction engine unreachable", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return services.Wrap(services.ErrExternalTool, "avatar", "ping",
			fmt.Sprintf("extraction engine returned %d", resp.StatusCode), nil)
	}
	return nil
}
