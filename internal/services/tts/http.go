package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"renderforge/internal/services"
)

const defaultRequestTimeout = 120 * time.Second

// HTTPClient calls a remote synthesis engine over its JSON API and saves
// the returned audio stream.
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPClient builds a client for the engine at baseURL.
func NewHTTPClient(baseURL, apiKey string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: defaultRequestTimeout},
	}
}

// Name identifies the backend in logs and errors.
func (c *HTTPClient) Name() string { return "http" }

// Synthesize posts the script to the engine and writes the audio response
// to req.OutputPath.
func (c *HTTPClient) Synthesize(ctx context.Context, req Request) error {
	if strings.TrimSpace(req.Text) == "" {
		return services.Wrap(services.ErrValidation, "voice", "synthesize", "text is empty", nil)
	}
	body, err := json.Marshal(map[string]string{
		"text":     req.Text,
		"voice_id": req.VoiceID,
	})
	if err != nil {
		return fmt.Errorf("encode synthesis request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/generate", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build synthesis request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return services.Wrap(services.ErrTransient, "voice", "synthesize", "synthesis engine unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return services.Wrap(services.ErrExternalTool, "voice", "synthesize",
			fmt.Sprintf("synthesis engine returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))), nil)
	}

	if err := os.MkdirAll(filepath.Dir(req.OutputPath), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	out, err := os.Create(req.OutputPath)
	if err != nil {
		return fmt.Errorf("create audio file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return services.Wrap(services.ErrTransient, "voice", "synthesize", "stream audio response", err)
	}
	return nil
}

// Ping checks the engine health endpoint.
func (c *HTTPClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "voice", "ping", "synthesis engine unreachable", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return services.Wrap(services.ErrExternalTool, "voice", "ping",
			fmt.Sprintf("synthesis engine returned %d", resp.StatusCode), nil)
	}
	return nil
}
