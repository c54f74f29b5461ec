package jobstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"renderforge/internal/config"
	"renderforge/internal/services"
)

// RESTStore talks to a PostgREST-style job table over HTTP. Rows are
// filtered with query operators (status=eq.queued) and mutated with
// conditional PATCH requests, which keeps the claim race on the server.
type RESTStore struct {
	baseURL    string
	table      string
	serviceKey string
	client     *http.Client
}

// NewRESTStore builds a remote job store from the store configuration.
func NewRESTStore(cfg config.Store) *RESTStore {
	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RESTStore{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		table:      cfg.Table,
		serviceKey: cfg.ServiceKey,
		client:     &http.Client{Timeout: timeout},
	}
}

// Close releases idle connections.
func (s *RESTStore) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

func (s *RESTStore) tableURL(query url.Values) string {
	u := s.baseURL + "/" + s.table
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (s *RESTStore) do(ctx context.Context, method, rawURL string, body any, representation bool) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("apikey", s.serviceKey)
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if representation {
		req.Header.Set("Prefer", "return=representation")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "store", strings.ToLower(method), "job store request failed", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "store", strings.ToLower(method), "read job store response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail := fmt.Sprintf("job store returned %d: %s", resp.StatusCode, truncateBody(payload))
		marker := services.ErrExternalTool
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			marker = services.ErrConfiguration
		}
		return nil, services.Wrap(marker, "store", strings.ToLower(method), detail, nil)
	}
	return payload, nil
}

func truncateBody(body []byte) string {
	const limit = 200
	text := strings.TrimSpace(string(body))
	if len(text) > limit {
		return text[:limit] + "..."
	}
	return text
}

func decodeJobs(payload []byte) ([]*Job, error) {
	var jobs []*Job
	if err := json.Unmarshal(payload, &jobs); err != nil {
		return nil, fmt.Errorf("decode job rows: %w", err)
	}
	return jobs, nil
}

// NextQueued returns the oldest queued job, or nil when the queue is empty.
func (s *RESTStore) NextQueued(ctx context.Context) (*Job, error) {
	query := url.Values{}
	query.Set("status", "eq."+string(StatusQueued))
	query.Set("order", "created_at.asc")
	query.Set("limit", "1")
	query.Set("select", "*")

	payload, err := s.do(ctx, http.MethodGet, s.tableURL(query), nil, false)
	if err != nil {
		return nil, err
	}
	jobs, err := decodeJobs(payload)
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, nil
	}
	return jobs[0], nil
}

// Claim transitions the job from queued to processing. The status filter on
// the PATCH makes the transition conditional, so a concurrent claim by
// another worker leaves this request matching zero rows.
func (s *RESTStore) Claim(ctx context.Context, id string) (*Job, error) {
	query := url.Values{}
	query.Set("id", "eq."+id)
	query.Set("status", "eq."+string(StatusQueued))

	body := map[string]any{
		"status":   string(StatusProcessing),
		"progress": 0,
		"error":    "",
	}
	payload, err := s.do(ctx, http.MethodPatch, s.tableURL(query), body, true)
	if err != nil {
		return nil, err
	}
	jobs, err := decodeJobs(payload)
	if err != nil {
		return nil, err
	}
	if len(jobs) > 0 {
		return jobs[0], nil
	}

	existing, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, services.Wrap(services.ErrNotFound, "store", "claim", fmt.Sprintf("job %s does not exist", id), nil)
	}
	return nil, fmt.Errorf("job %s is %s: %w", id, existing.Status, ErrClaimConflict)
}

// Update applies a partial field update to the job record.
func (s *RESTStore) Update(ctx context.Context, id string, update Update) error {
	if update.Empty() {
		return nil
	}
	query := url.Values{}
	query.Set("id", "eq."+id)

	payload, err := s.do(ctx, http.MethodPatch, s.tableURL(query), update, true)
	if err != nil {
		return err
	}
	jobs, err := decodeJobs(payload)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		return services.Wrap(services.ErrNotFound, "store", "update", fmt.Sprintf("job %s does not exist", id), nil)
	}
	return nil
}

// GetByID fetches a single job, or nil when no such job exists.
func (s *RESTStore) GetByID(ctx context.Context, id string) (*Job, error) {
	query := url.Values{}
	query.Set("id", "eq."+id)
	query.Set("limit", "1")
	query.Set("select", "*")

	payload, err := s.do(ctx, http.MethodGet, s.tableURL(query), nil, false)
	if err != nil {
		return nil, err
	}
	jobs, err := decodeJobs(payload)
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, nil
	}
	return jobs[0], nil
}

// Enqueue inserts a new queued job and returns the stored record.
func (s *RESTStore) Enqueue(ctx context.Context, jobType JobType, payload json.RawMessage) (*Job, error) {
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}
	now := time.Now().UTC()
	body := map[string]any{
		"id":         uuid.NewString(),
		"type":       string(jobType),
		"payload":    payload,
		"status":     string(StatusQueued),
		"created_at": now.Format(time.RFC3339Nano),
		"updated_at": now.Format(time.RFC3339Nano),
	}
	response, err := s.do(ctx, http.MethodPost, s.tableURL(nil), body, true)
	if err != nil {
		return nil, err
	}
	jobs, err := decodeJobs(response)
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, fmt.Errorf("job store returned no row for inserted job")
	}
	return jobs[0], nil
}

// List returns jobs filtered by status, newest first.
func (s *RESTStore) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	query := url.Values{}
	query.Set("select", "*")
	query.Set("order", "created_at.desc")
	if len(statuses) > 0 {
		values := make([]string, len(statuses))
		for i, status := range statuses {
			values[i] = string(status)
		}
		query.Set("status", "in.("+strings.Join(values, ",")+")")
	}
	payload, err := s.do(ctx, http.MethodGet, s.tableURL(query), nil, false)
	if err != nil {
		return nil, err
	}
	return decodeJobs(payload)
}

// Health reports aggregate job counts per status.
func (s *RESTStore) Health(ctx context.Context) (HealthSummary, error) {
	query := url.Values{}
	query.Set("select", "status")

	payload, err := s.do(ctx, http.MethodGet, s.tableURL(query), nil, false)
	if err != nil {
		return HealthSummary{}, err
	}
	var rows []struct {
		Status Status `json:"status"`
	}
	if err := json.Unmarshal(payload, &rows); err != nil {
		return HealthSummary{}, fmt.Errorf("decode status rows: %w", err)
	}
	summary := HealthSummary{Total: len(rows)}
	for _, row := range rows {
		switch row.Status {
		case StatusQueued:
			summary.Queued++
		case StatusProcessing:
			summary.Processing++
		case StatusCompleted:
			summary.Completed++
		case StatusError:
			summary.Errored++
		}
	}
	return summary, nil
}
