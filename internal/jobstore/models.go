package jobstore

import (
	"encoding/json"
	"strings"
	"time"
)

// Status represents the lifecycle of a render job. Transitions are monotonic:
// queued -> processing -> completed | error. Terminal states never change.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

var allStatuses = []Status{
	StatusQueued,
	StatusProcessing,
	StatusCompleted,
	StatusError,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// Terminal reports whether the status permits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// JobType names the kind of rendering work a job carries.
type JobType string

const (
	TypeVoice      JobType = "voice"
	TypeAvatar     JobType = "avatar"
	TypeFullAvatar JobType = "full_avatar"
	TypeVideo      JobType = "video"
	TypeFinal      JobType = "final"
)

var allTypes = []JobType{TypeVoice, TypeAvatar, TypeFullAvatar, TypeVideo, TypeFinal}

// ParseJobType converts a string into a known JobType.
func ParseJobType(value string) (JobType, bool) {
	normalized := JobType(strings.ToLower(strings.TrimSpace(value)))
	for _, t := range allTypes {
		if t == normalized {
			return t, true
		}
	}
	return "", false
}

// Job is a persisted render job record. Jobs are created by an external
// submitter, claimed by exactly one worker, and mutated only by that worker.
// Workers never delete jobs; terminal states are durable.
type Job struct {
	ID           string          `json:"id"`
	Type         JobType         `json:"type"`
	Payload      json.RawMessage `json:"payload"`
	Status       Status          `json:"status"`
	Progress     int             `json:"progress"`
	ResultURL    string          `json:"result_url,omitempty"`
	ErrorMessage string          `json:"error,omitempty"`
	Degraded     bool            `json:"degraded,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Update carries a partial field update for a job record. Only non-nil
// fields are written; everything else is left untouched.
type Update struct {
	Status   *Status `json:"status,omitempty"`
	Progress *int    `json:"progress,omitempty"`
	Result   *string `json:"result_url,omitempty"`
	Error    *string `json:"error,omitempty"`
	Degraded *bool   `json:"degraded,omitempty"`
}

// Empty reports whether the update would write nothing.
func (u Update) Empty() bool {
	return u.Status == nil && u.Progress == nil && u.Result == nil && u.Error == nil && u.Degraded == nil
}

// StatusOf returns a pointer suitable for Update.Status.
func StatusOf(s Status) *Status { return &s }

// IntOf returns a pointer suitable for Update.Progress.
func IntOf(v int) *int { return &v }

// StringOf returns a pointer suitable for Update.Result and Update.Error.
func StringOf(v string) *string { return &v }

// BoolOf returns a pointer suitable for Update.Degraded.
func BoolOf(v bool) *bool { return &v }

// HealthSummary describes aggregated job counts per lifecycle state.
type HealthSummary struct {
	Total      int
	Queued     int
	Processing int
	Completed  int
	Errored    int
}
