package stage

import (
	"context"
	"encoding/json"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Result is what a completed stage hands back to the pipeline.
type Result struct {
	// OutputPath points at the artifact the stage produced.
	OutputPath string
	// Degraded marks a success that fell short of the full request, such
	// as a video delivered without its audio track.
	Degraded bool
	// Note carries a short human-readable qualifier for degraded results.
	Note string
}

// Adapter describes the contract the pipeline needs from each stage.
type Adapter interface {
	Name() string
	Run(ctx context.Context, payload json.RawMessage) (Result, error)
	HealthCheck(ctx context.Context) Health
}

// Health summarizes the readiness of a stage and its backing engine.
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

// Healthy constructs a ready Health record.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy constructs an unhealthy Health record with context detail.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Ready: false, Detail: detail}
}

var titleCaser = cases.Title(language.English)

// Label renders a stage name for logs and CLI output, turning
// "full_avatar" into "Full Avatar".
func Label(name string) string {
	cleaned := strings.ReplaceAll(strings.TrimSpace(name), "_", " ")
	if cleaned == "" {
		return ""
	}
	return titleCaser.String(cleaned)
}
