// Package preflight verifies the worker host before the queue starts
// draining: directories, system resources, the encoder binary, the job
// store, and the stage engines.
package preflight

import (
	"context"

	"renderforge/internal/config"
	"renderforge/internal/jobstore"
	"renderforge/internal/stage"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// StageChecker exposes the stage health checks; the pipeline executor
// satisfies this.
type StageChecker interface {
	Health(ctx context.Context) []stage.Health
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config, store jobstore.Store, stages StageChecker) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	results = append(results, CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir))
	results = append(results, CheckDirectoryAccess("Staging directory", cfg.Paths.StagingDir))
	results = append(results, CheckFFmpeg(cfg.FFmpegBinary()))

	if cfg.Preflight.Enabled {
		results = append(results, CheckDiskSpace(cfg.Paths.StagingDir, cfg.Preflight.MinFreeDiskGiB))
		results = append(results, CheckMemory(cfg.Preflight.MinFreeMemMB))
		results = append(results, CheckCPULoad(ctx, cfg.Preflight.MaxCPUPercent))
	}

	if store != nil {
		results = append(results, CheckStore(ctx, store))
	}
	if stages != nil {
		for _, health := range stages.Health(ctx) {
			results = append(results, Result{
				Name:   "Stage " + stage.Label(health.Name),
				Passed: health.Ready,
				Detail: stageDetail(health),
			})
		}
	}
	return results
}

func stageDetail(health stage.Health) string {
	if health.Ready {
		return "ready"
	}
	if health.Detail != "" {
		return health.Detail
	}
	return "not ready"
}

// AllPassed reports whether every check succeeded.
func AllPassed(results []Result) bool {
	for _, result := range results {
		if !result.Passed {
			return false
		}
	}
	return true
}
