// Package services defines shared utilities consumed by the pipeline stage
// adapters and external engine integrations.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, stage names, and correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that keep failure causes
//     classifiable (validation vs configuration vs transient) all the way to
//     the persisted job record.
//
// Use these helpers when wiring new stage logic so operational behaviour
// (error handling, observability) stays uniform across the pipeline.
package services
