// Package main hosts the renderforge CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into job
// store operations (submission, listing, health), one-shot job processing,
// readiness checks, and configuration scaffolding. It centralizes
// configuration resolution and store access so subcommands can focus on
// user experience instead of wiring.
package main
