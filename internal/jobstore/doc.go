// Package jobstore persists render jobs and enforces the job lifecycle.
//
// Two backends implement the same Store contract: a local SQLite database
// for single-host deployments, and a PostgREST-style HTTP client for a
// remote job table. Both make the queued-to-processing claim conditional,
// so concurrent workers never process the same job twice.
package jobstore
