// Package config loads, normalizes, and validates the TOML configuration that
// drives the renderforge worker. Load applies defaults for absent values,
// expands ~ in path fields, and rejects configurations the worker could not
// run with.
package config
