// Package payload defines the typed job payloads carried by render jobs
// and validates them before any stage runs. Validation failures are
// permanent; a malformed payload never reaches an engine.
package payload
