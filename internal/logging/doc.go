// Package logging provides the leveled logging used throughout varatio.
//
// Levels, lowest to highest:
//   - DEBUG: per-sample and per-subprocess detail
//   - INFO: analysis outcomes and service lifecycle
//   - WARN: per-file failures that do not stop a batch
//   - ERROR: failures that need operator attention
//   - FATAL: unrecoverable startup errors
//
// The level comes from LOG_LEVEL (or DEBUG=true) and can be overridden with
// SetLevel. Scope tags lines belonging to a single analysis run.
package logging
