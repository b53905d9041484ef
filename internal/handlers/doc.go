// Package handlers provides the HTTP API of the varatio service.
//
// It includes handlers for:
//   - Health, liveness, readiness and version probes
//   - Reading parsed timelines, crop filters and raw sidecars
//   - Analysing a single file on demand and triggering library scans
//   - Listing the analysis ledger and its statistics
//   - Streaming media re-encoded with its crop filter applied
//
// Media paths in routes are relative to the media directory; paths that
// resolve outside it are rejected.
package handlers
