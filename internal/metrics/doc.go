// Package metrics provides Prometheus instrumentation for varatio.
//
// All metrics are prefixed with "varatio_" and registered through promauto,
// so importing the package is enough to expose them on the default registry.
//
// # Metric Categories
//
// ## HTTP Metrics
//   - HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight
//
// ## Analysis Metrics
//   - AnalysisRunsTotal: analyses by outcome (variable/uniform/failed/canceled)
//   - AnalysisDuration: wall-clock time per phase (probe/sample/classify/total)
//   - SamplesTotal: crop measurements by classification
//   - SegmentsPerFile: distribution of final segment counts
//
// ## Subprocess Metrics
//   - SubprocessRunsTotal, SubprocessDuration: per external tool
//
// ## Sidecar Metrics
//   - SidecarCacheHits / SidecarCacheMisses / SidecarCacheEntries
//   - SidecarParseFailures, SidecarWritesTotal, CropFiltersBuilt
//
// ## Ledger and Scanner Metrics
//   - DBQueryTotal, DBQueryDuration, LedgerFilesTotal
//   - ScannerRunsTotal, ScannerIsRunning, ScannerQueueLength, WatcherEventsTotal
//
// Call InitializeMetrics once at startup so every label set is exported from
// the first scrape.
package metrics
