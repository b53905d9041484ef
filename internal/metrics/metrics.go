package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "varatio_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "varatio_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "varatio_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Analysis metrics
var (
	AnalysisRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "varatio_analysis_runs_total",
			Help: "Total number of file analyses by outcome",
		},
		[]string{"outcome"}, // "variable", "uniform", "failed", "canceled"
	)

	AnalysisDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "varatio_analysis_phase_duration_seconds",
			Help:    "Duration of each analysis phase in seconds",
			Buckets: []float64{0.05, 0.25, 1, 5, 15, 60, 180, 600, 1800, 3600},
		},
		[]string{"phase"}, // "probe", "sample", "classify", "total"
	)

	AnalysisInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "varatio_analysis_in_flight",
			Help: "Number of file analyses currently running",
		},
	)

	SamplesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "varatio_samples_total",
			Help: "Total number of crop measurements by classification",
		},
		[]string{"class"}, // "valid", "unknown", "dropped"
	)

	SegmentsPerFile = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "varatio_segments_per_file",
			Help:    "Number of aspect-ratio segments found per analysed file",
			Buckets: []float64{1, 2, 3, 4, 6, 8, 12, 20, 40},
		},
	)
)

// Subprocess metrics
var (
	SubprocessRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "varatio_subprocess_runs_total",
			Help: "Total number of external tool invocations by outcome",
		},
		[]string{"tool", "outcome"}, // outcome: "success", "empty", "error", "canceled"
	)

	SubprocessDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "varatio_subprocess_duration_seconds",
			Help:    "External tool wall-clock duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 30, 120, 600, 1800, 3600},
		},
		[]string{"tool"},
	)
)

// Sidecar metrics
var (
	SidecarCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "varatio_sidecar_cache_hits_total",
			Help: "Total number of timeline cache hits",
		},
	)

	SidecarCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "varatio_sidecar_cache_misses_total",
			Help: "Total number of timeline cache misses (first load or stale entry)",
		},
	)

	SidecarCacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "varatio_sidecar_cache_entries",
			Help: "Number of parsed timelines held in the cache",
		},
	)

	SidecarParseFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "varatio_sidecar_parse_failures_total",
			Help: "Total number of sidecar files that yielded no timeline",
		},
	)

	SidecarWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "varatio_sidecar_writes_total",
			Help: "Total number of sidecar writes by status",
		},
		[]string{"status"},
	)

	FilesystemStaleRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "varatio_filesystem_stale_retries_total",
			Help: "Total number of retries after stale NFS file handles",
		},
		[]string{"operation"},
	)

	CropFiltersBuilt = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "varatio_crop_filters_built_total",
			Help: "Total number of crop filter expressions generated",
		},
		[]string{"result"}, // "ok", "empty"
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "varatio_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "varatio_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	LedgerFilesTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "varatio_ledger_files",
			Help: "Number of analysed files recorded in the ledger by status",
		},
		[]string{"status"},
	)
)

// Library scanner metrics
var (
	ScannerRunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "varatio_scanner_runs_total",
			Help: "Total number of library scans",
		},
	)

	ScannerLastRunDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "varatio_scanner_last_run_duration_seconds",
			Help: "Duration of the last library scan in seconds",
		},
	)

	ScannerLastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "varatio_scanner_last_run_timestamp",
			Help: "Unix timestamp of the last library scan completion",
		},
	)

	ScannerIsRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "varatio_scanner_running",
			Help: "Whether a library scan is currently running (1 = running, 0 = idle)",
		},
	)

	ScannerQueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "varatio_scanner_queue_length",
			Help: "Number of files waiting for analysis",
		},
	)

	WatcherEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "varatio_watcher_events_total",
			Help: "Total number of filesystem events seen by the library watcher",
		},
		[]string{"op"},
	)

	StreamsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "varatio_streams_active",
			Help: "Number of cropped streams currently being transcoded",
		},
	)
)
