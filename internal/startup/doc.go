// Package startup loads the service configuration and owns the lifecycle
// logging printed while varatio starts and stops.
//
// # Configuration
//
// [LoadConfig] reads everything from the environment:
//
//   - MEDIA_DIR: media library root (default: /media)
//   - DATABASE_DIR: directory holding the analysis ledger (default: /database)
//   - PORT: HTTP server port (default: 8080)
//   - METRICS_PORT: Prometheus metrics server port (default: 9090)
//   - METRICS_ENABLED: serve /metrics on METRICS_PORT (default: true)
//   - SCAN_INTERVAL: periodic library scan interval as Go duration (default: 6h)
//   - WATCH_ENABLED: analyse new videos as they appear (default: true)
//   - FFMPEG_PATH, FFPROBE_PATH: tool binaries (default: ffmpeg, ffprobe)
//   - BLACK_THRESHOLD: cropdetect black level, clamped to 0-255 (default: 16)
//   - RATIO_TOLERANCE: maximum ratio difference treated as the same ratio (default: 0.05)
//   - MIN_SEGMENT_DURATION: shortest segment kept, in seconds (default: 1)
//   - SIDECAR_FORMAT: clock or seconds (default: clock)
//   - ANALYSIS_WORKERS: files analysed in parallel (default: half the CPUs)
//   - LOG_LEVEL, LOG_STATIC_FILES, LOG_HEALTH_CHECKS: logging controls
//   - MEMORY_LIMIT, MEMORY_RATIO: GOMEMLIMIT sizing, see package memory
//
// The media directory must exist; the database directory is created when
// missing and must be writable. Both tools must resolve on PATH or as given.
//
// # Build Information
//
// Version, Commit and BuildTime are injected with ldflags and reported by
// [GetBuildInfo].
//
// # Lifecycle Logging
//
//   - [LogDatabaseInit], [LogToolsInit], [LogLibraryInit]: component setup
//   - [LogHTTPRoutes]: registered routes, at debug level
//   - [LogServerStarted]: listening endpoints and startup time
//   - [LogShutdownInitiated], [LogShutdownStep], [LogShutdownComplete]: shutdown
//
// Typical use from main:
//
//	config, err := startup.LoadConfig()
//	if err != nil {
//	    startup.LogFatal("Configuration error: %v", err)
//	}
//	startup.LogLibraryInit(config.ScanInterval, config.AnalysisWorkers, config.WatchEnabled)
package startup
