package startup

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"varatio/internal/analyzer"
	"varatio/internal/logging"
	"varatio/internal/timeline"
	"varatio/internal/workers"
)

const (
	defaultScanInterval = 6 * time.Hour
	defaultTolerance    = 0.05
	defaultMinSegment   = 1.0
	databaseFile        = "varatio.db"
)

// Config holds all service configuration.
type Config struct {
	MediaDir        string
	DatabaseDir     string
	Port            string
	MetricsPort     string
	ScanInterval    time.Duration
	WatchEnabled    bool
	LogStaticFiles  bool
	LogHealthChecks bool
	MetricsEnabled  bool

	// Analysis
	FFmpegPath         string
	FFprobePath        string
	BlackThreshold     int
	RatioTolerance     float64
	MinSegmentDuration float64
	SidecarFormat      timeline.Format
	AnalysisWorkers    int

	DatabasePath string
}

// AnalyzerConfig returns the analysis tunables as an analyzer.Config.
func (c *Config) AnalyzerConfig() analyzer.Config {
	return analyzer.Config{
		FFmpegPath:         c.FFmpegPath,
		FFprobePath:        c.FFprobePath,
		BlackThreshold:     c.BlackThreshold,
		Tolerance:          c.RatioTolerance,
		MinSegmentDuration: c.MinSegmentDuration,
		SidecarFormat:      c.SidecarFormat,
	}
}

// LoadConfig reads the configuration from the environment, replaces invalid
// values with their defaults and prepares the directories. Only an unusable
// database directory is an error.
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()
	section("CONFIGURATION")

	c := &Config{
		MediaDir:           getEnv("MEDIA_DIR", "/media"),
		DatabaseDir:        getEnv("DATABASE_DIR", "/database"),
		Port:               getEnv("PORT", "8080"),
		MetricsPort:        getEnv("METRICS_PORT", "9090"),
		WatchEnabled:       getEnvBool("WATCH_ENABLED", true),
		LogStaticFiles:     getEnvBool("LOG_STATIC_FILES", false),
		LogHealthChecks:    getEnvBool("LOG_HEALTH_CHECKS", true),
		MetricsEnabled:     getEnvBool("METRICS_ENABLED", true),
		FFmpegPath:         getEnv("FFMPEG_PATH", "ffmpeg"),
		FFprobePath:        getEnv("FFPROBE_PATH", "ffprobe"),
		BlackThreshold:     getEnvInt("BLACK_THRESHOLD", 16),
		RatioTolerance:     getEnvFloat("RATIO_TOLERANCE", defaultTolerance),
		MinSegmentDuration: getEnvFloat("MIN_SEGMENT_DURATION", defaultMinSegment),
		AnalysisWorkers:    workers.ForAnalysis(0),
	}
	scanInterval := getEnv("SCAN_INTERVAL", defaultScanInterval.String())
	sidecarFormat := getEnv("SIDECAR_FORMAT", "clock")

	setting("MEDIA_DIR", c.MediaDir)
	setting("DATABASE_DIR", c.DatabaseDir)
	setting("PORT", c.Port)
	setting("METRICS_PORT", c.MetricsPort)
	setting("METRICS_ENABLED", c.MetricsEnabled)
	setting("SCAN_INTERVAL", scanInterval)
	setting("WATCH_ENABLED", c.WatchEnabled)
	setting("FFMPEG_PATH", c.FFmpegPath)
	setting("FFPROBE_PATH", c.FFprobePath)
	setting("BLACK_THRESHOLD", c.BlackThreshold)
	setting("RATIO_TOLERANCE", c.RatioTolerance)
	setting("MIN_SEGMENT_DURATION", c.MinSegmentDuration)
	setting("SIDECAR_FORMAT", sidecarFormat)
	setting("ANALYSIS_WORKERS", c.AnalysisWorkers)
	setting("LOG_STATIC_FILES", c.LogStaticFiles)
	setting("LOG_HEALTH_CHECKS", c.LogHealthChecks)
	setting("LOG_LEVEL", logging.GetLevel())

	c.normalize(scanInterval, sidecarFormat)

	section("DIRECTORY SETUP")
	if err := c.prepareDirectories(); err != nil {
		return nil, err
	}

	logging.Info("")
	logging.Info("  Library watcher: %s", enabledString(c.WatchEnabled))
	logging.Info("  Metrics server:  %s", enabledString(c.MetricsEnabled))
	return c, nil
}

// normalize parses the string settings and falls back to defaults for
// anything out of range.
func (c *Config) normalize(scanInterval, sidecarFormat string) {
	d, err := time.ParseDuration(scanInterval)
	if err != nil || d <= 0 {
		logging.Warn("  Invalid SCAN_INTERVAL %q, using default: %v", scanInterval, defaultScanInterval)
		d = defaultScanInterval
	}
	c.ScanInterval = d

	if c.BlackThreshold < 0 || c.BlackThreshold > 255 {
		logging.Warn("  BLACK_THRESHOLD must be within 0-255, clamping %d", c.BlackThreshold)
		c.BlackThreshold = max(0, min(255, c.BlackThreshold))
	}
	if c.RatioTolerance < 0 {
		logging.Warn("  Invalid RATIO_TOLERANCE, using default: %g", defaultTolerance)
		c.RatioTolerance = defaultTolerance
	}
	if c.MinSegmentDuration < 0 {
		logging.Warn("  Invalid MIN_SEGMENT_DURATION, using default: %g", defaultMinSegment)
		c.MinSegmentDuration = defaultMinSegment
	}

	f, ok := timeline.ParseFormat(sidecarFormat)
	if !ok {
		logging.Warn("  Invalid SIDECAR_FORMAT %q, using default: clock", sidecarFormat)
		f = timeline.FormatClock
	}
	c.SidecarFormat = f
}

// prepareDirectories makes both paths absolute, creates the database
// directory and checks write access. Sidecars are written next to the media,
// so a read-only library is reported but tolerated.
func (c *Config) prepareDirectories() error {
	var err error
	if c.MediaDir, err = filepath.Abs(c.MediaDir); err != nil {
		return fmt.Errorf("failed to resolve media directory path: %w", err)
	}
	if c.DatabaseDir, err = filepath.Abs(c.DatabaseDir); err != nil {
		return fmt.Errorf("failed to resolve database directory path: %w", err)
	}
	c.DatabasePath = filepath.Join(c.DatabaseDir, databaseFile)
	logging.Info("  Media directory:    %s", c.MediaDir)
	logging.Info("  Database file:      %s", c.DatabasePath)

	if err := checkMediaDir(c.MediaDir); err != nil {
		logging.Warn("  Media directory issue: %v", err)
	} else if err := testWriteAccess(c.MediaDir); err != nil {
		logging.Warn("  Media directory is not writable, sidecars cannot be written: %v", err)
	} else {
		logging.Info("  [OK] Media directory is writable")
	}

	if err := os.MkdirAll(c.DatabaseDir, 0o755); err != nil {
		return fmt.Errorf("database directory error: %w", err)
	}
	if err := testWriteAccess(c.DatabaseDir); err != nil {
		return fmt.Errorf("database directory is not writable: %w", err)
	}
	logging.Info("  [OK] Database directory is writable")
	return nil
}

// checkMediaDir verifies that the library root exists. It is never created.
func checkMediaDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}
	if logging.IsDebugEnabled() {
		if entries, err := os.ReadDir(path); err == nil {
			logging.Debug("    %d top-level entries", len(entries))
		}
	}
	return nil
}

func testWriteAccess(dir string) error {
	f, err := os.CreateTemp(dir, ".varatio-write-test-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	if err := os.Remove(name); err != nil {
		logging.Warn("failed to remove write test file %s: %v", name, err)
	}
	return nil
}

func setting(key string, value interface{}) {
	logging.Info("  %-22s %v", key+":", value)
}

func enabledString(enabled bool) string {
	if enabled {
		return "ENABLED"
	}
	return "DISABLED"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		logging.Warn("Invalid number for %s: %q, using default: %g", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
