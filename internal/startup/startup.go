package startup

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"varatio/internal/logging"
	"varatio/internal/procexec"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

const rule = "------------------------------------------------------------"

func section(title string) {
	logging.Info("")
	logging.Info(rule)
	logging.Info("%s", title)
	logging.Info(rule)
}

func printBanner() {
	fmt.Println(rule + `
 _    _____    ____        __  _
| |  / /   |  / __ \____ _/ /_(_)___
| | / / /| | / /_/ / __ '/ __/ / __ \
| |/ / ___ |/ _, _/ /_/ / /_/ / /_/ /
|___/_/  |_/_/ |_|\__,_/\__/_/\____/
` + rule)
	logging.Info("  Version:    %s (%s, built %s)", Version, Commit, BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
}

func logSystemInfo() {
	section("SYSTEM INFORMATION")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs:            %d (GOMAXPROCS %d)", runtime.NumCPU(), runtime.GOMAXPROCS(0))
	if host, err := os.Hostname(); err == nil {
		logging.Debug("  Hostname:        %s", host)
	}
}

// LogDatabaseInit logs ledger initialization
func LogDatabaseInit(duration time.Duration) {
	section("ANALYSIS LEDGER")
	logging.Info("  [OK] Database opened in %v", duration)
}

// LogToolsInit checks that ffmpeg and ffprobe can be run and logs their
// versions. A missing tool is only a warning: the service still serves
// existing sidecars.
func LogToolsInit(ffmpegPath, ffprobePath string) {
	section("ANALYSIS TOOLS")
	runner := procexec.NewExec()
	for _, tool := range []string{ffmpegPath, ffprobePath} {
		version, err := toolVersion(context.Background(), runner, tool)
		if err != nil {
			logging.Warn("  %s check failed: %v", tool, err)
			logging.Warn("  Analysis and streaming will fail until it is installed")
			continue
		}
		logging.Info("  [OK] %s", version)
	}
}

// toolVersion returns the first line of "<tool> -version".
func toolVersion(ctx context.Context, r procexec.Runner, tool string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	out, err := r.Run(ctx, tool, []string{"-version"}, procexec.Stdout)
	if err != nil {
		return "", err
	}
	line, _, _ := strings.Cut(strings.TrimSpace(out), "\n")
	if line == "" {
		return "", fmt.Errorf("%s printed no version", tool)
	}
	return line, nil
}

// LogLibraryInit logs library scanner initialization
func LogLibraryInit(interval time.Duration, workers int, watch bool) {
	section("LIBRARY SCANNER")
	logging.Info("  Scan interval:    %v", interval)
	logging.Info("  Analysis workers: %d", workers)
	logging.Info("  Watcher:          %s", enabledString(watch))
}

// LogLibraryStarted logs successful scanner start
func LogLibraryStarted() {
	logging.Info("  [OK] Library scanner started, initial scan running")
}

// RouteInfo describes a registered route.
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// GetRoutes lists every method/path pair registered on router. Routes
// without a method restriction are reported with method "*".
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo
	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		path, err := route.GetPathTemplate()
		if err != nil {
			return err
		}
		methods, err := route.GetMethods()
		if err != nil {
			methods = []string{"*"}
		}
		for _, m := range methods {
			routes = append(routes, RouteInfo{Method: m, Path: path, Name: route.GetName()})
		}
		return nil
	})
	return routes, err
}

// LogHTTPRoutes logs the HTTP logging switches and, at debug level, every
// registered route grouped by its first path element.
func LogHTTPRoutes(router *mux.Router, logStaticFiles, logHealthChecks bool) {
	section("HTTP SERVER SETUP")

	if logging.IsDebugEnabled() {
		routes, err := GetRoutes(router)
		if err != nil {
			logging.Warn("error walking routes: %v", err)
		}
		groups := make(map[string][]RouteInfo)
		for _, r := range routes {
			g := getRouteGroup(r.Path)
			groups[g] = append(groups[g], r)
		}
		names := make([]string, 0, len(groups))
		for g := range groups {
			names = append(names, g)
		}
		sort.Strings(names)

		logging.Debug("  Registered routes (%d total):", len(routes))
		for _, g := range names {
			logging.Debug("  [%s]", g)
			for _, r := range groups[g] {
				logging.Debug("    %-6s %s", r.Method, r.Path)
			}
		}
	}

	logging.Info("  Static file logging:  %s", onOff(logStaticFiles, "LOG_STATIC_FILES"))
	logging.Info("  Health check logging: %s", onOff(logHealthChecks, "LOG_HEALTH_CHECKS"))
}

func onOff(on bool, env string) string {
	if on {
		return "ON"
	}
	return "OFF (set " + env + "=true to enable)"
}

// getRouteGroup returns "api/<name>" for API routes and the first path
// element otherwise.
func getRouteGroup(path string) string {
	first, rest, _ := strings.Cut(strings.TrimPrefix(path, "/"), "/")
	if first == "api" && rest != "" {
		name, _, _ := strings.Cut(rest, "/")
		return "api/" + name
	}
	return first
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted logs the listening endpoints.
func LogServerStarted(config ServerConfig) {
	section("SERVER STARTED")
	logging.Info("  Startup time:  %v", config.StartupDuration)
	logging.Info("  API:           http://0.0.0.0:%s/api", config.Port)
	logging.Info("  Health:        http://0.0.0.0:%s/health", config.Port)
	if config.MetricsEnabled {
		logging.Info("  Metrics:       http://0.0.0.0:%s/metrics", config.MetricsPort)
	} else {
		logging.Info("  Metrics:       DISABLED")
	}
	logging.Info(rule)
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	section(fmt.Sprintf("SHUTDOWN INITIATED (received %s)", signal))
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}
