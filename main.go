package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"varatio/internal/analyzer"
	"varatio/internal/database"
	"varatio/internal/handlers"
	"varatio/internal/library"
	"varatio/internal/logging"
	"varatio/internal/memory"
	"varatio/internal/metrics"
	"varatio/internal/middleware"
	"varatio/internal/procexec"
	"varatio/internal/startup"
	"varatio/internal/timeline"
	"varatio/internal/transcoder"

	"github.com/gorilla/mux"
)

func main() {
	startTime := time.Now()

	memory.ConfigureFromEnv()

	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	metrics.InitializeMetrics()

	// Initialize database
	dbStart := time.Now()
	db, err := database.New(context.Background(), config.DatabasePath)
	if err != nil {
		startup.LogFatal("Failed to initialize database: %v", err)
	}
	startup.LogDatabaseInit(time.Since(dbStart))

	startup.LogToolsInit(config.FFmpegPath, config.FFprobePath)
	an := analyzer.New(procexec.NewExec(), config.AnalyzerConfig())

	// Initialize library scanner; the initial scan runs in the background
	startup.LogLibraryInit(config.ScanInterval, config.AnalysisWorkers, config.WatchEnabled)
	lib := library.New(config.MediaDir, db, an, library.Config{
		Interval: config.ScanInterval,
		Workers:  config.AnalysisWorkers,
		Watch:    config.WatchEnabled,
	})
	if err := lib.Start(); err != nil {
		startup.LogFatal("Failed to start library scanner: %v", err)
	}
	startup.LogLibraryStarted()

	collector := metrics.NewCollector(db, time.Minute)
	collector.Start()

	trans := transcoder.New(config.FFmpegPath)
	h := handlers.New(db, lib, timeline.NewCache(), trans, config.MediaDir)

	router := setupRouter(h)
	startup.LogHTTPRoutes(router, config.LogStaticFiles, config.LogHealthChecks)

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogStaticFiles = config.LogStaticFiles
	loggingConfig.LogHealthChecks = config.LogHealthChecks

	srv := &http.Server{
		Addr:              ":" + config.Port,
		Handler:           middleware.Logger(loggingConfig)(router),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      0, // cropped streams run as long as the film
		IdleTimeout:       60 * time.Second,
	}

	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsSrv = newMetricsServer(config.MetricsPort, h)
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		handleShutdown(srv, metricsSrv, lib, trans, collector, db)
		close(done)
	}()

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		startup.LogFatal("Server error: %v", err)
	}
	<-done
}

func setupRouter(h *handlers.Handlers) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))

	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/timeline/{path:.*}", h.GetTimeline).Methods("GET")
	api.HandleFunc("/filter/{path:.*}", h.GetFilter).Methods("GET")
	api.HandleFunc("/sidecar/{path:.*}", h.GetSidecar).Methods("GET")
	api.HandleFunc("/stream/{path:.*}", h.StreamCropped).Methods("GET")
	api.HandleFunc("/analyze/{path:.*}", h.AnalyzeFile).Methods("POST")
	api.HandleFunc("/analyses", h.ListAnalyses).Methods("GET")
	api.HandleFunc("/stats", h.GetStats).Methods("GET")
	api.HandleFunc("/scan", h.TriggerScan).Methods("POST")

	return r
}

func newMetricsServer(port string, h *handlers.Handlers) *http.Server {
	sm := http.NewServeMux()
	sm.Handle("/metrics", h.MetricsHandler())
	sm.HandleFunc("/health", h.LivenessCheck)

	return &http.Server{
		Addr:              ":" + port,
		Handler:           sm,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func handleShutdown(srv, metricsSrv *http.Server, lib *library.Library, trans *transcoder.Transcoder, collector *metrics.Collector, db *database.Database) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	startup.LogShutdownStep("Stopping library scanner")
	lib.Stop()
	startup.LogShutdownStepComplete("Library scanner stopped")

	startup.LogShutdownStep("Stopping metrics collector")
	collector.Stop()
	startup.LogShutdownStepComplete("Metrics collector stopped")

	startup.LogShutdownStep("Killing active streams")
	trans.Cleanup()
	startup.LogShutdownStepComplete("Transcoder cleanup complete")

	if metricsSrv != nil {
		startup.LogShutdownStep("Shutting down metrics server")
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownStep("Closing database")
	if err := db.Close(); err != nil {
		logging.Warn("Database close error: %v", err)
	} else {
		startup.LogShutdownStepComplete("Database closed")
	}

	startup.LogShutdownComplete()
}
