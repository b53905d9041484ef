package handlers

import (
	"net/http"
	"runtime"
	"time"

	"varatio/internal/analyzer"
	"varatio/internal/database"
	"varatio/internal/logging"
	"varatio/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusStarting = "starting"
	statusDegraded = "degraded"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status      string           `json:"status"`
	Ready       bool             `json:"ready"`
	Version     string           `json:"version"`
	Uptime      string           `json:"uptime"`
	Scanning    bool             `json:"scanning"`
	LastScan    string           `json:"lastScan,omitempty"`
	LastSummary analyzer.Summary `json:"lastSummary"`
	Pending     int              `json:"pending"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`

	Ledger *database.Stats `json:"ledger,omitempty"`
}

// HealthCheck returns the health status of the service
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := h.library.GetStatus()

	response := HealthResponse{
		Ready:        status.Ready,
		Version:      startup.Version,
		Uptime:       status.Uptime,
		Scanning:     status.Scanning,
		LastSummary:  status.LastSummary,
		Pending:      status.Pending,
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
	}

	if status.Ready {
		response.Status = statusHealthy
	} else {
		response.Status = statusStarting
	}

	if !status.LastScan.IsZero() {
		response.LastScan = status.LastScan.Format(time.RFC3339)
	}

	stats, err := h.db.GetStats(r.Context())
	if err != nil {
		logging.Warn("Health check could not read ledger: %v", err)
		response.Status = statusDegraded
	} else {
		response.Ledger = &stats
	}

	w.Header().Set("Content-Type", "application/json")

	// Return 503 only if not ready at all
	if !status.Ready {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	writeJSON(w, response)
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// For HEAD requests, only send headers (no body)
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{
			"status": "alive",
		})
	}
}

// ReadinessCheck returns 200 once the initial library scan has finished
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, _ *http.Request) {
	if h.library.IsReady() {
		writeJSONStatus(w, "ready", "", http.StatusOK)
		return
	}
	writeJSONStatus(w, "not_ready", "", http.StatusServiceUnavailable)
}
