package handlers

import (
	"errors"
	"net/http"
	"os"

	"github.com/gorilla/mux"

	"varatio/internal/analyzer"
	"varatio/internal/library"
	"varatio/internal/logging"
	"varatio/internal/timeline"
)

// AnalyzeResponse reports the outcome of an on-demand analysis.
type AnalyzeResponse struct {
	analyzer.Report
	Error string `json:"error,omitempty"`
}

// AnalyzeFile analyses one file now, writing its sidecar if it has variable
// aspect ratios.
// POST /api/analyze/{path}
func (h *Handlers) AnalyzeFile(w http.ResponseWriter, r *http.Request) {
	fullPath, err := h.resolvePath(mux.Vars(r)["path"])
	if err != nil {
		writeJSONError(w, "Invalid path", http.StatusBadRequest)
		return
	}

	rep, err := h.library.AnalyzeFile(r.Context(), fullPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		writeJSONError(w, "File not found", http.StatusNotFound)
		return
	case errors.Is(err, library.ErrNotVideo):
		writeJSONError(w, "Not a video file", http.StatusBadRequest)
		return
	case err != nil:
		logging.Error("Analyze %s: %v", fullPath, err)
		writeJSONError(w, "Failed to access file", http.StatusInternalServerError)
		return
	}

	h.timelines.Invalidate(timeline.SidecarPath(fullPath))

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, AnalyzeResponse{Report: rep, Error: rep.Error()})
}

// ListAnalyses returns ledger rows, optionally filtered by ?status=.
// GET /api/analyses
func (h *Handlers) ListAnalyses(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	switch analyzer.Status(status) {
	case "", analyzer.StatusVariable, analyzer.StatusUniform, analyzer.StatusFailed, analyzer.StatusCanceled:
	default:
		writeJSONError(w, "Unknown status "+status, http.StatusBadRequest)
		return
	}

	rows, err := h.db.ListAnalyses(r.Context(), status)
	if err != nil {
		logging.Error("ListAnalyses database error: %v", err)
		writeJSONError(w, "Failed to list analyses", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, rows)
}

// GetStats returns ledger statistics.
// GET /api/stats
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.db.GetStats(r.Context())
	if err != nil {
		logging.Error("GetStats database error: %v", err)
		writeJSONError(w, "Failed to read stats", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, stats)
}

// TriggerScan queues a library scan.
// POST /api/scan
func (h *Handlers) TriggerScan(w http.ResponseWriter, _ *http.Request) {
	if h.library.IsScanning() {
		writeJSONStatus(w, "already_running", "A library scan is already in progress", http.StatusOK)
		return
	}
	if !h.library.TriggerScan() {
		writeJSONStatus(w, "queued", "A library scan is already queued", http.StatusOK)
		return
	}
	writeJSONStatus(w, "started", "Library scan started", http.StatusAccepted)
}
