package handlers

import (
	"errors"
	"net/http"
	"os"

	"github.com/gorilla/mux"

	"varatio/internal/cropfilter"
	"varatio/internal/filesystem"
	"varatio/internal/logging"
	"varatio/internal/timeline"
)

// TimelineResponse is a parsed sidecar together with its crop filter.
type TimelineResponse struct {
	Path string `json:"path"`
	timeline.Timeline
	Filter string `json:"filter"`
}

// loadTimeline resolves the route path and loads its timeline. It writes the
// error response itself and returns ok=false on failure.
func (h *Handlers) loadTimeline(w http.ResponseWriter, r *http.Request) (string, timeline.Timeline, bool) {
	rel := mux.Vars(r)["path"]
	fullPath, err := h.resolvePath(rel)
	if err != nil {
		writeJSONError(w, "Invalid path", http.StatusBadRequest)
		return "", timeline.Timeline{}, false
	}

	tl, err := h.timelines.LoadForMedia(fullPath)
	if err != nil {
		if errors.Is(err, timeline.ErrNoTimeline) {
			writeJSONError(w, "No timeline for "+rel, http.StatusNotFound)
		} else {
			logging.Error("Failed to load timeline for %s: %v", fullPath, err)
			writeJSONError(w, "Failed to load timeline", http.StatusInternalServerError)
		}
		return "", timeline.Timeline{}, false
	}
	return rel, tl, true
}

// GetTimeline returns the parsed timeline of a media file.
// GET /api/timeline/{path}
func (h *Handlers) GetTimeline(w http.ResponseWriter, r *http.Request) {
	rel, tl, ok := h.loadTimeline(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, TimelineResponse{Path: rel, Timeline: tl, Filter: cropfilter.Build(tl)})
}

// GetFilter returns the crop filter of a media file. An empty filter means no
// segment can be cropped, and the response is 422.
// GET /api/filter/{path}
func (h *Handlers) GetFilter(w http.ResponseWriter, r *http.Request) {
	rel, tl, ok := h.loadTimeline(w, r)
	if !ok {
		return
	}

	filter := cropfilter.Build(tl)
	if filter == "" {
		writeJSONError(w, "No croppable segment in "+rel, http.StatusUnprocessableEntity)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{"path": rel, "filter": filter})
}

// GetSidecar returns the raw sidecar text of a media file.
// GET /api/sidecar/{path}
func (h *Handlers) GetSidecar(w http.ResponseWriter, r *http.Request) {
	fullPath, err := h.resolvePath(mux.Vars(r)["path"])
	if err != nil {
		writeJSONError(w, "Invalid path", http.StatusBadRequest)
		return
	}

	data, err := filesystem.ReadFile(timeline.SidecarPath(fullPath))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			writeJSONError(w, "No sidecar", http.StatusNotFound)
			return
		}
		logging.Error("Failed to read sidecar for %s: %v", fullPath, err)
		writeJSONError(w, "Failed to read sidecar", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	if _, err := w.Write(data); err != nil {
		logging.Debug("Failed to write sidecar response: %v", err)
	}
}
