package handlers

import (
	"net/http"
	"os"

	"varatio/internal/cropfilter"
	"varatio/internal/filesystem"
	"varatio/internal/logging"
	"varatio/internal/mediatypes"
)

// StreamCropped streams a media file re-encoded with its crop filter. Files
// without a timeline get 404; files whose timeline yields no crop get 422.
// GET /api/stream/{path}
func (h *Handlers) StreamCropped(w http.ResponseWriter, r *http.Request) {
	rel, tl, ok := h.loadTimeline(w, r)
	if !ok {
		return
	}

	filter := cropfilter.Build(tl)
	if filter == "" {
		writeJSONError(w, "No croppable segment in "+rel, http.StatusUnprocessableEntity)
		return
	}

	fullPath, _ := h.resolvePath(rel)
	info, err := filesystem.Stat(fullPath)
	if err != nil || info.IsDir() {
		if err != nil && !os.IsNotExist(err) {
			logging.Error("Stream: failed to stat %s: %v", fullPath, err)
		}
		writeJSONError(w, "File not found", http.StatusNotFound)
		return
	}
	if !mediatypes.IsVideo(fullPath) {
		writeJSONError(w, "Not a video file", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "video/mp4")
	w.Header().Set("Cache-Control", "no-store")

	if err := h.transcoder.StreamCropped(r.Context(), fullPath, filter, w); err != nil {
		logging.Error("Stream of %s failed: %v", rel, err)
	}
}
