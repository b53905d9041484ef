package handlers

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"

	"varatio/internal/analyzer"
	"varatio/internal/database"
	"varatio/internal/library"
	"varatio/internal/timeline"
)

var errInvalidPath = errors.New("invalid path")

// Ledger is the read side of the analysis ledger.
type Ledger interface {
	ListAnalyses(ctx context.Context, status string) ([]database.Analysis, error)
	GetStats(ctx context.Context) (database.Stats, error)
}

// Scanner drives analysis of the media library.
type Scanner interface {
	AnalyzeFile(ctx context.Context, path string) (analyzer.Report, error)
	TriggerScan() bool
	IsScanning() bool
	IsReady() bool
	GetStatus() library.Status
}

// Timelines loads parsed sidecars.
type Timelines interface {
	LoadForMedia(mediaPath string) (timeline.Timeline, error)
	Invalidate(path string)
}

// Streamer re-encodes media with a crop filter applied.
type Streamer interface {
	StreamCropped(ctx context.Context, filePath, filter string, w io.Writer) error
}

type Handlers struct {
	db         Ledger
	library    Scanner
	timelines  Timelines
	transcoder Streamer
	mediaDir   string
}

func New(db Ledger, lib Scanner, tl Timelines, trans Streamer, mediaDir string) *Handlers {
	return &Handlers{
		db:         db,
		library:    lib,
		timelines:  tl,
		transcoder: trans,
		mediaDir:   mediaDir,
	}
}

// resolvePath maps a route path onto the media directory.
func (h *Handlers) resolvePath(rel string) (string, error) {
	if strings.TrimSpace(rel) == "" {
		return "", errInvalidPath
	}
	full := filepath.Join(h.mediaDir, filepath.FromSlash(rel))
	if !isSubPath(h.mediaDir, full) {
		return "", errInvalidPath
	}
	return full, nil
}

func isSubPath(parent, child string) bool {
	parent, err := filepath.Abs(parent)
	if err != nil {
		return false
	}
	child, err = filepath.Abs(child)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
