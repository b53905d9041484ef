package library

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"varatio/internal/analyzer"
	"varatio/internal/filesystem"
	"varatio/internal/logging"
	"varatio/internal/mediatypes"
	"varatio/internal/timeline"
)

// ErrNotVideo is returned for paths that are not regular video files.
var ErrNotVideo = errors.New("not a video file")

// Candidate is a media file selected for analysis.
type Candidate struct {
	Path    string
	ModTime time.Time
}

func statVideo(path string) (os.FileInfo, error) {
	info, err := filesystem.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() || !mediatypes.IsVideo(path) {
		return nil, fmt.Errorf("%s: %w", path, ErrNotVideo)
	}
	return info, nil
}

// Candidates walks the media directory and returns the videos that need
// analysis, in walk order. A video is skipped when its sidecar is at least as
// new as the video, or when the ledger already holds a uniform or failed
// outcome for the same modification time.
func (l *Library) Candidates(ctx context.Context) ([]Candidate, error) {
	rows, err := l.ledger.ListAnalyses(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}
	settled := make(map[string]time.Time, len(rows))
	for _, r := range rows {
		if r.Status == string(analyzer.StatusUniform) || r.Status == string(analyzer.StatusFailed) {
			settled[r.Path] = r.ModTime
		}
	}

	var cands []Candidate
	err = filepath.WalkDir(l.mediaDir, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			logging.Warn("Error accessing path %s: %v", path, err)
			return nil
		}

		if path != l.mediaDir && mediatypes.IsHidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() || !mediatypes.IsVideo(path) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			logging.Debug("Skipping %s: %v", path, err)
			return nil
		}
		mod := info.ModTime()

		if mt, ok := settled[path]; ok && mt.Equal(mod) {
			return nil
		}
		if sidecarFresh(path, mod) {
			return nil
		}

		cands = append(cands, Candidate{Path: path, ModTime: mod})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cands, nil
}

func sidecarFresh(mediaPath string, mediaMod time.Time) bool {
	info, err := os.Stat(timeline.SidecarPath(mediaPath))
	if err != nil {
		return false
	}
	return !info.ModTime().Before(mediaMod)
}
