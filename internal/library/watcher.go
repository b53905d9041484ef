package library

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	"varatio/internal/logging"
	"varatio/internal/mediatypes"
	"varatio/internal/metrics"
)

func (l *Library) newWatcher() (*fsnotify.Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	count := addDirectories(w, l.mediaDir)
	logging.Info("Library watcher started, watching %d directories", count)
	return w, nil
}

// addDirectories registers root and every non-hidden directory below it.
func addDirectories(w *fsnotify.Watcher, root string) int {
	count := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if path != root && mediatypes.IsHidden(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.Add(path); err != nil {
			logging.Warn("Failed to watch %s: %v", path, err)
			return nil
		}
		count++
		return nil
	})
	if err != nil {
		logging.Warn("Error walking %s for watcher: %v", root, err)
	}
	return count
}

func (l *Library) watchLoop(w *fsnotify.Watcher) {
	defer l.wg.Done()
	defer func() {
		if err := w.Close(); err != nil {
			logging.Warn("Failed to close watcher: %v", err)
		}
	}()

	for {
		select {
		case event, ok := <-w.Events:
			if !ok {
				return
			}
			l.handleEvent(w, event)
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			logging.Error("Watcher error: %v", err)
		case <-l.ctx.Done():
			return
		}
	}
}

func eventType(op fsnotify.Op) string {
	switch {
	case op&fsnotify.Create != 0:
		return "create"
	case op&fsnotify.Write != 0:
		return "write"
	case op&fsnotify.Remove != 0:
		return "remove"
	case op&fsnotify.Rename != 0:
		return "rename"
	case op&fsnotify.Chmod != 0:
		return "chmod"
	default:
		return "unknown"
	}
}

func (l *Library) handleEvent(w *fsnotify.Watcher, event fsnotify.Event) {
	if mediatypes.IsHidden(filepath.Base(event.Name)) {
		return
	}
	metrics.WatcherEventsTotal.WithLabelValues(eventType(event.Op)).Inc()

	switch {
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		if !mediatypes.IsVideo(event.Name) {
			return
		}
		l.stateMu.Lock()
		delete(l.pending, event.Name)
		l.stateMu.Unlock()

		ctx, cancel := context.WithTimeout(l.ctx, 5*time.Second)
		defer cancel()
		if err := l.ledger.DeleteAnalysis(ctx, event.Name); err != nil {
			logging.Warn("Failed to drop ledger row for %s: %v", event.Name, err)
		}

	case event.Op&fsnotify.Create != 0:
		info, err := os.Stat(event.Name)
		if err != nil {
			return
		}
		if info.IsDir() {
			// Files copied in together with the directory were created
			// before the watch existed; the next scan picks them up.
			n := addDirectories(w, event.Name)
			logging.Debug("Added %d new directories to watcher under %s", n, event.Name)
			return
		}
		l.markPending(event.Name)

	case event.Op&fsnotify.Write != 0:
		l.markPending(event.Name)
	}
}

// markPending records activity on a video; it is analysed once it has been
// quiet for the settle period.
func (l *Library) markPending(path string) {
	if !mediatypes.IsVideo(path) {
		return
	}
	l.stateMu.Lock()
	l.pending[path] = time.Now()
	l.stateMu.Unlock()
}

// takeSettled removes and returns pending paths quiet since before cutoff.
func (l *Library) takeSettled(cutoff time.Time) []string {
	l.stateMu.Lock()
	defer l.stateMu.Unlock()

	var ready []string
	for path, seen := range l.pending {
		if seen.Before(cutoff) {
			ready = append(ready, path)
			delete(l.pending, path)
		}
	}
	sort.Strings(ready)
	return ready
}

func (l *Library) settleLoop() {
	defer l.wg.Done()

	ticker := time.NewTicker(l.config.Settle / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ready := l.takeSettled(time.Now().Add(-l.config.Settle))
			if len(ready) > 0 {
				l.analyzeWatched(ready)
			}
		case <-l.ctx.Done():
			return
		}
	}
}

func (l *Library) analyzeWatched(paths []string) {
	var cands []Candidate
	for _, p := range paths {
		info, err := statVideo(p)
		if err != nil {
			logging.Debug("Skipping watched path %s: %v", p, err)
			continue
		}
		if sidecarFresh(p, info.ModTime()) {
			continue
		}
		cands = append(cands, Candidate{Path: p, ModTime: info.ModTime()})
	}
	if len(cands) == 0 {
		return
	}

	// Waits behind a running scan rather than racing it.
	l.scanMu.Lock()
	defer l.scanMu.Unlock()
	if l.ctx.Err() != nil {
		return
	}

	logging.Info("Watcher queued %d new files for analysis", len(cands))
	l.setScanning(true)
	defer l.setScanning(false)
	l.analyze(l.ctx, cands)
}
