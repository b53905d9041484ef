package timeline

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"varatio/internal/filesystem"
	"varatio/internal/metrics"
)

type cacheEntry struct {
	timeline Timeline
	modTime  time.Time
}

// Cache holds parsed sidecars keyed by case-insensitive path. An entry is
// served only while the file's modification time is unchanged. Entries are
// never evicted except when the sidecar disappears.
type Cache struct {
	entries sync.Map // string -> *cacheEntry

	modTime  func(path string) (time.Time, error)
	readFile func(path string) ([]byte, error)
}

// NewCache returns an empty cache reading through the filesystem package.
func NewCache() *Cache {
	return &Cache{
		modTime: func(path string) (time.Time, error) {
			info, err := filesystem.Stat(path)
			if err != nil {
				return time.Time{}, err
			}
			return info.ModTime(), nil
		},
		readFile: filesystem.ReadFile,
	}
}

func cacheKey(path string) string {
	return strings.ToLower(filepath.Clean(path))
}

// Load returns the timeline stored in the sidecar at path. A missing or
// unusable sidecar yields an error wrapping ErrNoTimeline.
func (c *Cache) Load(path string) (Timeline, error) {
	key := cacheKey(path)

	mod, err := c.modTime(path)
	if err != nil {
		c.forget(key)
		if errors.Is(err, fs.ErrNotExist) {
			return Timeline{}, fmt.Errorf("%s: %w", path, ErrNoTimeline)
		}
		return Timeline{}, err
	}

	var old *cacheEntry
	if v, ok := c.entries.Load(key); ok {
		old = v.(*cacheEntry)
		if old.modTime.Equal(mod) {
			metrics.SidecarCacheHits.Inc()
			return old.timeline.Clone(), nil
		}
	}
	metrics.SidecarCacheMisses.Inc()

	data, err := c.readFile(path)
	if err != nil {
		c.forget(key)
		if errors.Is(err, fs.ErrNotExist) {
			return Timeline{}, fmt.Errorf("%s: %w", path, ErrNoTimeline)
		}
		return Timeline{}, fmt.Errorf("failed to read sidecar %s: %w", path, err)
	}

	tl, err := Parse(data)
	if err != nil {
		metrics.SidecarParseFailures.Inc()
		c.forget(key)
		return Timeline{}, fmt.Errorf("%s: %w", path, err)
	}

	entry := &cacheEntry{timeline: tl.Clone(), modTime: mod}
	if old != nil {
		// Another loader may have replaced the entry meanwhile; either value
		// reflects a parse of the current file.
		c.entries.CompareAndSwap(key, old, entry)
	} else if _, loaded := c.entries.LoadOrStore(key, entry); !loaded {
		metrics.SidecarCacheEntries.Inc()
	}
	return tl.Clone(), nil
}

// LoadForMedia loads the sidecar that belongs to mediaPath.
func (c *Cache) LoadForMedia(mediaPath string) (Timeline, error) {
	return c.Load(SidecarPath(mediaPath))
}

// Invalidate drops the entry for path, if any.
func (c *Cache) Invalidate(path string) {
	c.forget(cacheKey(path))
}

// Len reports the number of cached sidecars.
func (c *Cache) Len() int {
	n := 0
	c.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func (c *Cache) forget(key string) {
	if _, loaded := c.entries.LoadAndDelete(key); loaded {
		metrics.SidecarCacheEntries.Dec()
	}
}
