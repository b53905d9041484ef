package timeline

import (
	"path/filepath"
	"strings"

	"varatio/internal/ratio"
)

// SidecarExt is the extension of sidecar timeline files.
const SidecarExt = ".varatio"

// Segment is the read-side form of an aspect-ratio segment: it ends where the
// next segment starts, and the last one runs to the end of the file.
type Segment struct {
	Start       float64 `json:"start"`
	AspectRatio float64 `json:"aspectRatio"`
	Label       string  `json:"label"`
}

// Timeline is a parsed sidecar. Segments are sorted by Start and there is at
// least one of them.
type Timeline struct {
	FrameWidth  int       `json:"frameWidth"`
	FrameHeight int       `json:"frameHeight"`
	Segments    []Segment `json:"segments"`
}

// Clone returns a copy that shares no memory with t.
func (t Timeline) Clone() Timeline {
	t.Segments = append([]Segment(nil), t.Segments...)
	return t
}

// SidecarPath returns the sidecar path for a media file: same directory and
// base name, with SidecarExt as extension.
func SidecarPath(mediaPath string) string {
	return strings.TrimSuffix(mediaPath, filepath.Ext(mediaPath)) + SidecarExt
}

// FromResult converts an analysis result to the timeline a reader of its
// sidecar would get: end times are dropped and each aspect ratio is the one
// its label names, falling back to the measured ratio for unparsable labels.
func FromResult(res *ratio.Result) Timeline {
	tl := Timeline{
		FrameWidth:  res.FrameWidth,
		FrameHeight: res.FrameHeight,
		Segments:    make([]Segment, len(res.Segments)),
	}
	for i, s := range res.Segments {
		r, ok := ParseRatio(s.Label)
		if !ok {
			r = s.Ratio
		}
		tl.Segments[i] = Segment{Start: s.Start, AspectRatio: r, Label: s.Label}
	}
	return tl
}
