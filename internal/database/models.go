package database

import (
	"time"

	"varatio/internal/ratio"
)

// Analysis is one ledger row.
type Analysis struct {
	Path        string          `json:"path"`
	ModTime     time.Time       `json:"modTime"`
	Status      string          `json:"status"`
	Segments    []ratio.Segment `json:"segments"`
	FrameWidth  int             `json:"frameWidth"`
	FrameHeight int             `json:"frameHeight"`
	Error       string          `json:"error,omitempty"`
	DurationMs  int64           `json:"durationMs"`
	AnalyzedAt  time.Time       `json:"analyzedAt"`
}

// Stats summarises the ledger.
type Stats struct {
	Total        int            `json:"total"`
	ByStatus     map[string]int `json:"byStatus"`
	LastAnalyzed time.Time      `json:"lastAnalyzed"`
}
