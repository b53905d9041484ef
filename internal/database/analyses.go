package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"varatio/internal/ratio"
)

// ErrNotFound is returned when a path has no ledger row.
var ErrNotFound = errors.New("analysis not found")

const analysisColumns = `path, mod_time, status, segments, frame_width, frame_height, error, duration_ms, analyzed_at`

// RecordAnalysis inserts or replaces the ledger row for a.Path.
// mod_time is stored in nanoseconds so it compares exactly with os.FileInfo.
func (d *Database) RecordAnalysis(ctx context.Context, a *Analysis) (err error) {
	start := time.Now()
	defer func() { recordQuery("record_analysis", start, err) }()

	segs := a.Segments
	if segs == nil {
		segs = []ratio.Segment{}
	}
	segJSON, err := json.Marshal(segs)
	if err != nil {
		return fmt.Errorf("failed to encode segments: %w", err)
	}

	analyzedAt := a.AnalyzedAt
	if analyzedAt.IsZero() {
		analyzedAt = time.Now()
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, `
	INSERT INTO analyses (`+analysisColumns+`)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(path) DO UPDATE SET
		mod_time = excluded.mod_time,
		status = excluded.status,
		segments = excluded.segments,
		frame_width = excluded.frame_width,
		frame_height = excluded.frame_height,
		error = excluded.error,
		duration_ms = excluded.duration_ms,
		analyzed_at = excluded.analyzed_at
	`,
		a.Path,
		a.ModTime.UnixNano(),
		a.Status,
		string(segJSON),
		a.FrameWidth,
		a.FrameHeight,
		a.Error,
		a.DurationMs,
		analyzedAt.Unix(),
	)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row rowScanner) (*Analysis, error) {
	var (
		a          Analysis
		modTime    int64
		segJSON    string
		analyzedAt int64
	)
	if err := row.Scan(&a.Path, &modTime, &a.Status, &segJSON, &a.FrameWidth, &a.FrameHeight,
		&a.Error, &a.DurationMs, &analyzedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(segJSON), &a.Segments); err != nil {
		return nil, fmt.Errorf("corrupt segments for %s: %w", a.Path, err)
	}
	a.ModTime = time.Unix(0, modTime)
	a.AnalyzedAt = time.Unix(analyzedAt, 0)
	return &a, nil
}

// GetAnalysis returns the ledger row for path, or ErrNotFound.
func (d *Database) GetAnalysis(ctx context.Context, path string) (a *Analysis, err error) {
	start := time.Now()
	defer func() {
		if errors.Is(err, ErrNotFound) {
			recordQuery("get_analysis", start, nil)
			return
		}
		recordQuery("get_analysis", start, err)
	}()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	row := d.db.QueryRowContext(ctx, `SELECT `+analysisColumns+` FROM analyses WHERE path = ?`, path)
	a, err = scanAnalysis(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

// ListAnalyses returns ledger rows ordered by path. An empty status lists
// every row.
func (d *Database) ListAnalyses(ctx context.Context, status string) (list []Analysis, err error) {
	start := time.Now()
	defer func() { recordQuery("list_analyses", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	query := `SELECT ` + analysisColumns + ` FROM analyses`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY path`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list = []Analysis{}
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *a)
	}
	return list, rows.Err()
}

// DeleteAnalysis removes the ledger row for path. Missing rows are not an
// error.
func (d *Database) DeleteAnalysis(ctx context.Context, path string) (err error) {
	start := time.Now()
	defer func() { recordQuery("delete_analysis", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, `DELETE FROM analyses WHERE path = ?`, path)
	return err
}

// CountByStatus returns the number of rows per status.
func (d *Database) CountByStatus(ctx context.Context) (counts map[string]int, err error) {
	start := time.Now()
	defer func() { recordQuery("stats", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM analyses GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts = map[string]int{}
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// GetStats summarises the ledger.
func (d *Database) GetStats(ctx context.Context) (Stats, error) {
	counts, err := d.CountByStatus(ctx)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{ByStatus: counts}
	for _, n := range counts {
		stats.Total += n
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var last sql.NullInt64
	if err := d.db.QueryRowContext(ctx, `SELECT MAX(analyzed_at) FROM analyses`).Scan(&last); err != nil {
		return Stats{}, err
	}
	if last.Valid {
		stats.LastAnalyzed = time.Unix(last.Int64, 0)
	}
	return stats, nil
}
