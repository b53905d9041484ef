package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"varatio/internal/analyzer"
	"varatio/internal/database"
	"varatio/internal/library"
	"varatio/internal/timeline"
)

// =============================================================================
// Mocks
// =============================================================================

type mockLedger struct {
	rows     []database.Analysis
	stats    database.Stats
	err      error
	lastWant string
}

func (m *mockLedger) ListAnalyses(_ context.Context, status string) ([]database.Analysis, error) {
	m.lastWant = status
	if m.err != nil {
		return nil, m.err
	}
	return m.rows, nil
}

func (m *mockLedger) GetStats(_ context.Context) (database.Stats, error) {
	return m.stats, m.err
}

type mockScanner struct {
	mu        sync.Mutex
	ready     bool
	scanning  bool
	queued    bool
	status    library.Status
	report    analyzer.Report
	err       error
	analyzed  []string
	triggered int
}

func (m *mockScanner) AnalyzeFile(_ context.Context, path string) (analyzer.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.analyzed = append(m.analyzed, path)
	if m.err != nil {
		return analyzer.Report{}, m.err
	}
	rep := m.report
	rep.Path = path
	return rep, nil
}

func (m *mockScanner) TriggerScan() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.triggered++
	if m.queued {
		return false
	}
	m.queued = true
	return true
}

func (m *mockScanner) IsScanning() bool { return m.scanning }
func (m *mockScanner) IsReady() bool    { return m.ready }
func (m *mockScanner) GetStatus() library.Status {
	s := m.status
	s.Ready = m.ready
	s.Scanning = m.scanning
	return s
}

type mockStreamer struct {
	file   string
	filter string
	err    error
}

func (m *mockStreamer) StreamCropped(_ context.Context, filePath, filter string, w io.Writer) error {
	m.file, m.filter = filePath, filter
	if m.err != nil {
		return m.err
	}
	_, err := io.WriteString(w, "mp4")
	return err
}

// =============================================================================
// Fixtures
// =============================================================================

const variableSidecar = `[VARatio v1]
FrameWidth: 1920
FrameHeight: 1080
SourceFile: film.mkv

1
00:00:00.000
2.39:1

2
00:01:00.000
16:9
`

// Frames this small leave no room for any crop height.
const uncroppableSidecar = `FrameWidth: 2
FrameHeight: 2

1
0
100:1

2
10
50:1
`

type fixture struct {
	dir      string
	h        *Handlers
	ledger   *mockLedger
	scanner  *mockScanner
	streamer *mockStreamer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	write := func(rel, content string) {
		p := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("movies/film.mkv", "video")
	write("movies/film.varatio", variableSidecar)
	write("tiny.mp4", "video")
	write("tiny.varatio", uncroppableSidecar)
	write("plain.mkv", "video")
	write("notes.varatio", variableSidecar)

	f := &fixture{
		dir:      dir,
		ledger:   &mockLedger{},
		scanner:  &mockScanner{ready: true},
		streamer: &mockStreamer{},
	}
	f.h = New(f.ledger, f.scanner, timeline.NewCache(), f.streamer, dir)
	return f
}

func serve(handler http.HandlerFunc, method, target string, vars map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if vars != nil {
		req = mux.SetURLVars(req, vars)
	}
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
}

// =============================================================================
// Path handling
// =============================================================================

func TestIsSubPath(t *testing.T) {
	tests := []struct {
		name   string
		parent string
		child  string
		want   bool
	}{
		{"same dir", "/media", "/media", true},
		{"child file", "/media", "/media/a.mkv", true},
		{"nested", "/media", "/media/x/y/a.mkv", true},
		{"parent escape", "/media", "/media/../etc/passwd", false},
		{"sibling prefix", "/media", "/media2/a.mkv", false},
		{"outside", "/media", "/etc", false},
		{"dotdot named file", "/media", "/media/..hidden.mkv", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isSubPath(tt.parent, tt.child); got != tt.want {
				t.Errorf("isSubPath(%q, %q) = %v, want %v", tt.parent, tt.child, got, tt.want)
			}
		})
	}
}

func TestResolvePath(t *testing.T) {
	h := New(nil, nil, nil, nil, "/media")

	if got, err := h.resolvePath("movies/film.mkv"); err != nil || got != filepath.Join("/media", "movies", "film.mkv") {
		t.Errorf("resolvePath() = %q, %v", got, err)
	}
	for _, bad := range []string{"", "  ", "../secret.mkv", "movies/../../secret.mkv"} {
		if _, err := h.resolvePath(bad); !errors.Is(err, errInvalidPath) {
			t.Errorf("resolvePath(%q) error = %v, want errInvalidPath", bad, err)
		}
	}
}

// =============================================================================
// Timeline endpoints
// =============================================================================

func TestGetTimeline(t *testing.T) {
	f := newFixture(t)

	rec := serve(f.h.GetTimeline, "GET", "/api/timeline/movies/film.mkv", map[string]string{"path": "movies/film.mkv"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var got TimelineResponse
	decode(t, rec, &got)
	if got.Path != "movies/film.mkv" || got.FrameWidth != 1920 || got.FrameHeight != 1080 {
		t.Errorf("response = %+v", got)
	}
	if len(got.Segments) != 2 || got.Segments[1].Start != 60 || got.Segments[1].Label != "16:9" {
		t.Errorf("segments = %+v", got.Segments)
	}
	if !strings.HasPrefix(got.Filter, "crop=1920:") {
		t.Errorf("filter = %q", got.Filter)
	}
}

func TestGetTimelineErrors(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		path string
		want int
	}{
		{"no sidecar", "plain.mkv", http.StatusNotFound},
		{"missing file", "nope.mkv", http.StatusNotFound},
		{"escape", "../etc/passwd", http.StatusBadRequest},
		{"empty", "", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(f.h.GetTimeline, "GET", "/api/timeline/x", map[string]string{"path": tt.path})
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q", ct)
			}
		})
	}
}

func TestGetFilter(t *testing.T) {
	f := newFixture(t)

	rec := serve(f.h.GetFilter, "GET", "/api/filter/movies/film.mkv", map[string]string{"path": "movies/film.mkv"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got map[string]string
	decode(t, rec, &got)
	want := "crop=1920:804:0:138:enable='between(t,0.0000,59.9995)',crop=1920:1080:0:0:enable='gte(t,59.9995)'"
	if got["filter"] != want {
		t.Errorf("filter = %q\nwant     %q", got["filter"], want)
	}

	rec = serve(f.h.GetFilter, "GET", "/api/filter/tiny.mp4", map[string]string{"path": "tiny.mp4"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("uncroppable status = %d, want 422", rec.Code)
	}

	rec = serve(f.h.GetFilter, "GET", "/api/filter/plain.mkv", map[string]string{"path": "plain.mkv"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing timeline status = %d, want 404", rec.Code)
	}
}

func TestGetSidecar(t *testing.T) {
	f := newFixture(t)

	rec := serve(f.h.GetSidecar, "GET", "/api/sidecar/movies/film.mkv", map[string]string{"path": "movies/film.mkv"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Body.String() != variableSidecar {
		t.Errorf("body = %q", rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type = %q", ct)
	}

	rec = serve(f.h.GetSidecar, "GET", "/api/sidecar/plain.mkv", map[string]string{"path": "plain.mkv"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing sidecar status = %d, want 404", rec.Code)
	}
}

// =============================================================================
// Streaming
// =============================================================================

func TestStreamCropped(t *testing.T) {
	f := newFixture(t)

	rec := serve(f.h.StreamCropped, "GET", "/api/stream/movies/film.mkv", map[string]string{"path": "movies/film.mkv"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("Content-Type") != "video/mp4" || rec.Body.String() != "mp4" {
		t.Errorf("response = %q %q", rec.Header().Get("Content-Type"), rec.Body.String())
	}
	if f.streamer.file != filepath.Join(f.dir, "movies", "film.mkv") || !strings.HasPrefix(f.streamer.filter, "crop=") {
		t.Errorf("streamer got %q %q", f.streamer.file, f.streamer.filter)
	}
}

func TestStreamCroppedRefusals(t *testing.T) {
	tests := []struct {
		name string
		path string
		want int
	}{
		{"no timeline", "plain.mkv", http.StatusNotFound},
		{"no crop possible", "tiny.mp4", http.StatusUnprocessableEntity},
		{"sidecar without media", "notes.txt", http.StatusNotFound},
		{"escape", "../../x.mkv", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			rec := serve(f.h.StreamCropped, "GET", "/api/stream/x", map[string]string{"path": tt.path})
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if f.streamer.file != "" {
				t.Errorf("streamer should not run, got %q", f.streamer.file)
			}
		})
	}
}

// =============================================================================
// Analysis endpoints
// =============================================================================

func TestAnalyzeFile(t *testing.T) {
	f := newFixture(t)
	f.scanner.report = analyzer.Report{Status: analyzer.StatusFailed, Err: errors.New("ffprobe returned no output"), Duration: time.Second}

	rec := serve(f.h.AnalyzeFile, "POST", "/api/analyze/plain.mkv", map[string]string{"path": "plain.mkv"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got map[string]interface{}
	decode(t, rec, &got)
	if got["status"] != "failed" || got["error"] != "ffprobe returned no output" {
		t.Errorf("response = %v", got)
	}
	if got["path"] != filepath.Join(f.dir, "plain.mkv") {
		t.Errorf("path = %v", got["path"])
	}
}

func TestAnalyzeFileErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", fmt.Errorf("stat: %w", os.ErrNotExist), http.StatusNotFound},
		{"not video", fmt.Errorf("x: %w", library.ErrNotVideo), http.StatusBadRequest},
		{"other", errors.New("permission denied"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.scanner.err = tt.err
			rec := serve(f.h.AnalyzeFile, "POST", "/api/analyze/x.mkv", map[string]string{"path": "x.mkv"})
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}

	f := newFixture(t)
	rec := serve(f.h.AnalyzeFile, "POST", "/api/analyze/x", map[string]string{"path": "../x.mkv"})
	if rec.Code != http.StatusBadRequest || len(f.scanner.analyzed) != 0 {
		t.Errorf("escape: status = %d, analysed %v", rec.Code, f.scanner.analyzed)
	}
}

func TestListAnalyses(t *testing.T) {
	f := newFixture(t)
	f.ledger.rows = []database.Analysis{{Path: "/media/a.mkv", Status: "uniform"}}

	rec := serve(f.h.ListAnalyses, "GET", "/api/analyses?status=uniform", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var rows []database.Analysis
	decode(t, rec, &rows)
	if len(rows) != 1 || rows[0].Path != "/media/a.mkv" || f.ledger.lastWant != "uniform" {
		t.Errorf("rows = %+v, filter = %q", rows, f.ledger.lastWant)
	}

	rec = serve(f.h.ListAnalyses, "GET", "/api/analyses?status=bogus", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad status filter = %d, want 400", rec.Code)
	}

	f.ledger.err = errors.New("disk I/O error")
	rec = serve(f.h.ListAnalyses, "GET", "/api/analyses", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("db error status = %d, want 500", rec.Code)
	}
}

func TestGetStats(t *testing.T) {
	f := newFixture(t)
	f.ledger.stats = database.Stats{Total: 3, ByStatus: map[string]int{"variable": 2, "failed": 1}}

	rec := serve(f.h.GetStats, "GET", "/api/stats", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got database.Stats
	decode(t, rec, &got)
	if got.Total != 3 || got.ByStatus["variable"] != 2 {
		t.Errorf("stats = %+v", got)
	}
}

func TestTriggerScan(t *testing.T) {
	f := newFixture(t)

	rec := serve(f.h.TriggerScan, "POST", "/api/scan", nil)
	if rec.Code != http.StatusAccepted {
		t.Errorf("first trigger status = %d, want 202", rec.Code)
	}

	rec = serve(f.h.TriggerScan, "POST", "/api/scan", nil)
	var got map[string]string
	decode(t, rec, &got)
	if got["status"] != "queued" {
		t.Errorf("second trigger = %v", got)
	}

	f.scanner.scanning = true
	rec = serve(f.h.TriggerScan, "POST", "/api/scan", nil)
	decode(t, rec, &got)
	if got["status"] != "already_running" {
		t.Errorf("trigger while scanning = %v", got)
	}
	if f.scanner.triggered != 2 {
		t.Errorf("TriggerScan called %d times, want 2", f.scanner.triggered)
	}
}

// =============================================================================
// Health endpoints
// =============================================================================

func TestHealthCheck(t *testing.T) {
	f := newFixture(t)
	f.scanner.status = library.Status{
		Uptime:      "1m0s",
		LastScan:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		LastSummary: analyzer.Summary{Variable: 2, Uniform: 5},
	}
	f.ledger.stats = database.Stats{Total: 7}

	rec := serve(f.h.HealthCheck, "GET", "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got HealthResponse
	decode(t, rec, &got)
	if got.Status != statusHealthy || !got.Ready || got.LastScan != "2026-01-02T03:04:05Z" {
		t.Errorf("health = %+v", got)
	}
	if got.Ledger == nil || got.Ledger.Total != 7 || got.LastSummary.Uniform != 5 {
		t.Errorf("health ledger = %+v summary = %+v", got.Ledger, got.LastSummary)
	}
}

func TestHealthCheckStates(t *testing.T) {
	tests := []struct {
		name       string
		ready      bool
		dbErr      error
		wantCode   int
		wantStatus string
	}{
		{"starting", false, nil, http.StatusServiceUnavailable, statusStarting},
		{"degraded", true, errors.New("database is locked"), http.StatusOK, statusDegraded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.scanner.ready = tt.ready
			f.ledger.err = tt.dbErr

			rec := serve(f.h.HealthCheck, "GET", "/health", nil)
			if rec.Code != tt.wantCode {
				t.Errorf("code = %d, want %d", rec.Code, tt.wantCode)
			}
			var got HealthResponse
			decode(t, rec, &got)
			if got.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", got.Status, tt.wantStatus)
			}
		})
	}
}

func TestLivenessCheck(t *testing.T) {
	f := newFixture(t)

	rec := serve(f.h.LivenessCheck, "GET", "/livez", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "alive") {
		t.Errorf("GET /livez = %d %q", rec.Code, rec.Body.String())
	}

	rec = serve(f.h.LivenessCheck, "HEAD", "/livez", nil)
	if rec.Code != http.StatusOK || rec.Body.Len() != 0 {
		t.Errorf("HEAD /livez = %d %q", rec.Code, rec.Body.String())
	}
}

func TestReadinessCheck(t *testing.T) {
	f := newFixture(t)

	rec := serve(f.h.ReadinessCheck, "GET", "/readyz", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("ready code = %d", rec.Code)
	}

	f.scanner.ready = false
	rec = serve(f.h.ReadinessCheck, "GET", "/readyz", nil)
	if rec.Code != http.StatusServiceUnavailable || !strings.Contains(rec.Body.String(), "not_ready") {
		t.Errorf("not ready = %d %q", rec.Code, rec.Body.String())
	}
}

func TestGetVersion(t *testing.T) {
	f := newFixture(t)

	rec := serve(f.h.GetVersion, "GET", "/version", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got map[string]string
	decode(t, rec, &got)
	for _, key := range []string{"version", "commit", "goVersion", "os", "arch"} {
		if got[key] == "" {
			t.Errorf("version response missing %q: %v", key, got)
		}
	}
	if rec.Header().Get("Cache-Control") != "no-cache" {
		t.Errorf("Cache-Control = %q", rec.Header().Get("Cache-Control"))
	}
}
