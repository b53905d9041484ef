package analyzer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/golang/mock/gomock"

	"varatio/internal/probe"
	"varatio/internal/procexec"
	"varatio/internal/procexec/mocks"
	"varatio/internal/timeline"
)

func cropLine(at float64, w, h int) string {
	y := (1080 - h) / 2
	return fmt.Sprintf("[Parsed_cropdetect_0 @ 0x5581] x1:0 x2:%d y1:%d y2:%d w:%d h:%d x:0 y:%d pts:1 t:%g limit:0.0627 crop=%d:%d:0:%d",
		w-1, y, y+h-1, w, h, y, at, w, h, y)
}

// fakeMedia describes what the tools report for one file.
type fakeMedia struct {
	probe    string
	stderr   string
	probeErr error
}

var (
	variableFilm = fakeMedia{
		probe: "1920,1080,50.000000\n",
		stderr: strings.Join([]string{
			cropLine(0, 1920, 803),
			cropLine(10, 1920, 803),
			cropLine(10.2, 1920, 100),
			cropLine(10.4, 1920, 1038),
			cropLine(40, 1920, 1038),
		}, "\n"),
	}
	uniformFilm = fakeMedia{
		probe:  "1920,1080,30\n",
		stderr: cropLine(0, 1920, 803) + "\n" + cropLine(15, 1920, 803),
	}
	titleCardsOnly = fakeMedia{
		probe:  "1920,1080,30\n",
		stderr: cropLine(0, 1920, 100) + "\n" + cropLine(15, 1920, 120),
	}
	brokenFilm = fakeMedia{probe: ""}
)

func pathArg(args []string, want procexec.Stream) string {
	if want == procexec.Stdout {
		return args[len(args)-1]
	}
	for i, a := range args {
		if a == "-i" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func fakeRunner(t *testing.T, files map[string]fakeMedia) *mocks.MockRunner {
	t.Helper()
	ctrl := gomock.NewController(t)
	runner := mocks.NewMockRunner(ctrl)
	runner.EXPECT().Run(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes().
		DoAndReturn(func(ctx context.Context, name string, args []string, want procexec.Stream) (string, error) {
			if err := ctx.Err(); err != nil {
				return "", fmt.Errorf("%s: %w", name, err)
			}
			m, ok := files[filepath.Base(pathArg(args, want))]
			if !ok {
				return "", nil
			}
			if want == procexec.Stdout {
				return m.probe, m.probeErr
			}
			return m.stderr, nil
		})
	return runner
}

func TestAnalyzeWorkedExample(t *testing.T) {
	runner := fakeRunner(t, map[string]fakeMedia{"film.mkv": variableFilm})
	a := New(runner, DefaultConfig())

	res, err := a.Analyze(context.Background(), "/media/film.mkv")
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if res.FrameWidth != 1920 || res.FrameHeight != 1080 {
		t.Errorf("frame = %dx%d", res.FrameWidth, res.FrameHeight)
	}

	type seg struct {
		start, end float64
		label      string
	}
	want := []seg{{0, 10.4, "2.39:1"}, {10.4, 50, "1.85:1"}}
	if len(res.Segments) != len(want) {
		t.Fatalf("got %d segments %+v, want %d", len(res.Segments), res.Segments, len(want))
	}
	for i, s := range res.Segments {
		if s.Start != want[i].start || s.End != want[i].end || s.Label != want[i].label {
			t.Errorf("segment %d = %+v, want %+v", i, s, want[i])
		}
	}
}

func TestAnalyzeUniform(t *testing.T) {
	runner := fakeRunner(t, map[string]fakeMedia{"flat.mkv": uniformFilm})
	a := New(runner, DefaultConfig())

	res, err := a.Analyze(context.Background(), "flat.mkv")
	if !errors.Is(err, ErrUniform) {
		t.Fatalf("Analyze() error = %v, want ErrUniform", err)
	}
	if res == nil || len(res.Segments) != 1 || res.Segments[0].End != 30 {
		t.Errorf("Analyze() result = %+v", res)
	}
}

func TestAnalyzeNoSignalIsUniform(t *testing.T) {
	runner := fakeRunner(t, map[string]fakeMedia{"cards.mkv": titleCardsOnly})
	a := New(runner, DefaultConfig())

	_, err := a.Analyze(context.Background(), "cards.mkv")
	if !errors.Is(err, ErrUniform) {
		t.Errorf("Analyze() error = %v, want ErrUniform", err)
	}
}

func TestAnalyzeProbeFailure(t *testing.T) {
	runner := fakeRunner(t, map[string]fakeMedia{"broken.mkv": brokenFilm})
	a := New(runner, DefaultConfig())

	_, err := a.Analyze(context.Background(), "broken.mkv")
	if !errors.Is(err, probe.ErrProbeFailed) {
		t.Errorf("Analyze() error = %v, want ErrProbeFailed", err)
	}
}

func TestAnalyzeAndStore(t *testing.T) {
	dir := t.TempDir()
	runner := fakeRunner(t, map[string]fakeMedia{
		"film.mkv":   variableFilm,
		"flat.mkv":   uniformFilm,
		"broken.mkv": brokenFilm,
	})
	cfg := DefaultConfig()
	cfg.SidecarFormat = timeline.FormatSeconds
	a := New(runner, cfg)

	tests := []struct {
		file        string
		wantStatus  Status
		wantSidecar bool
	}{
		{"film.mkv", StatusVariable, true},
		{"flat.mkv", StatusUniform, false},
		{"broken.mkv", StatusFailed, false},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			rep := a.AnalyzeAndStore(context.Background(), path)
			if rep.Status != tt.wantStatus {
				t.Errorf("status = %s, want %s (err %v)", rep.Status, tt.wantStatus, rep.Err)
			}
			if (rep.Err != nil) != (tt.wantStatus == StatusFailed) {
				t.Errorf("err = %v for status %s", rep.Err, rep.Status)
			}

			_, statErr := os.Stat(timeline.SidecarPath(path))
			if exists := statErr == nil; exists != tt.wantSidecar {
				t.Errorf("sidecar exists = %v, want %v", exists, tt.wantSidecar)
			}
			if tt.wantSidecar && rep.Sidecar != timeline.SidecarPath(path) {
				t.Errorf("report sidecar = %q", rep.Sidecar)
			}
		})
	}

	data, err := os.ReadFile(timeline.SidecarPath(filepath.Join(dir, "film.mkv")))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.HasPrefix(string(data), "[VARatio v1]\n") || !strings.Contains(string(data), "\n10.400000\n") {
		t.Errorf("unexpected sidecar:\n%s", data)
	}
}

func TestAnalyzeAndStoreSkipWrite(t *testing.T) {
	runner := fakeRunner(t, map[string]fakeMedia{"film.mkv": variableFilm})
	cfg := DefaultConfig()
	cfg.SkipWrite = true
	a := New(runner, cfg)

	path := filepath.Join(t.TempDir(), "film.mkv")
	rep := a.AnalyzeAndStore(context.Background(), path)
	if rep.Status != StatusVariable || rep.Result == nil {
		t.Fatalf("report = %+v, want variable with result", rep)
	}
	if rep.Sidecar != "" {
		t.Errorf("sidecar = %q, want none", rep.Sidecar)
	}
	if _, err := os.Stat(timeline.SidecarPath(path)); !os.IsNotExist(err) {
		t.Errorf("sidecar written: %v", err)
	}
}

func TestAnalyzeAndStoreUniformRemovesStaleSidecar(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "film.mkv")

	first := New(fakeRunner(t, map[string]fakeMedia{"film.mkv": variableFilm}), DefaultConfig())
	if rep := first.AnalyzeAndStore(context.Background(), path); rep.Status != StatusVariable {
		t.Fatalf("first run status = %s, want variable (err %v)", rep.Status, rep.Err)
	}
	if _, err := os.Stat(timeline.SidecarPath(path)); err != nil {
		t.Fatalf("sidecar not written: %v", err)
	}

	// The file was replaced by a cut without letterbox changes.
	second := New(fakeRunner(t, map[string]fakeMedia{"film.mkv": uniformFilm}), DefaultConfig())
	rep := second.AnalyzeAndStore(context.Background(), path)
	if rep.Status != StatusUniform || rep.Err != nil {
		t.Fatalf("second run = %s (err %v), want uniform", rep.Status, rep.Err)
	}
	if _, err := os.Stat(timeline.SidecarPath(path)); !os.IsNotExist(err) {
		t.Errorf("stale sidecar still present: %v", err)
	}
}

func TestAnalyzeAndStoreUniformKeepsSidecarWithSkipWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "film.mkv")
	sidecar := timeline.SidecarPath(path)
	if err := os.WriteFile(sidecar, []byte("[VARatio v1]\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := DefaultConfig()
	cfg.SkipWrite = true
	a := New(fakeRunner(t, map[string]fakeMedia{"film.mkv": uniformFilm}), cfg)
	if rep := a.AnalyzeAndStore(context.Background(), path); rep.Status != StatusUniform {
		t.Fatalf("status = %s, want uniform", rep.Status)
	}
	if _, err := os.Stat(sidecar); err != nil {
		t.Errorf("sidecar removed despite SkipWrite: %v", err)
	}
}

func TestAnalyzeAndStoreCanceled(t *testing.T) {
	runner := fakeRunner(t, map[string]fakeMedia{"film.mkv": variableFilm})
	a := New(runner, DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rep := a.AnalyzeAndStore(ctx, filepath.Join(t.TempDir(), "film.mkv"))
	if rep.Status != StatusCanceled {
		t.Errorf("status = %s, want canceled", rep.Status)
	}
	if !errors.Is(rep.Err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", rep.Err)
	}
}

func TestAnalyzeAllKeepsGoingPastFailures(t *testing.T) {
	dir := t.TempDir()
	runner := fakeRunner(t, map[string]fakeMedia{
		"a.mkv": variableFilm,
		"b.mkv": brokenFilm,
		"c.mkv": uniformFilm,
		"d.mkv": variableFilm,
	})
	a := New(runner, DefaultConfig())

	var paths []string
	for _, name := range []string{"a.mkv", "b.mkv", "c.mkv", "d.mkv", "missing.mkv"} {
		paths = append(paths, filepath.Join(dir, name))
	}

	var mu sync.Mutex
	seen := map[string]Status{}
	sum := a.AnalyzeAll(context.Background(), paths, 3, func(r Report) {
		mu.Lock()
		defer mu.Unlock()
		seen[filepath.Base(r.Path)] = r.Status
	})

	if sum.Variable != 2 || sum.Uniform != 1 || sum.Failed != 2 || sum.Canceled != 0 || sum.Skipped != 0 {
		t.Errorf("summary = %+v", sum)
	}
	if len(seen) != len(paths) {
		t.Errorf("onReport saw %d files, want %d", len(seen), len(paths))
	}
	if seen["d.mkv"] != StatusVariable {
		t.Errorf("d.mkv status = %s", seen["d.mkv"])
	}
}

func TestAnalyzeAllCanceled(t *testing.T) {
	runner := fakeRunner(t, map[string]fakeMedia{"a.mkv": variableFilm})
	a := New(runner, DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	paths := []string{"a.mkv", "a.mkv", "a.mkv", "a.mkv"}
	sum := a.AnalyzeAll(ctx, paths, 2, nil)
	if sum.Variable != 0 || sum.Failed != 0 {
		t.Errorf("summary = %+v, want nothing analysed", sum)
	}
	if sum.Canceled+sum.Skipped != len(paths) {
		t.Errorf("canceled %d + skipped %d != %d", sum.Canceled, sum.Skipped, len(paths))
	}
}

func TestAnalyzeAllEmpty(t *testing.T) {
	a := New(fakeRunner(t, nil), DefaultConfig())
	if sum := a.AnalyzeAll(context.Background(), nil, 4, nil); sum != (Summary{Duration: sum.Duration}) {
		t.Errorf("summary = %+v, want zero", sum)
	}
}
