package analyzer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"varatio/internal/logging"
	"varatio/internal/metrics"
	"varatio/internal/probe"
	"varatio/internal/procexec"
	"varatio/internal/ratio"
	"varatio/internal/sampler"
	"varatio/internal/timeline"
)

// ErrUniform is returned with the result of a file that has a single aspect
// ratio throughout. Nothing is persisted for such files.
var ErrUniform = errors.New("no variable aspect ratios")

// Config holds the tunables of an analysis run.
type Config struct {
	FFmpegPath  string
	FFprobePath string

	// BlackThreshold is the 0-255 luma level below which cropdetect treats
	// pixels as black.
	BlackThreshold int

	Tolerance          float64
	MinSegmentDuration float64

	SidecarFormat timeline.Format

	// SkipWrite reports variable results without writing their sidecars.
	SkipWrite bool
}

// DefaultConfig returns the stock tool names and thresholds.
func DefaultConfig() Config {
	p := ratio.DefaultParams()
	return Config{
		FFmpegPath:         "ffmpeg",
		FFprobePath:        "ffprobe",
		BlackThreshold:     16,
		Tolerance:          p.Tolerance,
		MinSegmentDuration: p.MinDuration,
		SidecarFormat:      timeline.FormatClock,
	}
}

func (c Config) params() ratio.Params {
	return ratio.Params{Tolerance: c.Tolerance, MinDuration: c.MinSegmentDuration}
}

// Analyzer runs probe, crop detection and classification for media files.
type Analyzer struct {
	runner procexec.Runner
	config Config
}

// New creates an Analyzer that spawns tools through r.
func New(r procexec.Runner, cfg Config) *Analyzer {
	return &Analyzer{runner: r, config: cfg}
}

// Config returns the configuration the analyzer was built with.
func (a *Analyzer) Config() Config {
	return a.config
}

// Analyze probes and samples path and builds its segment list. A file with a
// single segment returns its result together with ErrUniform, as does a file
// where no crop measurement could be classified (then the result is nil).
func (a *Analyzer) Analyze(ctx context.Context, path string) (*ratio.Result, error) {
	log := logging.For("analyze " + uuid.NewString()[:8])
	log.Debug("Analysing %s", path)

	metrics.AnalysisInFlight.Inc()
	defer metrics.AnalysisInFlight.Dec()
	start := time.Now()
	defer func() {
		metrics.AnalysisDuration.WithLabelValues("total").Observe(time.Since(start).Seconds())
	}()

	phase := time.Now()
	info, err := probe.Probe(ctx, a.runner, a.config.FFprobePath, path)
	metrics.AnalysisDuration.WithLabelValues("probe").Observe(time.Since(phase).Seconds())
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", path, err)
	}
	log.Debug("%s: %dx%d, %.3fs", path, info.Width, info.Height, info.Duration)

	phase = time.Now()
	samples, err := sampler.Sample(ctx, a.runner, a.config.FFmpegPath, path, info, a.config.BlackThreshold)
	metrics.AnalysisDuration.WithLabelValues("sample").Observe(time.Since(phase).Seconds())
	if err != nil {
		return nil, fmt.Errorf("sample %s: %w", path, err)
	}

	phase = time.Now()
	segs, err := ratio.Build(samples, info.Duration, a.config.params())
	metrics.AnalysisDuration.WithLabelValues("classify").Observe(time.Since(phase).Seconds())
	if errors.Is(err, ratio.ErrNoSignal) {
		log.Debug("%s: no classifiable samples out of %d", path, len(samples))
		return nil, fmt.Errorf("%s: %w: %w", path, ErrUniform, err)
	}
	if err != nil {
		return nil, fmt.Errorf("classify %s: %w", path, err)
	}

	res := &ratio.Result{
		Segments:    segs,
		FrameWidth:  info.Width,
		FrameHeight: info.Height,
	}
	metrics.SegmentsPerFile.Observe(float64(len(segs)))

	if !res.HasVariableRatios() {
		log.Debug("%s: uniform %s", path, labelOf(segs))
		return res, ErrUniform
	}
	log.Info("%s: %d segments in %v", path, len(segs), time.Since(start).Round(time.Millisecond))
	return res, nil
}

func labelOf(segs []ratio.Segment) string {
	if len(segs) == 0 {
		return "-"
	}
	return segs[0].Label
}
