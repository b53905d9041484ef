package library

import (
	"context"
	"errors"
	"sync"
	"time"

	"varatio/internal/analyzer"
	"varatio/internal/database"
	"varatio/internal/logging"
	"varatio/internal/metrics"
)

// ErrScanInProgress is returned by Scan while another scan holds the library.
var ErrScanInProgress = errors.New("scan already in progress")

// Ledger stores one row per analysed file.
type Ledger interface {
	ListAnalyses(ctx context.Context, status string) ([]database.Analysis, error)
	RecordAnalysis(ctx context.Context, a *database.Analysis) error
	DeleteAnalysis(ctx context.Context, path string) error
}

// Analyzer runs analyses and writes sidecars.
type Analyzer interface {
	AnalyzeAndStore(ctx context.Context, path string) analyzer.Report
	AnalyzeAll(ctx context.Context, paths []string, numWorkers int, onReport func(analyzer.Report)) analyzer.Summary
}

// Config controls scheduling.
type Config struct {
	// Interval between periodic scans; 0 disables them.
	Interval time.Duration
	// Workers is the number of files analysed in parallel.
	Workers int
	// Watch enables fsnotify-based detection of new files.
	Watch bool
	// Settle is how long a file must stay unchanged after a watcher event
	// before it is analysed.
	Settle time.Duration
}

// Library finds media files that need analysis and feeds them to the
// analyzer, on a timer, on request, and as files appear.
type Library struct {
	mediaDir string
	ledger   Ledger
	analyzer Analyzer
	config   Config

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	trigger chan struct{}

	// scanMu is held for the duration of any batch so the periodic scan,
	// manual scans and watcher batches never analyse concurrently.
	scanMu sync.Mutex

	stateMu     sync.Mutex
	scanning    bool
	lastScan    time.Time
	lastSummary analyzer.Summary
	initialDone bool
	startTime   time.Time
	pending     map[string]time.Time
}

// Status is reported by the health endpoints.
type Status struct {
	Ready       bool             `json:"ready"`
	Scanning    bool             `json:"scanning"`
	StartTime   time.Time        `json:"startTime"`
	Uptime      string           `json:"uptime"`
	LastScan    time.Time        `json:"lastScan,omitempty"`
	LastSummary analyzer.Summary `json:"lastSummary"`
	Pending     int              `json:"pending"`
}

// New creates a Library over mediaDir.
func New(mediaDir string, ledger Ledger, a Analyzer, cfg Config) *Library {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Settle <= 0 {
		cfg.Settle = 5 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Library{
		mediaDir:  mediaDir,
		ledger:    ledger,
		analyzer:  a,
		config:    cfg,
		ctx:       ctx,
		cancel:    cancel,
		trigger:   make(chan struct{}, 1),
		startTime: time.Now(),
		pending:   make(map[string]time.Time),
	}
}

// Start runs an initial scan in the background, then keeps scanning on the
// configured interval and on TriggerScan. With Watch set it also starts the
// filesystem watcher.
func (l *Library) Start() error {
	if l.config.Watch {
		w, err := l.newWatcher()
		if err != nil {
			return err
		}
		l.wg.Add(2)
		go l.watchLoop(w)
		go l.settleLoop()
	}

	l.wg.Add(1)
	go l.scanLoop()
	return nil
}

// Stop cancels in-flight analyses (their ffmpeg processes are killed) and
// waits for the background goroutines to exit.
func (l *Library) Stop() {
	l.cancel()
	l.wg.Wait()
	metrics.ScannerIsRunning.Set(0)
}

func (l *Library) scanLoop() {
	defer l.wg.Done()

	logging.Info("Starting initial library scan in background...")
	l.runScan("initial")

	var tick <-chan time.Time
	if l.config.Interval > 0 {
		ticker := time.NewTicker(l.config.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-tick:
			logging.Debug("Periodic library scan triggered")
			l.runScan("periodic")
		case <-l.trigger:
			l.runScan("manual")
		case <-l.ctx.Done():
			return
		}
	}
}

func (l *Library) runScan(reason string) {
	if _, err := l.Scan(l.ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error("%s library scan failed: %v", reason, err)
	}
	l.stateMu.Lock()
	l.initialDone = true
	l.stateMu.Unlock()
}

// TriggerScan queues a scan on the background loop. It returns false when a
// scan is already queued.
func (l *Library) TriggerScan() bool {
	select {
	case l.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// Scan walks the media directory and analyses every file that needs it.
func (l *Library) Scan(ctx context.Context) (analyzer.Summary, error) {
	if !l.scanMu.TryLock() {
		return analyzer.Summary{}, ErrScanInProgress
	}
	defer l.scanMu.Unlock()

	l.setScanning(true)
	defer l.setScanning(false)

	start := time.Now()
	metrics.ScannerRunsTotal.Inc()
	logging.Info("Starting library scan of %s", l.mediaDir)

	cands, err := l.Candidates(ctx)
	if err != nil {
		return analyzer.Summary{}, err
	}
	logging.Info("Library scan found %d files needing analysis", len(cands))

	sum := l.analyze(ctx, cands)

	duration := time.Since(start)
	metrics.ScannerLastRunDuration.Set(duration.Seconds())
	metrics.ScannerLastRunTimestamp.Set(float64(time.Now().Unix()))

	l.stateMu.Lock()
	l.lastScan = time.Now()
	l.lastSummary = sum
	l.stateMu.Unlock()

	logging.Info("Library scan complete in %v", duration.Round(time.Millisecond))
	return sum, ctx.Err()
}

// analyze runs a batch and records every finished file in the ledger.
func (l *Library) analyze(ctx context.Context, cands []Candidate) analyzer.Summary {
	if len(cands) == 0 {
		return analyzer.Summary{}
	}

	modTimes := make(map[string]time.Time, len(cands))
	paths := make([]string, 0, len(cands))
	for _, c := range cands {
		modTimes[c.Path] = c.ModTime
		paths = append(paths, c.Path)
	}

	metrics.ScannerQueueLength.Set(float64(len(paths)))
	defer metrics.ScannerQueueLength.Set(0)

	var done sync.Mutex
	remaining := len(paths)
	return l.analyzer.AnalyzeAll(ctx, paths, l.config.Workers, func(rep analyzer.Report) {
		done.Lock()
		remaining--
		metrics.ScannerQueueLength.Set(float64(remaining))
		done.Unlock()

		l.record(rep, modTimes[rep.Path])
	})
}

// AnalyzeFile analyses a single file now and records the outcome.
func (l *Library) AnalyzeFile(ctx context.Context, path string) (analyzer.Report, error) {
	info, err := statVideo(path)
	if err != nil {
		return analyzer.Report{}, err
	}
	rep := l.analyzer.AnalyzeAndStore(ctx, path)
	l.record(rep, info.ModTime())
	return rep, nil
}

func (l *Library) record(rep analyzer.Report, modTime time.Time) {
	// A canceled run says nothing about the file; keep the previous row.
	if rep.Status == analyzer.StatusCanceled {
		return
	}

	row := &database.Analysis{
		Path:       rep.Path,
		ModTime:    modTime,
		Status:     string(rep.Status),
		Error:      rep.Error(),
		DurationMs: rep.Duration.Milliseconds(),
	}
	if rep.Result != nil {
		row.Segments = rep.Result.Segments
		row.FrameWidth = rep.Result.FrameWidth
		row.FrameHeight = rep.Result.FrameHeight
	}

	// Recorded even during shutdown so finished work is not repeated.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := l.ledger.RecordAnalysis(ctx, row); err != nil {
		logging.Error("Failed to record analysis of %s: %v", rep.Path, err)
	}
}

func (l *Library) setScanning(v bool) {
	l.stateMu.Lock()
	l.scanning = v
	l.stateMu.Unlock()
	if v {
		metrics.ScannerIsRunning.Set(1)
	} else {
		metrics.ScannerIsRunning.Set(0)
	}
}

// IsScanning reports whether a batch is running.
func (l *Library) IsScanning() bool {
	l.stateMu.Lock()
	defer l.stateMu.Unlock()
	return l.scanning
}

// IsReady reports whether the initial scan has finished.
func (l *Library) IsReady() bool {
	l.stateMu.Lock()
	defer l.stateMu.Unlock()
	return l.initialDone
}

// GetStatus returns scanner state for health checks.
func (l *Library) GetStatus() Status {
	l.stateMu.Lock()
	defer l.stateMu.Unlock()
	return Status{
		Ready:       l.initialDone,
		Scanning:    l.scanning,
		StartTime:   l.startTime,
		Uptime:      time.Since(l.startTime).Round(time.Second).String(),
		LastScan:    l.lastScan,
		LastSummary: l.lastSummary,
		Pending:     len(l.pending),
	}
}
