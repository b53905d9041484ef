package analyzer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"varatio/internal/logging"
	"varatio/internal/metrics"
	"varatio/internal/ratio"
	"varatio/internal/timeline"
)

// Status is the outcome of analysing one file.
type Status string

const (
	StatusVariable Status = "variable"
	StatusUniform  Status = "uniform"
	StatusFailed   Status = "failed"
	StatusCanceled Status = "canceled"
)

// Report describes one AnalyzeAndStore call.
type Report struct {
	Path     string        `json:"path"`
	Status   Status        `json:"status"`
	Result   *ratio.Result `json:"result,omitempty"`
	Sidecar  string        `json:"sidecar,omitempty"`
	Err      error         `json:"-"`
	Duration time.Duration `json:"duration"`
}

// Error returns the failure message, or "" when the run did not fail.
func (r Report) Error() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// AnalyzeAndStore analyses path and writes its sidecar when the result is
// variable. A uniform result removes any sidecar left from an earlier run.
// Errors are folded into the report; cancellation is reported as
// StatusCanceled, never as a failure.
func (a *Analyzer) AnalyzeAndStore(ctx context.Context, path string) Report {
	start := time.Now()
	rep := Report{Path: path}

	res, err := a.Analyze(ctx, path)
	rep.Result = res
	switch {
	case err == nil && a.config.SkipWrite:
		rep.Status = StatusVariable
	case err == nil:
		sidecar, werr := timeline.WriteFile(res, path, a.config.SidecarFormat)
		if werr != nil {
			rep.Status, rep.Err = StatusFailed, werr
			break
		}
		rep.Status, rep.Sidecar = StatusVariable, sidecar
	case errors.Is(err, ErrUniform):
		rep.Status = StatusUniform
		if a.config.SkipWrite {
			break
		}
		if rerr := removeSidecar(path); rerr != nil {
			rep.Status, rep.Err = StatusFailed, rerr
		}
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil:
		rep.Status, rep.Err = StatusCanceled, err
	default:
		rep.Status, rep.Err = StatusFailed, err
	}

	rep.Duration = time.Since(start)
	metrics.AnalysisRunsTotal.WithLabelValues(string(rep.Status)).Inc()
	if rep.Status == StatusFailed {
		logging.Warn("Analysis of %s failed: %v", path, rep.Err)
	}
	return rep
}

// removeSidecar deletes a sidecar left by an earlier variable result for
// mediaPath. A missing sidecar is not an error.
func removeSidecar(mediaPath string) error {
	sidecar := timeline.SidecarPath(mediaPath)
	err := os.Remove(sidecar)
	switch {
	case err == nil:
		logging.Info("Removed stale sidecar %s", sidecar)
		return nil
	case errors.Is(err, fs.ErrNotExist):
		return nil
	default:
		return fmt.Errorf("failed to remove stale sidecar %s: %w", sidecar, err)
	}
}
