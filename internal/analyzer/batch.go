package analyzer

import (
	"context"
	"sync"
	"time"

	"varatio/internal/logging"
)

// Summary counts the outcomes of a batch.
type Summary struct {
	Variable int `json:"variable"`
	Uniform  int `json:"uniform"`
	Failed   int `json:"failed"`
	Canceled int `json:"canceled"`

	// Skipped counts files never started because the batch was canceled.
	Skipped  int           `json:"skipped"`
	Duration time.Duration `json:"duration"`
}

func (s *Summary) add(st Status) {
	switch st {
	case StatusVariable:
		s.Variable++
	case StatusUniform:
		s.Uniform++
	case StatusFailed:
		s.Failed++
	case StatusCanceled:
		s.Canceled++
	}
}

// AnalyzeAll runs AnalyzeAndStore over paths with the given number of
// workers. A failing file never stops the batch; canceling ctx stops
// in-flight tools and leaves the remaining files unstarted. onReport, if
// non-nil, is called once per started file from the worker goroutines.
func (a *Analyzer) AnalyzeAll(ctx context.Context, paths []string, numWorkers int, onReport func(Report)) Summary {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if numWorkers > len(paths) {
		numWorkers = len(paths)
	}

	start := time.Now()
	jobs := make(chan string)
	reports := make(chan Report)

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				rep := a.AnalyzeAndStore(ctx, path)
				if onReport != nil {
					onReport(rep)
				}
				reports <- rep
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, p := range paths {
			select {
			case jobs <- p:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(reports)
	}()

	var sum Summary
	started := 0
	for rep := range reports {
		started++
		sum.add(rep.Status)
	}
	sum.Skipped = len(paths) - started
	sum.Duration = time.Since(start)

	logging.Info("Analysed %d files in %v: %d variable, %d uniform, %d failed, %d canceled, %d skipped",
		started, sum.Duration.Round(time.Millisecond), sum.Variable, sum.Uniform, sum.Failed, sum.Canceled, sum.Skipped)
	return sum
}
