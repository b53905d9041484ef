package procexec

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"varatio/internal/logging"
	"varatio/internal/metrics"
)

// Stream selects which output stream of a child process is collected.
type Stream int

const (
	// Stdout collects the child's standard output.
	Stdout Stream = iota
	// Stderr collects the child's standard error.
	Stderr
)

func (s Stream) String() string {
	if s == Stderr {
		return "stderr"
	}
	return "stdout"
}

// ErrToolNotFound is returned when the executable cannot be resolved or started.
var ErrToolNotFound = errors.New("tool not found")

//go:generate mockgen -destination=mocks/mock_runner.go -package=mocks varatio/internal/procexec Runner

// Runner runs an external tool and returns one of its output streams as text.
//
// A non-zero exit status is not an error: probing and analysis tools report
// failure through empty output, which callers check for. Cancellation of ctx
// kills the child's whole process group and returns an error satisfying
// errors.Is(err, context.Canceled) (or DeadlineExceeded); collected output is
// discarded in that case.
type Runner interface {
	Run(ctx context.Context, name string, args []string, want Stream) (string, error)
}

// Exec is the Runner backed by os/exec.
type Exec struct{}

// NewExec returns a Runner that spawns real processes.
func NewExec() *Exec {
	return &Exec{}
}

// Run implements Runner.
func (e *Exec) Run(ctx context.Context, name string, args []string, want Stream) (string, error) {
	tool := filepath.Base(name)
	start := time.Now()

	out, err := e.run(ctx, name, args, want)

	outcome := "success"
	switch {
	case err != nil && ctx.Err() != nil:
		outcome = "canceled"
	case err != nil:
		outcome = "error"
	case strings.TrimSpace(out) == "":
		outcome = "empty"
	}
	metrics.SubprocessRunsTotal.WithLabelValues(tool, outcome).Inc()
	metrics.SubprocessDuration.WithLabelValues(tool).Observe(time.Since(start).Seconds())

	return out, err
}

func (e *Exec) run(ctx context.Context, name string, args []string, want Stream) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	// #nosec G204 -- name comes from operator configuration
	cmd := exec.Command(name, args...)
	setProcessGroup(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return "", fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	wanted, other := io.Reader(stdout), io.Reader(stderr)
	if want == Stderr {
		wanted, other = stderr, stdout
	}

	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, exec.ErrDot) || errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s: %v", ErrToolNotFound, name, err)
		}
		return "", fmt.Errorf("failed to start %s: %w", name, err)
	}

	logging.Debug("Started %s (pid %d) collecting %s", filepath.Base(name), cmd.Process.Pid, want)

	var (
		buf strings.Builder
		wg  sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = io.Copy(&buf, wanted)
	}()
	go func() {
		defer wg.Done()
		_, _ = io.Copy(io.Discard, other)
	}()

	done := make(chan error, 1)
	go func() {
		// Both pipes must be drained before Wait closes them.
		wg.Wait()
		done <- cmd.Wait()
	}()

	select {
	case waitErr := <-done:
		if waitErr != nil {
			logging.Debug("%s exited with error: %v", filepath.Base(name), waitErr)
		}
		return buf.String(), nil
	case <-ctx.Done():
		if err := killProcessGroup(cmd); err != nil {
			logging.Warn("failed to kill %s process group: %v", filepath.Base(name), err)
		}
		<-done
		return "", fmt.Errorf("%s interrupted: %w", filepath.Base(name), ctx.Err())
	}
}
