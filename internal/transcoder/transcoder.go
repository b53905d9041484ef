package transcoder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/exec"
	"strings"
	"sync"

	"github.com/google/uuid"

	"varatio/internal/logging"
	"varatio/internal/metrics"
	"varatio/internal/procexec"
	"varatio/internal/streaming"
)

// ErrNoFilter is returned when asked to stream without a crop filter.
var ErrNoFilter = errors.New("no crop filter")

// Transcoder re-encodes media through ffmpeg with a crop filter applied and
// streams the result as fragmented MP4.
type Transcoder struct {
	ffmpegPath string

	processes map[string]*stream
	processMu sync.Mutex

	streamConfig streaming.Config
}

type stream struct {
	path string
	cmd  *exec.Cmd
}

// New creates a Transcoder that runs ffmpegPath.
func New(ffmpegPath string) *Transcoder {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &Transcoder{
		ffmpegPath:   ffmpegPath,
		processes:    make(map[string]*stream),
		streamConfig: streaming.DefaultConfig(),
	}
}

func (t *Transcoder) args(filePath, filter string) []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-i", filePath,
		"-vf", filter,
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "23",
		"-c:a", "aac",
		"-b:a", "128k",
		"-movflags", "frag_keyframe+empty_moov+default_base_moof",
		"-f", "mp4",
		"-",
	}
}

// StreamCropped transcodes filePath with filter and writes the MP4 to w.
// When w is an http.ResponseWriter the copy is timeout-protected and a client
// that leaves ends the stream without error. Canceling ctx kills ffmpeg.
func (t *Transcoder) StreamCropped(ctx context.Context, filePath, filter string, w io.Writer) error {
	if strings.TrimSpace(filter) == "" {
		return ErrNoFilter
	}

	cmd := procexec.Command(t.ffmpegPath, t.args(filePath, filter)...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	id := t.track(filePath, cmd)
	defer t.untrack(id)

	metrics.StreamsActive.Inc()
	defer metrics.StreamsActive.Dec()

	stop := context.AfterFunc(ctx, func() {
		_ = procexec.Kill(cmd)
	})
	defer stop()

	logging.Debug("Streaming %s with crop filter (stream %s)", filePath, id)

	var streamErr error
	if hw, ok := w.(http.ResponseWriter); ok {
		_, streamErr = streaming.Copy(ctx, hw, stdout, t.streamConfig)
	} else {
		_, streamErr = io.Copy(w, stdout)
	}
	if streamErr != nil {
		_ = procexec.Kill(cmd)
	}

	cmdErr := cmd.Wait()

	if streamErr != nil {
		if errors.Is(streamErr, streaming.ErrClientGone) || errors.Is(streamErr, streaming.ErrWriteTimeout) {
			logging.Debug("Stream ended: %v for %s", streamErr, filePath)
			return nil
		}
		return streamErr
	}

	if cmdErr != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logging.Error("FFmpeg stderr: %s", strings.TrimSpace(stderr.String()))
		return fmt.Errorf("transcoding error: %w", cmdErr)
	}
	return nil
}

func (t *Transcoder) track(path string, cmd *exec.Cmd) string {
	id := uuid.NewString()
	t.processMu.Lock()
	t.processes[id] = &stream{path: path, cmd: cmd}
	t.processMu.Unlock()
	return id
}

func (t *Transcoder) untrack(id string) {
	t.processMu.Lock()
	delete(t.processes, id)
	t.processMu.Unlock()
}

// ActiveStreams returns the number of running transcodes.
func (t *Transcoder) ActiveStreams() int {
	t.processMu.Lock()
	defer t.processMu.Unlock()
	return len(t.processes)
}

// Cleanup kills all running transcodes.
func (t *Transcoder) Cleanup() {
	t.processMu.Lock()
	defer t.processMu.Unlock()

	for _, s := range t.processes {
		logging.Info("Killing transcoding process for: %s", s.path)
		if err := procexec.Kill(s.cmd); err != nil {
			logging.Warn("failed to kill transcoding process for %s: %v", s.path, err)
		}
	}
}
