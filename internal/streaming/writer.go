package streaming

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"varatio/internal/logging"
)

var (
	// ErrWriteTimeout is returned when a single write, or the gap between
	// two successful writes, exceeds its limit. Usually a stalled client.
	ErrWriteTimeout = errors.New("write timeout exceeded")

	// ErrClientGone is returned once the request context is canceled.
	ErrClientGone = errors.New("client disconnected")

	// ErrClosed is returned by Write after Close.
	ErrClosed = errors.New("stream closed")
)

// Config bounds how long a stream may stall.
type Config struct {
	// WriteTimeout limits one write to the client.
	WriteTimeout time.Duration
	// IdleTimeout limits the time between successful writes; 0 disables it.
	IdleTimeout time.Duration
	// ChunkSize splits large writes and flushes after each piece; 0 writes
	// buffers as received.
	ChunkSize int
}

// DefaultConfig suits video output from ffmpeg.
func DefaultConfig() Config {
	return Config{
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
		ChunkSize:    256 * 1024,
	}
}

// Writer is an http.ResponseWriter wrapper whose writes give up when the
// client stalls or leaves.
type Writer struct {
	w       http.ResponseWriter
	flusher http.Flusher
	config  Config

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	started   time.Time
	lastWrite time.Time
	written   int64
	closed    bool
	timedOut  bool
}

// NewWriter wraps w. The writer stops when ctx (normally the request
// context) is canceled.
func NewWriter(ctx context.Context, w http.ResponseWriter, cfg Config) *Writer {
	wctx, cancel := context.WithCancel(ctx)
	now := time.Now()
	sw := &Writer{
		w:         w,
		config:    cfg,
		ctx:       wctx,
		cancel:    cancel,
		started:   now,
		lastWrite: now,
	}
	if f, ok := w.(http.Flusher); ok {
		sw.flusher = f
	}
	if cfg.IdleTimeout > 0 {
		go sw.watchIdle()
	}
	return sw
}

// Write implements io.Writer.
func (sw *Writer) Write(p []byte) (int, error) {
	total := 0
	for len(p) > 0 {
		if err := sw.err(); err != nil {
			return total, err
		}

		n := len(p)
		if sw.config.ChunkSize > 0 && n > sw.config.ChunkSize {
			n = sw.config.ChunkSize
		}

		written, err := sw.writeOnce(p[:n])
		total += written
		if err != nil {
			return total, err
		}
		if sw.flusher != nil {
			sw.flusher.Flush()
		}
		p = p[n:]
	}
	return total, nil
}

func (sw *Writer) writeOnce(p []byte) (int, error) {
	type result struct {
		n   int
		err error
	}
	done := make(chan result, 1)
	go func() {
		n, err := sw.w.Write(p)
		done <- result{n, err}
	}()

	timer := time.NewTimer(sw.config.WriteTimeout)
	defer timer.Stop()

	select {
	case r := <-done:
		if r.err == nil {
			sw.mu.Lock()
			sw.lastWrite = time.Now()
			sw.written += int64(r.n)
			sw.mu.Unlock()
		}
		return r.n, r.err
	case <-timer.C:
		sw.expire()
		return 0, ErrWriteTimeout
	case <-sw.ctx.Done():
		return 0, sw.err()
	}
}

func (sw *Writer) watchIdle() {
	ticker := time.NewTicker(sw.config.IdleTimeout / 4)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			sw.mu.Lock()
			idle := time.Since(sw.lastWrite)
			sw.mu.Unlock()
			if idle > sw.config.IdleTimeout {
				logging.Warn("Stream idle for %v, giving up", idle.Round(time.Second))
				sw.expire()
				return
			}
		case <-sw.ctx.Done():
			return
		}
	}
}

func (sw *Writer) expire() {
	sw.mu.Lock()
	sw.timedOut = true
	sw.mu.Unlock()
	sw.cancel()
}

// err reports why the writer can no longer be used, or nil.
func (sw *Writer) err() error {
	sw.mu.Lock()
	closed, timedOut := sw.closed, sw.timedOut
	sw.mu.Unlock()

	switch {
	case timedOut:
		return ErrWriteTimeout
	case closed:
		return ErrClosed
	case sw.ctx.Err() != nil:
		return ErrClientGone
	}
	return nil
}

// Close stops the idle watchdog. It is safe to call more than once.
func (sw *Writer) Close() error {
	sw.mu.Lock()
	sw.closed = true
	sw.mu.Unlock()
	sw.cancel()
	return nil
}

// Stats returns the bytes written and the time since the writer was created.
func (sw *Writer) Stats() (int64, time.Duration) {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return sw.written, time.Since(sw.started)
}

// Copy streams r to w through a Writer and returns the bytes delivered.
func Copy(ctx context.Context, w http.ResponseWriter, r io.Reader, cfg Config) (int64, error) {
	sw := NewWriter(ctx, w, cfg)
	defer sw.Close()

	w.Header().Set("X-Content-Type-Options", "nosniff")

	_, err := io.Copy(sw, r)
	n, d := sw.Stats()
	logging.Debug("Stream finished: %d bytes in %v", n, d.Round(time.Millisecond))
	return n, err
}
