// Package streaming copies long-running output, such as a cropped ffmpeg
// transcode, to an HTTP client without letting a stalled or vanished client
// hold the producer open.
//
// A Writer bounds each write by Config.WriteTimeout and the gap between
// successful writes by Config.IdleTimeout. Large buffers are split into
// Config.ChunkSize pieces and flushed one at a time. Once the request context
// is canceled every write fails with ErrClientGone; a stall fails with
// ErrWriteTimeout. Callers treat both as a normal end of stream.
//
//	n, err := streaming.Copy(r.Context(), w, stdout, streaming.DefaultConfig())
//	if errors.Is(err, streaming.ErrClientGone) {
//		// viewer closed the tab
//	}
package streaming
