package filesystem

import (
	"errors"
	"os"
	"syscall"
	"time"

	"varatio/internal/logging"
	"varatio/internal/metrics"
)

// RetryConfig configures retry behavior for filesystem operations
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryConfig returns sensible defaults for NFS retry behavior
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     500 * time.Millisecond,
	}
}

// isNFSStaleError checks if an error is an NFS stale file handle error
func isNFSStaleError(err error) bool {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.ESTALE
	}
	return false
}

// retry calls fn until it succeeds, fails with something other than ESTALE,
// or the retry budget is spent.
func retry[T any](op, path string, config RetryConfig, fn func() (T, error)) (T, error) {
	backoff := config.InitialBackoff
	var lastErr error

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		v, err := fn()
		if err == nil {
			if attempt > 0 {
				logging.Info("NFS %s succeeded on retry %d for %s", op, attempt, path)
			}
			return v, nil
		}
		lastErr = err

		if !isNFSStaleError(err) {
			var zero T
			return zero, err
		}

		if attempt < config.MaxRetries {
			metrics.FilesystemStaleRetries.WithLabelValues(op).Inc()
			logging.Debug("NFS %s stale file handle for %s, retrying in %v (attempt %d/%d)",
				op, path, backoff, attempt+1, config.MaxRetries)
			time.Sleep(backoff)

			backoff *= 2
			if backoff > config.MaxBackoff {
				backoff = config.MaxBackoff
			}
		}
	}

	logging.Warn("NFS %s failed after %d retries for %s: %v", op, config.MaxRetries, path, lastErr)
	var zero T
	return zero, lastErr
}

// StatWithRetry performs os.Stat with retry logic for NFS stale file handle errors
func StatWithRetry(path string, config RetryConfig) (os.FileInfo, error) {
	return retry("stat", path, config, func() (os.FileInfo, error) {
		return os.Stat(path)
	})
}

// ReadFileWithRetry performs os.ReadFile with retry logic for NFS stale file handle errors
func ReadFileWithRetry(path string, config RetryConfig) ([]byte, error) {
	return retry("read", path, config, func() ([]byte, error) {
		return os.ReadFile(path)
	})
}

// Stat is StatWithRetry with the default configuration.
func Stat(path string) (os.FileInfo, error) {
	return StatWithRetry(path, DefaultRetryConfig())
}

// ReadFile is ReadFileWithRetry with the default configuration.
func ReadFile(path string) ([]byte, error) {
	return ReadFileWithRetry(path, DefaultRetryConfig())
}
