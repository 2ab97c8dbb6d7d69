package filesystem

import (
	"errors"
	"io/fs"
	"os"
	"syscall"
	"time"

	"plex-faces/internal/logging"
)

// RetryConfig controls how stale NFS handles are retried.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// VolumeResolver labels the StatEvent. nil uses the package default.
	VolumeResolver *VolumeResolver
}

// DefaultRetryConfig retries up to three times, 50ms to 500ms apart.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     500 * time.Millisecond,
	}
}

func (c RetryConfig) volume(path string) string {
	if c.VolumeResolver != nil {
		return c.VolumeResolver.Resolve(path)
	}
	return defaultResolver.Load().Resolve(path)
}

func (c RetryConfig) nextBackoff(current time.Duration) time.Duration {
	next := current * 2
	if next > c.MaxBackoff {
		return c.MaxBackoff
	}
	return next
}

// osStat is swapped out in tests to simulate stale handles
var osStat = os.Stat

func isNFSStaleError(err error) bool {
	return err != nil && errors.Is(err, syscall.ESTALE)
}

func classify(err error) StatOutcome {
	switch {
	case err == nil:
		return OutcomeFound
	case errors.Is(err, fs.ErrNotExist):
		return OutcomeMissing
	case isNFSStaleError(err):
		return OutcomeStale
	default:
		return OutcomeError
	}
}

// Stat stats a photo file with the default retry configuration.
func Stat(path string) (os.FileInfo, error) {
	return StatWithRetry(path, DefaultRetryConfig())
}

// StatWithRetry stats path, retrying only ESTALE errors with exponential
// backoff. Every other error is returned after the first attempt.
func StatWithRetry(path string, config RetryConfig) (os.FileInfo, error) {
	ev := StatEvent{Volume: config.volume(path)}
	start := time.Now()
	backoff := config.InitialBackoff

	var (
		info os.FileInfo
		err  error
	)
	for {
		ev.Attempts++
		info, err = osStat(path)
		if !isNFSStaleError(err) {
			break
		}
		ev.StaleErrors++
		if ev.Attempts > config.MaxRetries {
			logging.Warn("Stale file handle for %s after %d retries: %v", path, config.MaxRetries, err)
			break
		}
		logging.Debug("Stale file handle for %s, retry %d/%d in %v", path, ev.Attempts, config.MaxRetries, backoff)
		time.Sleep(backoff)
		backoff = config.nextBackoff(backoff)
	}

	if err == nil && ev.Retried() {
		logging.Info("Stat of %s succeeded after %d attempts", path, ev.Attempts)
	}

	ev.Outcome = classify(err)
	ev.Duration = time.Since(start)
	publish(ev)

	if err != nil {
		return nil, err
	}
	return info, nil
}
