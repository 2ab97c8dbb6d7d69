/*
Package filesystem provides a resilient stat for photo files stored on NFS
mounts, retrying ESTALE (stale file handle) errors with exponential backoff.

# Usage

	info, err := filesystem.Stat("/photos/2023/IMG_0042.jpg")

or with a custom configuration:

	config := filesystem.RetryConfig{
	    MaxRetries:     5,
	    InitialBackoff: 100 * time.Millisecond,
	    MaxBackoff:     1 * time.Second,
	}
	info, err := filesystem.StatWithRetry(path, config)

Only ESTALE triggers retries. Any other error, including a missing file, is
returned immediately; the scanner treats that as "skip this record".

# Metrics

Each stat produces one StatEvent (volume, outcome, attempts, stale errors,
duration) delivered to the Observer registered with SetObserver. The
metrics package provides the Prometheus implementation; without an
observer nothing is recorded. Volume labels come from the VolumeResolver
set with SetDefaultVolumeResolver.
*/
package filesystem
