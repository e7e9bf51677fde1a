/*
Package filesystem provides resilient filesystem operations for reading
source images and writing collages, with automatic retry for NFS stale file
handle errors, and a portable creation-time lookup.

# Retry

StatWithRetry, OpenWithRetry and MkdirAllWithRetry wrap the os equivalents.
Only ESTALE (errno 116 on Linux) is retried, with exponential backoff capped
at RetryConfig.MaxBackoff; every other error is returned immediately.

	info, err := filesystem.StatWithRetry(path, filesystem.DefaultRetryConfig())

# Creation time

CreationTime extracts the creation timestamp that duplicate filtering uses
to prefer the oldest copy of an image:

	Linux          inode change time (st_ctim)
	macOS/FreeBSD  birth time (st_birthtimespec)
	Windows        CreationTime
	other          modification time

# Metrics

Retry activity is reported through the Observer interface. The metrics
package provides the Prometheus implementation and main installs it with
SetObserver; when no observer is set recording is skipped.
*/
package filesystem
