/*
Package filesystem wraps the file operations varatio performs against media
libraries, which are frequently NFS or SMB mounts.

# Stale handles

StatWithRetry and ReadFileWithRetry retry ESTALE failures with exponential
backoff (default: 3 retries, 50ms doubling to 500ms). Any other error is
returned immediately.

# Atomic writes

WriteFileAtomic writes sidecar timelines through a temporary file in the
target directory and renames it into place, so a concurrent reader never
observes a half-written sidecar and a failed write leaves the previous file
untouched.
*/
package filesystem
