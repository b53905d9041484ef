// Package memory sets the Go runtime's soft memory limit from the container
// limit, leaving headroom for the ffmpeg and ffprobe children that share the
// same cgroup. See ConfigureFromEnv for the environment variables it reads.
package memory
