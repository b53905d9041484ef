// Package probe reads frame size and duration from a media file with ffprobe.
package probe
