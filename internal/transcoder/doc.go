// Package transcoder serves letterbox-free playback. It runs ffmpeg with the
// crop filter built from a media file's timeline and streams the re-encoded
// fragmented MP4 to the client through package streaming. Running transcodes
// are tracked so that shutdown can kill them.
package transcoder
