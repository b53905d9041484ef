package mediatypes

import (
	"path/filepath"
	"strings"
)

// VideoExtensions lists the container extensions the library scanner
// analyses. Keys are lowercase with the leading dot.
var VideoExtensions = map[string]string{
	".mp4":  "video/mp4",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
	".mov":  "video/quicktime",
	".wmv":  "video/x-ms-wmv",
	".flv":  "video/x-flv",
	".webm": "video/webm",
	".m4v":  "video/x-m4v",
	".mpeg": "video/mpeg",
	".mpg":  "video/mpeg",
	".3gp":  "video/3gpp",
	".ts":   "video/mp2t",
	".m2ts": "video/mp2t",
}

// Ext returns the lowercase extension of path, including the dot.
func Ext(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

// IsVideo reports whether path has a supported video extension.
func IsVideo(path string) bool {
	_, ok := VideoExtensions[Ext(path)]
	return ok
}

// GetMimeType returns the MIME type for path, or "application/octet-stream"
// when the extension is not a known video container.
func GetMimeType(path string) string {
	if mime, ok := VideoExtensions[Ext(path)]; ok {
		return mime
	}
	return "application/octet-stream"
}

// IsHidden reports whether a file or directory name starts with a dot.
func IsHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
