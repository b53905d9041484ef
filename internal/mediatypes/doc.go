// Package mediatypes decides which files in the media directory are videos.
//
// It has no dependencies beyond the standard library so that the scanner,
// the watcher and the HTTP handlers can all share it:
//
//	if mediatypes.IsVideo(path) && !mediatypes.IsHidden(filepath.Base(path)) {
//	    queue = append(queue, path)
//	}
package mediatypes
