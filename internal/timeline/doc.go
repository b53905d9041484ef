// Package timeline reads and writes .varatio sidecar files.
//
// A sidecar looks like:
//
//	[VARatio v2]
//	FrameWidth: 1920
//	FrameHeight: 1080
//	SourceFile: film.mkv
//
//	1
//	00:00:00.000
//	2.39:1
//
//	2
//	00:10:24.400
//	1.85:1
//
// Version 1 files write start times as plain seconds ("624.400000"). The
// parser accepts both forms regardless of the header.
//
// Cache keeps parsed sidecars in memory and re-parses a file only when its
// modification time changes.
package timeline
