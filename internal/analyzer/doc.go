/*
Package analyzer sequences the analysis of one media file: ffprobe for the
frame size and duration, an ffmpeg cropdetect pass for crop measurements,
then classification into aspect-ratio segments.

	a := analyzer.New(procexec.NewExec(), cfg)
	rep := a.AnalyzeAndStore(ctx, "/media/film.mkv")

Files with more than one segment get a sidecar next to them. Uniform files
are reported but nothing is written. AnalyzeAll runs a batch on a fixed
number of workers and keeps going past per-file failures.
*/
package analyzer
