// Command varatio-analyze runs the aspect-ratio analysis once over the files
// named on the command line, or every video below the -dir directories.
//
// For each file it prints the outcome, the detected segments and the ffmpeg
// crop filter that would remove the letterbox bars. With -write, files with
// more than one aspect ratio also get a sidecar timeline next to them, the
// same file the varatio service reads.
//
// The exit status is 1 when any file failed, 2 on usage errors and 130 when
// interrupted.
package main
