// Package cropfilter converts a parsed aspect-ratio timeline into an ffmpeg
// filter expression, for example:
//
//	crop=1920:804:0:138:enable='between(t,0.0000,624.3995)',crop=1920:1038:0:21:enable='gte(t,624.3995)'
//
// The expression is embedded in a transcode invocation with -vf.
package cropfilter
