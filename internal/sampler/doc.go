// Package sampler runs ffmpeg's cropdetect filter over a whole file and turns
// its diagnostic output into timestamped aspect-ratio samples.
//
// The diagnostic format belongs to ffmpeg and changes between releases, so
// all parsing lives in ParseCropdetect; callers only see ratio.Sample values.
package sampler
