// Package ratio turns timestamped crop measurements into aspect-ratio
// segments.
//
// Unknown samples adopt the file's dominant ratio, a new segment opens
// wherever the ratio moves beyond tolerance, and short or near-identical
// neighbours are merged until the list is stable.
package ratio
