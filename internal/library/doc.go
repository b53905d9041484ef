// Package library keeps the sidecars of a media directory up to date.
//
// It finds videos that need analysis in three ways:
//   - Initial scan: a full walk on startup
//   - Periodic scan: a full walk every SCAN_INTERVAL
//   - File watching: fsnotify events, analysed once the file has settled
//
// A scan can also be triggered through the API. Only one batch runs at a
// time. Each finished file is recorded in the ledger so uniform and failing
// files are not analysed again until they change. Hidden files and
// directories are ignored.
package library
