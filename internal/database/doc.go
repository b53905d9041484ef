// Package database keeps the analysis ledger in SQLite.
//
// Every analysed media file gets a row recording the outcome (variable,
// uniform, failed or canceled), the segments found and the media file's
// modification time at analysis. Uniform files leave no sidecar behind, so
// the ledger is what lets the library scanner skip them until they change.
//
// The database runs in WAL mode so the HTTP handlers can read while analysis
// workers write.
package database
