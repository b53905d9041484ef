// Package procexec runs the external probing and frame-analysis tools.
//
// One output stream is collected while the other is drained concurrently so
// the child never blocks on a full pipe. Cancellation kills the child's
// process group rather than only the direct child.
package procexec
