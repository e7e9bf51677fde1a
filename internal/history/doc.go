// Package history keeps an append-only SQLite log of collage runs.
//
// Every finished run (success, failure or stop) is recorded with its counts,
// grid geometry and output path. Nothing in the log feeds back into later
// runs; it exists for the history command, the HTTP API and metrics.
package history
