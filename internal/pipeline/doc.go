// Package pipeline drives one collage run from input paths to a PNG file.
//
// Stages run in order: parallel load (0-55%), duplicate filtering (55-60%),
// grid planning (65%), compositing (70-95%) and saving (95-100%). Progress,
// completion and failure are delivered to an Observer. A cancelled run ends
// with StatusStopped and emits neither a completion nor a failure event.
//
// Run blocks; Start runs the same work on its own goroutine and returns a Job
// that can be polled, cancelled and waited on.
package pipeline
