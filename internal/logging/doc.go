// Package logging provides a simple leveled logging interface for the
// collage tool.
//
// It supports the following log levels:
//   - DEBUG: Verbose debugging information (worker lifecycle, per-stage detail)
//   - INFO: General operational messages (stage timings, results)
//   - WARN: Warning conditions (skipped images, degraded pastes)
//   - ERROR: Error conditions
//   - FATAL: Fatal errors that terminate the application
//
// The log level is configured via the LOG_LEVEL or DEBUG environment
// variables and may be overridden at runtime with SetLevel. All output goes
// to stderr unless redirected with SetOutput.
package logging
