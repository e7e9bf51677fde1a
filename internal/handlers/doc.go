// Package handlers provides the HTTP API of the collage server.
//
// It includes handlers for:
//   - Starting, polling and cancelling collage jobs
//   - Listing recorded runs from the history database
//   - Health checks, build information and Prometheus metrics
//
// Jobs run in the background; POST /api/collages answers 202 with the job
// ID and clients poll GET /api/collages/{id} until the status is no longer
// "running".
package handlers
