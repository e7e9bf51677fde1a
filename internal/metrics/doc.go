// Package metrics provides Prometheus instrumentation for the collage
// pipeline. All metrics are prefixed with "image_collage_".
//
// # Metric Categories
//
//   - Runs: terminal status counts, in-flight gauge, end-to-end and per-stage
//     durations, failures by error kind
//   - Images: per-image load outcomes, decode formats, load phase timings,
//     libvips fallbacks, duplicates removed, worker pool size
//   - Compositor: canvas sizes, degraded alpha pastes, bytes written
//   - History: recorded runs by status (refreshed by Collector), query counts
//     and latency
//   - Memory: heap usage ratio and backpressure state
//   - Filesystem: NFS stale-handle retries, recorded through the
//     filesystem.Observer returned by NewFilesystemObserver
//
// Metrics are registered on the default registry through promauto and are
// served by the `serve` command at /metrics. InitializeMetrics pre-creates
// label combinations so dashboards see zeros instead of gaps.
package metrics
