package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Run metrics
var (
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_collage_runs_total",
			Help: "Total number of collage runs by terminal status",
		},
		[]string{"status"}, // "success", "failed", "stopped"
	)

	RunsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "image_collage_runs_in_progress",
			Help: "Number of collage runs currently executing",
		},
	)

	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "image_collage_run_duration_seconds",
			Help:    "End-to-end collage run duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "image_collage_stage_duration_seconds",
			Help:    "Duration of each pipeline stage in seconds",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"stage"}, // "load", "filter", "layout", "compose", "save"
	)

	RunFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_collage_run_failures_total",
			Help: "Total number of failed runs by error kind",
		},
		[]string{"kind"},
	)
)

// Image metrics
var (
	ImagesLoadedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_collage_images_loaded_total",
			Help: "Total number of source images processed by outcome",
		},
		[]string{"status"}, // "success", "metadata_unavailable", "decode_failed"
	)

	ImageDecodeByFormat = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_collage_image_decode_by_format_total",
			Help: "Total number of decoded source images by format",
		},
		[]string{"format"},
	)

	ImageLoadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "image_collage_image_load_duration_seconds",
			Help:    "Per-image load phase duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"phase"}, // "decode", "hash", "resize"
	)

	VipsFallbackTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_collage_vips_fallback_total",
			Help: "Total number of libvips fallback decodes by outcome",
		},
		[]string{"status"},
	)

	PartialDecodesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_collage_partial_decodes_total",
			Help: "Total number of truncated images decoded from the data that was present",
		},
		[]string{"format"},
	)

	DuplicatesRemovedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "image_collage_duplicates_removed_total",
			Help: "Total number of images dropped by duplicate filtering",
		},
	)

	DispatcherWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "image_collage_dispatcher_workers",
			Help: "Number of workers used by the most recent load stage",
		},
	)

	DispatcherPressureBypass = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "image_collage_dispatcher_pressure_bypass_total",
			Help: "Total number of loads scheduled while memory pressure had not cleared",
		},
	)
)

// Compositor metrics
var (
	CanvasPixels = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "image_collage_canvas_pixels",
			Help:    "Pixel count of composited canvases",
			Buckets: prometheus.ExponentialBuckets(1<<16, 4, 10),
		},
	)

	PasteDegradedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "image_collage_paste_degraded_total",
			Help: "Total number of alpha images pasted opaque because mask extraction failed",
		},
	)

	CollageBytesWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "image_collage_output_bytes_total",
			Help: "Total bytes of encoded collages written to disk",
		},
	)
)

// History metrics
var (
	HistoryRuns = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "image_collage_history_runs",
			Help: "Number of runs recorded in the history database by status",
		},
		[]string{"status"},
	)

	HistoryQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_collage_history_queries_total",
			Help: "Total number of history database queries",
		},
		[]string{"operation", "status"},
	)

	HistoryQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "image_collage_history_query_duration_seconds",
			Help:    "History database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"operation"},
	)
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_collage_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "image_collage_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "image_collage_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	JobsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "image_collage_jobs_active",
			Help: "Collage jobs started over HTTP that have not finished",
		},
	)
)

// Memory metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "image_collage_memory_usage_ratio",
			Help: "Heap allocation as a fraction of the configured memory limit",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "image_collage_memory_paused",
			Help: "Whether image scheduling is paused for memory pressure (1 = paused)",
		},
	)

	MemoryGCPauses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "image_collage_memory_gc_pauses_total",
			Help: "Total number of forced GCs triggered by memory pressure",
		},
	)
)

// Filesystem metrics
var (
	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_collage_filesystem_retry_attempts_total",
			Help: "Total number of filesystem retries after a stale NFS handle",
		},
		[]string{"operation"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_collage_filesystem_retry_success_total",
			Help: "Total number of filesystem operations that succeeded after retrying",
		},
		[]string{"operation"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_collage_filesystem_retry_failures_total",
			Help: "Total number of filesystem operations that failed after all retries",
		},
		[]string{"operation"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_collage_filesystem_stale_errors_total",
			Help: "Total number of ESTALE errors observed",
		},
		[]string{"operation"},
	)

	FilesystemRetryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "image_collage_filesystem_retry_duration_seconds",
			Help:    "Total time spent in retried filesystem operations",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.05, 0.1, 0.5, 1, 2},
		},
		[]string{"operation"},
	)
)
