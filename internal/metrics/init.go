package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, status := range []string{"success", "failed", "stopped"} {
		RunsTotal.WithLabelValues(status)
		HistoryRuns.WithLabelValues(status)
	}

	for _, kind := range []string{"all_images_failed", "no_survivors", "invalid_dimensions",
		"dimension_limit", "directory_create", "write", "internal"} {
		RunFailures.WithLabelValues(kind)
	}

	for _, stage := range []string{"load", "filter", "layout", "compose", "save"} {
		StageDuration.WithLabelValues(stage)
	}

	for _, status := range []string{"success", "metadata_unavailable", "decode_failed"} {
		ImagesLoadedTotal.WithLabelValues(status)
	}

	for _, format := range []string{"jpeg", "png", "gif", "webp", "bmp", "tiff", "vips"} {
		ImageDecodeByFormat.WithLabelValues(format)
	}

	for _, phase := range []string{"decode", "hash", "resize"} {
		ImageLoadDuration.WithLabelValues(phase)
	}

	for _, status := range []string{"success", "error"} {
		VipsFallbackTotal.WithLabelValues(status)
	}

	for _, format := range []string{"jpeg", "png"} {
		PartialDecodesTotal.WithLabelValues(format)
	}

	for _, op := range []string{"insert_run", "recent_runs", "get_run", "count_by_status", "count_before", "prune"} {
		HistoryQueryTotal.WithLabelValues(op, "success")
		HistoryQueryTotal.WithLabelValues(op, "error")
		HistoryQueryDuration.WithLabelValues(op)
	}

	for _, op := range []string{"stat", "open", "mkdir"} {
		FilesystemRetryAttempts.WithLabelValues(op)
		FilesystemRetrySuccess.WithLabelValues(op)
		FilesystemRetryFailures.WithLabelValues(op)
		FilesystemStaleErrors.WithLabelValues(op)
		FilesystemRetryDuration.WithLabelValues(op)
	}
}
