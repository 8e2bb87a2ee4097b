package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup.
func InitializeMetrics() {
	volumes := []string{"uploads", "thumbnails", "unknown"}
	fsOps := []string{"stat", "open", "readdir"}

	for _, vol := range volumes {
		for _, op := range fsOps {
			FilesystemOperationDuration.WithLabelValues(vol, op)
			FilesystemOperationErrors.WithLabelValues(vol, op)
			FilesystemRetryAttempts.WithLabelValues(op, vol)
			FilesystemRetrySuccess.WithLabelValues(op, vol)
			FilesystemRetryFailures.WithLabelValues(op, vol)
			FilesystemStaleErrors.WithLabelValues(op, vol)
		}
	}

	for _, t := range []string{"image", "video"} {
		for _, s := range []string{"success", "error"} {
			UploadItemsTotal.WithLabelValues(t, s)
			ThumbnailGenerationsTotal.WithLabelValues(t, s)
		}
		ThumbnailGenerationDuration.WithLabelValues(t)
		MediaAssetsTotal.WithLabelValues(t)
	}
	UploadItemsTotal.WithLabelValues("unknown", "error")

	for _, s := range []string{"rotated", "unchanged", "error"} {
		OrientationNormalizationsTotal.WithLabelValues(s)
	}
	for _, s := range []string{"success", "error"} {
		CatalogScansTotal.WithLabelValues(s)
		ArchiveDownloadsTotal.WithLabelValues(s)
	}
	for _, src := range []string{"upload", "delete", "rename", "watcher"} {
		CatalogInvalidationsTotal.WithLabelValues(src)
	}
	for _, s := range []string{"removed", "absent", "error"} {
		DeletesTotal.WithLabelValues(s)
	}
	for _, s := range []string{"success", "not_found", "invalid", "conflict", "error"} {
		RenamesTotal.WithLabelValues(s)
	}
	for _, s := range []string{"success", "failure", "missing"} {
		AuthAttemptsTotal.WithLabelValues(s)
	}
}
