package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_gallery_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_gallery_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_gallery_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Upload metrics
var (
	UploadItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_gallery_upload_items_total",
			Help: "Total number of uploaded items by media type and outcome",
		},
		[]string{"type", "status"}, // type: image, video, unknown; status: success, error
	)

	UploadBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_gallery_upload_bytes_total",
			Help: "Total number of bytes persisted from uploads",
		},
	)

	UploadBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_gallery_upload_batch_size",
			Help:    "Number of items per upload request",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100},
		},
	)

	UploadBatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_gallery_upload_batch_duration_seconds",
			Help:    "Time to ingest one upload request",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	UploadNameCollisions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_gallery_upload_name_collisions_total",
			Help: "Stored name collisions resolved by regenerating the name",
		},
	)
)

// Thumbnail metrics
var (
	ThumbnailGenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_gallery_thumbnail_generations_total",
			Help: "Total number of thumbnail generations",
		},
		[]string{"type", "status"},
	)

	ThumbnailGenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_gallery_thumbnail_generation_duration_seconds",
			Help:    "Thumbnail generation duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"type"},
	)

	ThumbnailFFmpegDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_gallery_thumbnail_ffmpeg_duration_seconds",
			Help:    "Time spent in ffmpeg extracting a representative frame",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	ThumbnailDerivationsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_gallery_thumbnail_derivations_in_flight",
			Help: "Number of thumbnail derivations currently holding a worker slot",
		},
	)

	ThumbnailFallbacksServed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_gallery_thumbnail_fallbacks_served_total",
			Help: "Thumbnail requests answered with the original asset",
		},
	)

	OrientationNormalizationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_gallery_orientation_normalizations_total",
			Help: "Image orientation normalization outcomes",
		},
		[]string{"status"}, // rotated, unchanged, error
	)
)

// Catalog metrics
var (
	CatalogScansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_gallery_catalog_scans_total",
			Help: "Directory scans performed to build the catalog",
		},
		[]string{"status"},
	)

	CatalogScanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_gallery_catalog_scan_duration_seconds",
			Help:    "Duration of a catalog directory scan",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	CatalogCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_gallery_catalog_cache_hits_total",
			Help: "Catalog reads served from the cached listing",
		},
	)

	CatalogCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_gallery_catalog_cache_misses_total",
			Help: "Catalog reads that required a directory scan",
		},
	)

	CatalogInvalidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_gallery_catalog_invalidations_total",
			Help: "Catalog cache invalidations by source",
		},
		[]string{"source"}, // upload, delete, rename, watcher
	)

	MediaAssetsTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_gallery_assets",
			Help: "Number of assets in the gallery by media type",
		},
		[]string{"type"},
	)

	MediaAssetsBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_gallery_assets_bytes",
			Help: "Total size of all assets in bytes",
		},
	)
)

// Lifecycle metrics
var (
	DeletesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_gallery_deletes_total",
			Help: "Delete requests by outcome",
		},
		[]string{"status"}, // removed, absent, error
	)

	RenamesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_gallery_renames_total",
			Help: "Rename requests by outcome",
		},
		[]string{"status"}, // success, not_found, invalid, error
	)

	ArchiveDownloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_gallery_archive_downloads_total",
			Help: "Bulk archive downloads by outcome",
		},
		[]string{"status"},
	)

	ArchiveBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_gallery_archive_bytes_total",
			Help: "Uncompressed asset bytes written into archives",
		},
	)
)

// Authentication metrics
var (
	AuthAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_gallery_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"status"}, // success, failure, missing
	)
)

// Filesystem metrics
var (
	FilesystemOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_gallery_filesystem_operation_duration_seconds",
			Help:    "Duration of filesystem operations by volume",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"volume", "operation"},
	)

	FilesystemOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_gallery_filesystem_operation_errors_total",
			Help: "Failed filesystem operations by volume",
		},
		[]string{"volume", "operation"},
	)

	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_gallery_filesystem_retry_attempts_total",
			Help: "Retries of filesystem operations after stale handle errors",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_gallery_filesystem_retry_success_total",
			Help: "Filesystem operations that succeeded after retrying",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_gallery_filesystem_retry_failures_total",
			Help: "Filesystem operations that failed after all retries",
		},
		[]string{"operation", "volume"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_gallery_filesystem_stale_errors_total",
			Help: "Stale file handle errors seen",
		},
		[]string{"operation", "volume"},
	)
)

// Memory pressure metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_gallery_memory_usage_ratio",
			Help: "Heap usage as a fraction of the configured memory limit",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_gallery_memory_paused",
			Help: "1 while thumbnail derivation is paused for memory pressure",
		},
	)

	MemoryGCForced = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_gallery_memory_gc_forced_total",
			Help: "Garbage collections forced at the critical watermark",
		},
	)
)

// Application info
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_gallery_app_info",
			Help: "Application build information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
