// Package metrics provides Prometheus instrumentation for the media gallery.
//
// All metrics are registered with the default registry through promauto and
// are prefixed with "media_gallery_". The categories are:
//
//   - HTTP: request counts, durations and in-flight requests
//   - Upload: per-item outcomes, persisted bytes, batch size and duration
//   - Thumbnail: derivations by media type, ffmpeg time, fallbacks served
//     and orientation normalization outcomes
//   - Catalog: directory scans, cache hits and misses, invalidations, and
//     asset gauges refreshed by a Collector
//   - Lifecycle: deletes, renames and bulk archive downloads
//   - Authentication: basic auth attempts
//   - Memory: heap usage against the budget and derivation pauses
//   - Filesystem: operation latency and stale handle retries, recorded
//     through the filesystem.Observer returned by NewFilesystemObserver
//
// Expose them by mounting promhttp.Handler() on the metrics listener:
//
//	mux.Handle("/metrics", promhttp.Handler())
package metrics
