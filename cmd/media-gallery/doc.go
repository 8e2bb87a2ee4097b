// Package main provides the media-gallery binary.
//
// Media Gallery is a self-hosted gallery for images and videos. Uploads are
// sanitized, stored under unique timestamped names, orientation corrected and
// thumbnailed synchronously. The asset directory itself is the catalog.
//
// # Commands
//
//   - serve: runs the web server and, when METRICS_ENABLED, the Prometheus
//     metrics server on METRICS_PORT
//   - hash-password: prints a bcrypt hash for ADMIN_PASSWORD_HASH
//   - rebuild-thumbnails: derives missing thumbnails and removes orphaned
//     ones, for example after restoring the upload directory from a backup
//
// # Application Lifecycle
//
// serve follows this sequence:
//
//  1. Load an optional .env file, then read configuration from the environment
//  2. Set GOMEMLIMIT from MEMORY_LIMIT and start the memory pressure monitor
//  3. Create and check the upload and thumbnail directories
//  4. Check the ffmpeg binary (video thumbnails fall back to the original when missing)
//  5. Start libvips when USE_VIPS is set
//  6. Build the catalog, the upload directory watcher and the metrics collector
//  7. Serve HTTP until SIGINT or SIGTERM, then shut down each component in turn
//
// # Environment Variables
//
//   - UPLOAD_DIR, THUMBNAIL_DIR: storage directories (created if missing)
//   - PORT, METRICS_PORT, METRICS_ENABLED: listeners
//   - ADMIN_USERNAME, ADMIN_PASSWORD or ADMIN_PASSWORD_HASH: admin credential
//   - MAX_UPLOAD_BYTES: upper bound on one upload request
//   - THUMBNAIL_MAX_DIMENSION, THUMBNAIL_QUALITY, USE_VIPS: image thumbnails
//   - FFMPEG_PATH, VIDEO_FRAME_OFFSET, VIDEO_FRAME_TIMEOUT: video thumbnails
//   - CATALOG_CACHE_TTL, WATCH_UPLOADS, ADMIN_PAGE_SIZE: catalog
//   - ARCHIVE_WRITE_TIMEOUT: how long a download-all client may stop reading
//   - INGEST_WORKERS: concurrent items per upload (0 picks from GOMAXPROCS)
//   - MEMORY_LIMIT, MEMORY_RATIO: container memory budget and the heap share of it
//   - LOG_LEVEL, LOG_STATIC_FILES, LOG_HEALTH_CHECKS: logging
package main
