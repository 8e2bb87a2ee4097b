package main

import (
	"errors"
	"io/fs"

	"media-gallery/internal/catalog"
	"media-gallery/internal/filesystem"
	"media-gallery/internal/ingest"
	"media-gallery/internal/lifecycle"
	"media-gallery/internal/logging"
	"media-gallery/internal/media"
	"media-gallery/internal/metrics"
	"media-gallery/internal/sanitize"
	"media-gallery/internal/startup"
	"media-gallery/internal/storage"
	"media-gallery/internal/vipsthumb"
	"media-gallery/internal/workers"

	"github.com/joho/godotenv"
)

// components are the long-lived pieces shared by serve and the maintenance
// commands.
type components struct {
	layout    *storage.Layout
	deriver   *media.Deriver
	catalog   *catalog.Catalog
	pipeline  *ingest.Pipeline
	lifecycle *lifecycle.Manager
	vips      bool
}

// loadDotEnv loads an optional .env file into the process environment.
func loadDotEnv() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logging.Warn("Failed to load .env: %v", err)
	}
}

// newComponents builds the shared components. gate may be nil.
func newComponents(cfg *startup.Config, gate media.Gate) *components {
	filesystem.SetObserver(metrics.NewFilesystemObserver())

	c := &components{layout: storage.New(cfg.UploadDir, cfg.ThumbnailDir)}

	opts := media.Options{
		MaxDimension: cfg.ThumbnailMaxDimension,
		Quality:      cfg.ThumbnailQuality,
		Workers:      workers.ForCPU(0, 0),
		FFmpegPath:   cfg.FFmpegPath,
		FrameOffset:  cfg.VideoFrameOffset,
		FrameTimeout: cfg.VideoFrameTimeout,
		Gate:         gate,
	}
	if cfg.UseVips {
		resizer, err := vipsthumb.New()
		if err != nil {
			logging.Warn("libvips unavailable, using pure Go decoding: %v", err)
		} else {
			opts.Resizer = resizer
			c.vips = true
		}
	}

	names := sanitize.NewNameGenerator()
	c.deriver = media.NewDeriver(c.layout, opts)
	c.catalog = catalog.New(c.layout, cfg.CatalogCacheTTL)
	c.pipeline = ingest.New(c.layout, c.deriver, names, c.catalog, workers.ForIO(cfg.IngestWorkers, 0))
	c.lifecycle = lifecycle.New(c.layout, c.deriver, names, c.catalog)
	return c
}

func (c *components) close() {
	if c.vips {
		vipsthumb.Shutdown()
	}
}
