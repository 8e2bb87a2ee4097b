package handlers

import (
	"html/template"
	"time"

	"media-gallery/internal/catalog"
	"media-gallery/internal/ingest"
	"media-gallery/internal/lifecycle"
	"media-gallery/internal/startup"
	"media-gallery/internal/storage"
)

// Handlers serves the gallery's HTTP surface.
type Handlers struct {
	config    *startup.Config
	layout    *storage.Layout
	pipeline  *ingest.Pipeline
	catalog   *catalog.Catalog
	lifecycle *lifecycle.Manager
	templates *template.Template
	spill     spillConfig
	startTime time.Time
}

// New wires the handlers to the already constructed components.
func New(config *startup.Config, layout *storage.Layout, pipeline *ingest.Pipeline, cat *catalog.Catalog, mgr *lifecycle.Manager) *Handlers {
	return &Handlers{
		config:    config,
		layout:    layout,
		pipeline:  pipeline,
		catalog:   cat,
		lifecycle: mgr,
		templates: parseTemplates(),
		spill:     defaultSpillConfig(),
		startTime: time.Now(),
	}
}
