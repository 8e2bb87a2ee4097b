package handlers

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"media-gallery/internal/archive"
	"media-gallery/internal/logging"
	"media-gallery/internal/metrics"
	"media-gallery/internal/sanitize"
	"media-gallery/internal/storage"
	"media-gallery/internal/streaming"

	"github.com/gorilla/mux"
)

const archiveName = "media_files.zip"

// Index renders the gallery.
func (h *Handlers) Index(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	h.render(w, "index.html", h.catalog.List())
}

// serveFile streams an open file and closes it. The name is re-validated by
// the caller before it reaches here.
func serveFile(w http.ResponseWriter, r *http.Request, name string, f *os.File) {
	defer f.Close()

	info, err := f.Stat()
	if err != nil || !info.Mode().IsRegular() {
		writeJSONError(w, "File not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=86400")
	http.ServeContent(w, r, name, info.ModTime(), f)
}

// ServeUpload serves the original bytes of an asset.
func (h *Handlers) ServeUpload(w http.ResponseWriter, r *http.Request) {
	name, _, err := sanitize.Validate(mux.Vars(r)["name"])
	if err != nil {
		writeJSONError(w, "File not found", http.StatusNotFound)
		return
	}

	f, err := h.layout.OpenAsset(name)
	if err != nil {
		if !os.IsNotExist(err) {
			logging.Error("Failed to open %s: %v", name, err)
		}
		writeJSONError(w, "File not found", http.StatusNotFound)
		return
	}
	serveFile(w, r, name, f)
}

// ServeThumbnail serves the thumbnail of an asset. Either the asset's stored
// name or the thumbnail's own "<base>.jpg" name is accepted. When no
// thumbnail exists the original asset is served instead.
func (h *Handlers) ServeThumbnail(w http.ResponseWriter, r *http.Request) {
	name, _, err := sanitize.Validate(mux.Vars(r)["name"])
	if err != nil {
		writeJSONError(w, "File not found", http.StatusNotFound)
		return
	}

	if f, err := h.layout.OpenThumbnail(name); err == nil {
		serveFile(w, r, storage.ThumbnailName(name), f)
		return
	} else if !os.IsNotExist(err) {
		logging.Warn("Failed to open thumbnail of %s: %v", name, err)
	}

	f, err := h.layout.OpenAsset(name)
	if err != nil {
		writeJSONError(w, "File not found", http.StatusNotFound)
		return
	}
	metrics.ThumbnailFallbacksServed.Inc()
	logging.Debug("No thumbnail for %s, serving original", name)
	serveFile(w, r, name, f)
}

// DownloadAll streams every asset as a zip archive. Once streaming has
// started a failure can only be logged; the client sees a truncated archive.
func (h *Handlers) DownloadAll(w http.ResponseWriter, r *http.Request) {
	assets := h.catalog.List()

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+archiveName+`"`)
	w.Header().Set("Cache-Control", "no-store")

	config := streaming.DefaultConfig()
	config.WriteTimeout = h.config.ArchiveWriteTimeout
	config.OnProgress = func(n int64, elapsed time.Duration) {
		logging.Debug("Archive to %s: %d bytes in %v", r.RemoteAddr, n, elapsed)
	}
	tw := streaming.NewTimeoutWriter(r.Context(), w, config)
	defer tw.Close()

	sum, err := archive.Write(r.Context(), tw, h.layout, assets)
	switch {
	case errors.Is(err, streaming.ErrClientGone), errors.Is(err, context.Canceled):
		logging.Info("Archive download to %s cancelled by client after %d entries", r.RemoteAddr, sum.Entries)
		return
	case errors.Is(err, streaming.ErrWriteTimeout):
		logging.Warn("Archive download to %s stalled after %d entries", r.RemoteAddr, sum.Entries)
		return
	case err != nil:
		logging.Error("Error creating zip file: %v", err)
		return
	}
	logging.Info("Archive sent to %s: %d entries, %d bytes, %d skipped", r.RemoteAddr, sum.Entries, sum.Bytes, sum.Skipped)
}
