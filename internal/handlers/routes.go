package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Routes registers every endpoint on r. Admin endpoints are wrapped in
// RequireAdmin.
func (h *Handlers) Routes(r *mux.Router) {
	// Health and version
	r.HandleFunc("/healthz", h.HealthCheck).Methods(http.MethodGet)
	r.HandleFunc("/livez", h.LivenessCheck).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods(http.MethodGet)
	r.HandleFunc("/version", h.GetVersion).Methods(http.MethodGet)

	// Public gallery
	r.HandleFunc("/", h.Index).Methods(http.MethodGet)
	r.HandleFunc("/upload", h.Upload).Methods(http.MethodPost)
	r.HandleFunc("/updates", h.Updates).Methods(http.MethodGet)
	r.HandleFunc("/uploads/{name}", h.ServeUpload).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/thumbnails/{name}", h.ServeThumbnail).Methods(http.MethodGet, http.MethodHead)

	// Admin
	admin := func(f http.HandlerFunc) http.Handler { return h.RequireAdmin(f) }
	r.Handle("/admin", admin(h.Admin)).Methods(http.MethodGet)
	r.Handle("/delete/{name}", admin(h.Delete)).Methods(http.MethodDelete)
	r.Handle("/rename/{name}", admin(h.Rename)).Methods(http.MethodPost)
	r.Handle("/download_all", admin(h.DownloadAll)).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONError(w, "Not found", http.StatusNotFound)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
	})
}
