package handlers

import (
	"net/http"
	"runtime"
	"time"

	"media-gallery/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusDegraded = "degraded"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Ready   bool   `json:"ready"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`

	UploadsWritable    bool `json:"uploadsWritable"`
	ThumbnailsWritable bool `json:"thumbnailsWritable"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`

	// Catalog summary
	Images     int   `json:"images"`
	Videos     int   `json:"videos"`
	TotalBytes int64 `json:"totalBytes"`
}

func (h *Handlers) storageWritable() (uploads, thumbnails bool) {
	return startup.WriteAccessOK(h.layout.AssetDir()), startup.WriteAccessOK(h.layout.ThumbnailDir())
}

// HealthCheck returns the health status of the service
func (h *Handlers) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	uploads, thumbnails := h.storageWritable()
	stats := h.catalog.Stats()

	response := HealthResponse{
		Status:             statusHealthy,
		Ready:              uploads && thumbnails,
		Version:            startup.Version,
		Uptime:             time.Since(h.startTime).Round(time.Second).String(),
		UploadsWritable:    uploads,
		ThumbnailsWritable: thumbnails,
		GoVersion:          runtime.Version(),
		NumCPU:             runtime.NumCPU(),
		NumGoroutine:       runtime.NumGoroutine(),
		Images:             stats.Images,
		Videos:             stats.Videos,
		TotalBytes:         stats.TotalBytes,
	}

	code := http.StatusOK
	if !response.Ready {
		response.Status = statusDegraded
		code = http.StatusServiceUnavailable
	}
	writeJSONStatus(w, code, response)
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// HEAD gets headers only
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{"status": "alive"})
	}
}

// ReadinessCheck returns 200 only while both storage directories accept writes
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, _ *http.Request) {
	if uploads, thumbnails := h.storageWritable(); uploads && thumbnails {
		writeJSONStatus(w, http.StatusOK, map[string]string{"status": "ready"})
		return
	}
	writeJSONStatus(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
}
