package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"media-gallery/internal/catalog"
	"media-gallery/internal/ingest"
	"media-gallery/internal/logging"
)

// UploadResponse is the body of a successful /upload.
type UploadResponse struct {
	Results []ingest.Result `json:"results"`
}

// UpdatesResponse lists stored names that arrived since the caller's last poll.
type UpdatesResponse struct {
	NewImages []string `json:"newImages"`
	// Cursor is the newest modification time seen, for the next ?after= poll.
	Cursor string `json:"cursor,omitempty"`
}

// Upload ingests the multipart field "files" and reports one result per
// part, in the order the parts were sent.
func (h *Handlers) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.config.MaxUploadBytes)

	parts, err := readUploadParts(r, h.spill)
	defer parts.Close()
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			logging.Warn("Upload from %s rejected: body exceeds %d bytes", r.RemoteAddr, tooLarge.Limit)
			writeJSONError(w, "File too large", http.StatusRequestEntityTooLarge)
		case errors.Is(err, errSpill):
			logging.Error("Upload from %s failed: %v", r.RemoteAddr, err)
			writeJSONError(w, "Failed to read upload", http.StatusInternalServerError)
		case errors.Is(err, http.ErrNotMultipart), errors.Is(err, http.ErrMissingBoundary):
			writeJSONError(w, "No files selected", http.StatusBadRequest)
		default:
			logging.Warn("Malformed upload from %s: %v", r.RemoteAddr, err)
			writeJSONError(w, "Malformed upload", http.StatusBadRequest)
		}
		return
	}
	if len(parts.items) == 0 {
		writeJSONError(w, "No files selected", http.StatusBadRequest)
		return
	}

	results := h.pipeline.Ingest(r.Context(), parts.items)
	writeJSONStatus(w, http.StatusOK, UploadResponse{Results: results})
}

// Updates answers polls for new assets. With ?count=N it returns the newest
// L-N names of an L-long catalog; with ?after=<RFC3339Nano> it returns names
// modified after the cursor.
func (h *Handlers) Updates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var assets []catalog.Asset
	cursor := ""
	if after := q.Get("after"); after != "" {
		t, err := time.Parse(time.RFC3339Nano, after)
		if err != nil {
			writeJSONError(w, "Invalid after cursor", http.StatusBadRequest)
			return
		}
		assets = h.catalog.After(t)
		cursor = t.UTC().Format(time.RFC3339Nano)
	} else {
		count := 0
		if raw := q.Get("count"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				writeJSONError(w, "Invalid count", http.StatusBadRequest)
				return
			}
			count = max(n, 0)
		}
		assets = h.catalog.Since(count)
	}

	resp := UpdatesResponse{NewImages: make([]string, len(assets)), Cursor: cursor}
	for i, a := range assets {
		resp.NewImages[i] = a.Name
	}
	if len(assets) > 0 {
		resp.Cursor = assets[0].ModifiedAt.UTC().Format(time.RFC3339Nano)
	} else if resp.Cursor == "" {
		if newest := h.catalog.List(); len(newest) > 0 {
			resp.Cursor = newest[0].ModifiedAt.UTC().Format(time.RFC3339Nano)
		}
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSONStatus(w, http.StatusOK, resp)
}
