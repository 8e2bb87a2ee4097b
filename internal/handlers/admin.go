package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"media-gallery/internal/catalog"
	"media-gallery/internal/lifecycle"
	"media-gallery/internal/logging"
	"media-gallery/internal/sanitize"
	"media-gallery/internal/storage"

	"github.com/gorilla/mux"
)

const flashCookieName = "media_gallery_flash"

// Flash categories
const (
	flashSuccess = "success"
	flashError   = "error"
)

// flash is a one-shot message shown on the next admin page render.
type flash struct {
	Category string
	Message  string
}

func setFlash(w http.ResponseWriter, category, message string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    url.QueryEscape(category + ":" + message),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlash reads and clears the pending flash message, if any.
func popFlash(w http.ResponseWriter, r *http.Request) *flash {
	cookie, err := r.Cookie(flashCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	raw, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		return nil
	}
	category, message, ok := strings.Cut(raw, ":")
	if !ok || (category != flashSuccess && category != flashError) {
		return nil
	}
	return &flash{Category: category, Message: message}
}

// adminView is the data rendered by the admin template.
type adminView struct {
	catalog.Page
	Flash    *flash
	PrevPage int
	NextPage int
}

// Admin renders one page of the catalog for management. Clients asking for
// JSON get the page itself.
func (h *Handlers) Admin(w http.ResponseWriter, r *http.Request) {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil {
		page = 1
	}
	p := h.catalog.Page(page, h.config.AdminPageSize)

	if wantsJSON(r) {
		w.Header().Set("Cache-Control", "no-store")
		writeJSONStatus(w, http.StatusOK, p)
		return
	}

	view := adminView{Page: p, Flash: popFlash(w, r)}
	if page > 1 {
		view.PrevPage = min(page-1, max(p.LastPage, 1))
	}
	if page >= 1 && page < p.LastPage {
		view.NextPage = page + 1
	}

	w.Header().Set("Cache-Control", "no-store")
	h.render(w, "admin.html", view)
}

// Delete removes an asset and its thumbnail. Deleting an absent asset
// succeeds.
func (h *Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if _, err := h.lifecycle.Delete(name); err != nil {
		logging.Error("Error deleting file %s: %v", name, err)
		writeJSONError(w, "Failed to delete file", http.StatusInternalServerError)
		return
	}
	writeJSONStatus(w, http.StatusOK, map[string]string{"status": "success"})
}

// Rename gives an asset a new name from the form field new_name and
// redirects back to the admin page with a flash message.
func (h *Handlers) Rename(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	newName := strings.TrimSpace(r.PostFormValue("new_name"))
	if newName == "" {
		setFlash(w, flashError, "New name is required")
		http.Redirect(w, r, "/admin", http.StatusFound)
		return
	}

	stored, err := h.lifecycle.Rename(r.Context(), name, newName)
	switch {
	case err == nil:
		setFlash(w, flashSuccess, "File renamed successfully to "+stored)
	case errors.Is(err, lifecycle.ErrNotFound):
		setFlash(w, flashError, "File not found")
	case errors.Is(err, lifecycle.ErrKindChange):
		setFlash(w, flashError, "New name must keep the media type")
	case errors.Is(err, sanitize.ErrInvalidName), errors.Is(err, sanitize.ErrInvalidType):
		setFlash(w, flashError, "Invalid new name")
	case errors.Is(err, storage.ErrExists):
		setFlash(w, flashError, "Could not find a free name, try again")
	default:
		logging.Error("Error renaming file %s: %v", name, err)
		setFlash(w, flashError, "Error renaming file")
	}
	http.Redirect(w, r, "/admin", http.StatusFound)
}
