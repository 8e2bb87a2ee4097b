package handlers

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"time"

	"media-gallery/internal/logging"
	"media-gallery/internal/mediatypes"
)

//go:embed templates/*.html
var templateFS embed.FS

var templateFuncs = template.FuncMap{
	"isVideo": func(k mediatypes.Kind) bool { return k == mediatypes.KindVideo },
	"when":    func(t time.Time) string { return t.Local().Format("2006-01-02 15:04:05") },
	"kib":     func(n int64) int64 { return (n + 1023) / 1024 },
}

func parseTemplates() *template.Template {
	return template.Must(template.New("").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html"))
}

// render executes a template into a buffer first so a template error can
// still produce a clean 500.
func (h *Handlers) render(w http.ResponseWriter, name string, data any) {
	var buf bytes.Buffer
	if err := h.templates.ExecuteTemplate(&buf, name, data); err != nil {
		logging.Error("Failed to render %s: %v", name, err)
		writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := buf.WriteTo(w); err != nil {
		logging.Debug("Failed to write %s: %v", name, err)
	}
}
