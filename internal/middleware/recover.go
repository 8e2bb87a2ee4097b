package middleware

import (
	"net/http"
	"runtime/debug"

	"media-gallery/internal/logging"
)

// Recover turns a panicking handler into a 500 JSON error envelope.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			logging.Error("Panic serving %s %s: %v\n%s", r.Method, sanitizeLogField(r.URL.Path), rec, debug.Stack())
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"status":"error","message":"Internal server error"}` + "\n"))
		}()
		next.ServeHTTP(w, r)
	})
}
