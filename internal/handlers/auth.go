package handlers

import (
	"crypto/subtle"
	"net/http"

	"media-gallery/internal/logging"
	"media-gallery/internal/metrics"

	"golang.org/x/crypto/bcrypt"
)

const authRealm = "Media Gallery Admin"

// checkCredentials compares against the bcrypt hash when one is configured,
// otherwise against the plain password in constant time.
func (h *Handlers) checkCredentials(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(h.config.AdminUsername)) == 1

	var passOK bool
	if h.config.AdminPasswordHash != "" {
		passOK = bcrypt.CompareHashAndPassword([]byte(h.config.AdminPasswordHash), []byte(password)) == nil
	} else {
		passOK = subtle.ConstantTimeCompare([]byte(password), []byte(h.config.AdminPassword)) == 1
	}
	return userOK && passOK
}

// RequireAdmin protects a handler with HTTP basic authentication against the
// single shared admin credential.
func (h *Handlers) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if !ok {
			metrics.AuthAttemptsTotal.WithLabelValues("missing").Inc()
			challenge(w)
			return
		}

		if !h.checkCredentials(username, password) {
			metrics.AuthAttemptsTotal.WithLabelValues("failure").Inc()
			logging.Warn("Failed admin login for %q from %s", username, r.RemoteAddr)
			challenge(w)
			return
		}

		metrics.AuthAttemptsTotal.WithLabelValues("success").Inc()
		next.ServeHTTP(w, r)
	})
}

func challenge(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="`+authRealm+`", charset="UTF-8"`)
	writeJSONError(w, "Authentication required", http.StatusUnauthorized)
}
