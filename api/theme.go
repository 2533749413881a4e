package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/amirhf/imageSearch/services/gallery-go/models"
)

const (
	themeCookie = "theme"
	themeLight  = "light"
	themeDark   = "dark"

	// prefersColorScheme is the user-agent client hint carrying the OS setting.
	prefersColorScheme = "Sec-CH-Prefers-Color-Scheme"
)

// GetTheme reports the stored preference, falling back to the OS preference
// and then to light.
func (h *Handler) GetTheme(w http.ResponseWriter, r *http.Request) {
	// Ask the browser to send the hint on later requests.
	w.Header().Set("Accept-CH", prefersColorScheme)
	w.Header().Add("Vary", prefersColorScheme)

	if c, err := r.Cookie(themeCookie); err == nil && validTheme(c.Value) {
		writeJSON(w, http.StatusOK, models.ThemeResponse{Theme: c.Value, Source: "stored"})
		return
	}
	if hint := r.Header.Get(prefersColorScheme); validTheme(hint) {
		writeJSON(w, http.StatusOK, models.ThemeResponse{Theme: hint, Source: "system"})
		return
	}
	writeJSON(w, http.StatusOK, models.ThemeResponse{Theme: themeLight, Source: "default"})
}

// PutTheme stores the preference. The browser calls it on every toggle.
func (h *Handler) PutTheme(w http.ResponseWriter, r *http.Request) {
	var req models.ThemeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !validTheme(req.Theme) {
		writeError(w, http.StatusBadRequest, `theme must be "light" or "dark"`)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     themeCookie,
		Value:    req.Theme,
		Path:     "/",
		Expires:  time.Now().AddDate(1, 0, 0),
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, models.ThemeResponse{Theme: req.Theme, Source: "stored"})
}

func validTheme(t string) bool {
	return t == themeLight || t == themeDark
}
