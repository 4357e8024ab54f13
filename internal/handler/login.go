package handler

import (
	"net/http"
	"strings"

	"detectlab/internal/config"
	"detectlab/internal/logger"
	"detectlab/internal/middleware"
)

// LoginHandler checks the dashboard password and issues the auth cookie.
// Browsers are redirected to "next" (a local path) or "/"; clients asking
// for JSON get a JSON answer instead.
func LoginHandler(config *config.Config, sessions *middleware.Sessions, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wantsJSON := strings.Contains(r.Header.Get("Accept"), "application/json")

		if r.FormValue("password") != config.Password {
			logger.Warning("Failed login attempt from %s", r.RemoteAddr)
			if wantsJSON {
				sendErrorResponse(w, "INVALID_PASSWORD", "Invalid password", http.StatusUnauthorized)
				return
			}
			http.Error(w, "Invalid password", http.StatusUnauthorized)
			return
		}

		value, err := sessions.Issue()
		if err != nil {
			logger.Error("Failed to sign session cookie: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     middleware.CookieName,
			Value:    value,
			Path:     "/",
			MaxAge:   int(middleware.SessionCookieAge.Seconds()),
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
		logger.Info("🔓 Login from %s", r.RemoteAddr)

		if wantsJSON {
			writeJSON(w, http.StatusOK, map[string]bool{"authenticated": true}, logger)
			return
		}
		http.Redirect(w, r, nextPath(r.FormValue("next")), http.StatusSeeOther)
	}
}

// nextPath only allows redirects inside the dashboard.
func nextPath(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}

// LogoutHandler expires the auth cookie.
func LogoutHandler(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:   middleware.CookieName,
		Path:   "/",
		MaxAge: -1,
	})
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
