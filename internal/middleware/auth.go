package middleware

import (
	"crypto/sha256"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/securecookie"
)

// CookieName is the cookie set by /auth/login.
const CookieName = "authenticated"

// SessionCookieAge is how long a login stays valid.
const SessionCookieAge = 30 * 24 * time.Hour

// Sessions signs and verifies the auth cookie. The signing key is derived
// from the dashboard password, so changing the password logs everyone out.
type Sessions struct {
	codec *securecookie.SecureCookie
}

func NewSessions(password string) *Sessions {
	key := sha256.Sum256([]byte("detectlab session:" + password))
	codec := securecookie.New(key[:], nil)
	codec.MaxAge(int(SessionCookieAge.Seconds()))
	return &Sessions{codec: codec}
}

// Issue returns a signed cookie value.
func (s *Sessions) Issue() (string, error) {
	return s.codec.Encode(CookieName, "true")
}

// Valid reports whether value was issued by these Sessions and has not expired.
func (s *Sessions) Valid(value string) bool {
	var decoded string
	if err := s.codec.Decode(CookieName, value, &decoded); err != nil {
		return false
	}
	return decoded == "true"
}

// AuthMiddleware sprawdza, czy użytkownik ma ważne, podpisane cookie
func AuthMiddleware(sessions *Sessions, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		// Strona logowania i zasoby statyczne bez uwierzytelnienia
		if r.URL.Path == "/login" ||
			r.URL.Path == "/auth/login" ||
			strings.HasPrefix(r.URL.Path, "/static/") {
			next.ServeHTTP(w, r)
			return
		}

		cookie, err := r.Cookie(CookieName)
		if err != nil || !sessions.Valid(cookie.Value) {
			// API i AJAX dostają 401, przeglądarka idzie na login
			if strings.HasPrefix(r.URL.Path, "/api/") ||
				r.Header.Get("X-Requested-With") == "XMLHttpRequest" ||
				r.Header.Get("Content-Type") == "application/json" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}
