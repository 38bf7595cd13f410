package oauth

import (
	"net/http"
	"time"
)

const (
	// SessionCookieName carries the signed OAuth session outside production.
	SessionCookieName = "oauth.session-token"
	// SecureSessionCookieName is used in production; the prefix requires Secure.
	SecureSessionCookieName = "__Secure-oauth.session-token"
	// CSRFCookieName holds the authorization state during the redirect round-trip.
	CSRFCookieName = "oauth.csrf-token"

	stateTTL = 10 * time.Minute
)

// SessionCookieNames lists every cookie name an OAuth session may arrive under.
var SessionCookieNames = []string{SessionCookieName, SecureSessionCookieName}

// HTTPState implements StateStore with the CSRF cookie.
type HTTPState struct {
	secure bool
	w      http.ResponseWriter
	r      *http.Request
}

func NewHTTPState(w http.ResponseWriter, r *http.Request, secure bool) *HTTPState {
	return &HTTPState{secure: secure, w: w, r: r}
}

func (s *HTTPState) Save(state string) error {
	http.SetCookie(s.w, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   int(stateTTL.Seconds()),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (s *HTTPState) Load() (string, error) {
	c, err := s.r.Cookie(CSRFCookieName)
	if err != nil {
		return "", err
	}
	return c.Value, nil
}

// HasSessionCookie reports whether r carries a non-empty OAuth session cookie,
// without validating it.
func HasSessionCookie(r *http.Request) bool {
	for _, name := range SessionCookieNames {
		if c, err := r.Cookie(name); err == nil && c.Value != "" {
			return true
		}
	}
	return false
}

// ClearCookies expires every OAuth session cookie and the CSRF cookie.
func ClearCookies(w http.ResponseWriter, secure bool) {
	for _, name := range append(SessionCookieNames, CSRFCookieName) {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   secure || name == SecureSessionCookieName,
			SameSite: http.SameSiteLaxMode,
		})
	}
}
