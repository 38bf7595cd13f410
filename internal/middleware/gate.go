package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/dukerupert/dandy/internal/oauth"
	"github.com/dukerupert/dandy/internal/session"
)

// SignInPath is where the gate sends unauthenticated traffic.
const SignInPath = "/auth/signin"

// Gate lets a request under one of prefixes through when it carries either
// session cookie. Cookie validity is not checked here. Requests without a
// cookie are redirected to the sign-in page with the original absolute URL
// as callbackUrl.
func Gate(prefixes []string, baseURL string) func(http.Handler) http.Handler {
	baseURL = strings.TrimRight(baseURL, "/")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !matchesPrefix(r.URL.Path, prefixes) || hasSessionCookie(r) {
				next.ServeHTTP(w, r)
				return
			}
			target := SignInPath + "?callbackUrl=" + url.QueryEscape(baseURL+r.URL.RequestURI())
			http.Redirect(w, r, target, http.StatusTemporaryRedirect)
		})
	}
}

func matchesPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		p = strings.TrimRight(p, "/")
		if p == "" {
			continue
		}
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

func hasSessionCookie(r *http.Request) bool {
	if oauth.HasSessionCookie(r) {
		return true
	}
	c, err := r.Cookie(session.CookieName)
	return err == nil && c.Value != ""
}
