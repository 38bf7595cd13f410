package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/dukerupert/dandy/internal/oauth"
	"github.com/dukerupert/dandy/internal/signin"
	ws "github.com/dukerupert/dandy/internal/websocket"
)

// OAuth error codes shown on the auth error page.
const (
	codeAccessDenied  = "AccessDenied"
	codeOAuthCallback = "OAuthCallback"
)

// OAuthHandler runs the provider redirect and callback.
type OAuthHandler struct {
	authn    *oauth.Authenticator
	sessions *oauth.Sessions
	signin   *signin.Service
	hub      *ws.Hub
	baseURL  string
	secure   bool
	logger   *slog.Logger
}

func NewOAuthHandler(authn *oauth.Authenticator, sessions *oauth.Sessions, svc *signin.Service, hub *ws.Hub, baseURL string, secure bool, logger *slog.Logger) *OAuthHandler {
	return &OAuthHandler{
		authn:    authn,
		sessions: sessions,
		signin:   svc,
		hub:      hub,
		baseURL:  baseURL,
		secure:   secure,
		logger:   logger,
	}
}

func (h *OAuthHandler) enabled() bool {
	return h.authn != nil && h.authn.Enabled() && h.sessions != nil
}

func (h *OAuthHandler) fail(w http.ResponseWriter, r *http.Request, code string) {
	http.Redirect(w, r, ErrorPath+"?error="+url.QueryEscape(code), http.StatusTemporaryRedirect)
}

// SignIn redirects to the provider's consent screen.
func (h *OAuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	if !h.enabled() {
		h.fail(w, r, signin.CodeConfiguration)
		return
	}
	provider := r.PathValue("provider")

	loginURL, err := h.authn.LoginURL(oauth.NewHTTPState(w, r, h.secure), provider)
	if err != nil {
		if errors.Is(err, oauth.ErrProviderNotFound) {
			http.NotFound(w, r)
			return
		}
		h.logger.Error("oauth login url", "provider", provider, "error", err)
		h.fail(w, r, codeOAuthCallback)
		return
	}

	if cb := r.URL.Query().Get("callbackUrl"); cb != "" {
		http.SetCookie(w, &http.Cookie{
			Name:     callbackCookieName,
			Value:    safeRedirect(cb, h.baseURL),
			Path:     "/",
			MaxAge:   600,
			HttpOnly: true,
			Secure:   h.secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
	http.Redirect(w, r, loginURL, http.StatusTemporaryRedirect)
}

// Callback completes the provider flow and sets the OAuth session cookie.
// Failing to mirror the user locally does not stop the sign-in.
func (h *OAuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	if !h.enabled() {
		h.fail(w, r, signin.CodeConfiguration)
		return
	}
	provider := r.PathValue("provider")
	q := r.URL.Query()
	if q.Get("error") != "" {
		h.logger.Warn("oauth provider error", "provider", provider, "error", q.Get("error"))
		h.fail(w, r, codeAccessDenied)
		return
	}

	usr, err := h.authn.Exchange(r.Context(), oauth.NewHTTPState(w, r, h.secure), provider, q.Get("code"), q.Get("state"))
	if err != nil {
		h.logger.Warn("oauth exchange", "provider", provider, "error", err)
		switch {
		case errors.Is(err, oauth.ErrProviderNotFound):
			http.NotFound(w, r)
		case errors.Is(err, oauth.ErrAuthFailed):
			h.fail(w, r, codeAccessDenied)
		default:
			h.fail(w, r, codeOAuthCallback)
		}
		return
	}

	recorded, err := h.signin.RecordOAuthUser(r.Context(), usr)
	if err != nil {
		h.logger.Warn("persist oauth user", "email", usr.Email, "error", err)
	}

	tok, expires, err := h.sessions.Issue(provider, usr)
	if err != nil {
		h.logger.Error("issue oauth session", "error", err)
		h.fail(w, r, codeOAuthCallback)
		return
	}
	h.sessions.SetCookie(w, tok, expires)
	clearCookie(w, oauth.CSRFCookieName, h.secure)

	target := "/"
	if c, err := r.Cookie(callbackCookieName); err == nil {
		target = safeRedirect(c.Value, h.baseURL)
		clearCookie(w, callbackCookieName, h.secure)
	}

	if recorded != nil {
		h.hub.Notify(recorded.ID, ws.Message{Type: ws.EventOAuthSignedIn, Provider: provider})
	}
	h.logger.Info("oauth sign in", "provider", provider, "email", usr.Email)
	http.Redirect(w, r, target, http.StatusTemporaryRedirect)
}
