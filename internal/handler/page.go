package handler

import (
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/dandy/internal/auth"
	"github.com/dukerupert/dandy/web"
)

var errorMessages = map[string]string{
	"Configuration":           "The server is not configured for this sign-in method. Please contact the administrator.",
	"InvalidVerificationLink": "The verification link is invalid or missing required parameters.",
	"InvalidToken":            "The verification token is invalid or has expired.",
	"TokenExpired":            "The verification link has expired. Please request a new one.",
	"UserNotFound":            "User account not found. Please sign up first.",
	"SessionCreationFailed":   "Failed to create your session. Please try again.",
	"VerificationFailed":      "Verification failed. Please try again or contact support.",
	codeAccessDenied:          "Sign-in was cancelled or denied by the provider.",
	codeOAuthCallback:         "The sign-in provider returned an error. Please try again.",
}

const defaultErrorMessage = "An authentication error occurred. Please try again."

// PageHandler renders the HTML pages. Protected pages expect Identify to
// have run and answer 401 when it found nobody.
type PageHandler struct {
	templates    *template.Template
	oauthEnabled bool
	logger       *slog.Logger
}

func NewPageHandler(oauthEnabled bool, logger *slog.Logger) *PageHandler {
	tmpl := template.Must(template.ParseFS(web.Templates, "templates/*.html"))
	return &PageHandler{templates: tmpl, oauthEnabled: oauthEnabled, logger: logger}
}

func (h *PageHandler) render(w http.ResponseWriter, status int, name string, data map[string]any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.templates.ExecuteTemplate(w, name, data); err != nil {
		h.logger.Error("render template", "template", name, "error", err)
	}
}

func pageData(r *http.Request, title string) map[string]any {
	data := map[string]any{"Title": title}
	if id, ok := auth.FromContext(r.Context()); ok {
		data["User"] = id.User
		data["Provider"] = string(id.Provider)
		if !id.Expires.IsZero() {
			data["Expires"] = id.Expires.Format(time.RFC1123)
		}
	}
	return data
}

func (h *PageHandler) Home(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	data := pageData(r, "Home")
	data["Verified"] = r.URL.Query().Get("verified") == "true"
	h.render(w, http.StatusOK, "home.html", data)
}

func (h *PageHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	data := pageData(r, "Sign in")
	data["CallbackURL"] = r.URL.Query().Get("callbackUrl")
	data["OAuthEnabled"] = h.oauthEnabled
	h.render(w, http.StatusOK, "signin.html", data)
}

func (h *PageHandler) Error(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("error")
	msg, ok := errorMessages[code]
	if !ok {
		msg = defaultErrorMessage
	}
	data := pageData(r, "Authentication error")
	data["Code"] = code
	data["Message"] = msg
	h.render(w, http.StatusOK, "error.html", data)
}

// Protected renders a page that needs a resolved identity.
func (h *PageHandler) Protected(title string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.FromContext(r.Context()); !ok {
			data := pageData(r, "Unauthorized")
			data["CallbackURL"] = r.URL.RequestURI()
			h.render(w, http.StatusUnauthorized, "unauthorized.html", data)
			return
		}
		h.render(w, http.StatusOK, "protected.html", pageData(r, title))
	}
}
