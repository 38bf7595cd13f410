package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/dukerupert/dandy/internal/model"
	"github.com/dukerupert/dandy/internal/oauth"
	"github.com/dukerupert/dandy/internal/session"
	"github.com/dukerupert/dandy/internal/signin"
	"github.com/dukerupert/dandy/internal/store"
	ws "github.com/dukerupert/dandy/internal/websocket"
)

// ErrorPath renders callback failures.
const ErrorPath = "/auth/error"

type sessionManager interface {
	Lookup(ctx context.Context, token string) (*model.SessionWithUser, error)
	Delete(ctx context.Context, token string) error
}

// AuthHandler serves the email flow, custom session probes and sign-out.
type AuthHandler struct {
	signin   *signin.Service
	sessions sessionManager
	oauth    *oauth.Sessions
	hub      *ws.Hub
	secure   bool
	logger   *slog.Logger
}

func NewAuthHandler(svc *signin.Service, sessions sessionManager, oauthSessions *oauth.Sessions, hub *ws.Hub, secure bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		signin:   svc,
		sessions: sessions,
		oauth:    oauthSessions,
		hub:      hub,
		secure:   secure,
		logger:   logger,
	}
}

func (h *AuthHandler) EmailSignUp(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email     string `json:"email"`
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := h.signin.SignUp(r.Context(), req.Email, req.FirstName, req.LastName)
	if err != nil {
		h.writeFlowError(w, err, "Email, first name, and last name are required")
		return
	}

	body := map[string]any{"message": "Check your email for a sign-up link!", "userId": res.UserID}
	if res.URL != "" {
		body["message"] = "Check your email for a sign-up link! (Development: verification URL included)"
		body["verificationUrl"] = res.URL
	}
	writeJSON(w, http.StatusOK, body)
}

func (h *AuthHandler) EmailSignIn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := h.signin.SignIn(r.Context(), req.Email)
	if err != nil {
		h.writeFlowError(w, err, "Email is required")
		return
	}

	body := map[string]any{"message": "Check your email for a sign-in link!"}
	if res.URL != "" {
		body["message"] = "Check your email for a sign-in link! (Development: verification URL included)"
		body["verificationUrl"] = res.URL
	}
	writeJSON(w, http.StatusOK, body)
}

func (h *AuthHandler) writeFlowError(w http.ResponseWriter, err error, invalidMsg string) {
	switch {
	case errors.Is(err, signin.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, invalidMsg)
	case errors.Is(err, signin.ErrAlreadyExists):
		writeError(w, http.StatusBadRequest, "User already exists. Please sign in instead.")
	case errors.Is(err, signin.ErrUserNotFound):
		writeError(w, http.StatusBadRequest, "User not found. Please sign up first.")
	case errors.Is(err, store.ErrNotConfigured):
		writeError(w, http.StatusInternalServerError, msgNotConfigured)
	case errors.Is(err, signin.ErrIssueFailed):
		writeError(w, http.StatusInternalServerError, "Failed to create verification token. Please try again.")
	case errors.Is(err, signin.ErrDispatchFailed):
		writeError(w, http.StatusInternalServerError, "Failed to send email. Please try again.")
	default:
		h.logger.Error("email flow", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// EmailCallback verifies an emailed link and opens a custom session.
func (h *AuthHandler) EmailCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sess, err := h.signin.Verify(r.Context(), q.Get("token"), q.Get("email"))
	if err != nil {
		code := signin.ErrorCode(err)
		h.logger.Warn("email verification failed", "code", code, "error", err)
		http.Redirect(w, r, ErrorPath+"?error="+url.QueryEscape(code), http.StatusTemporaryRedirect)
		return
	}

	setSessionCookie(w, sess.SessionToken, sess.Expires, h.secure)
	h.hub.Notify(sess.UserID, ws.Message{Type: ws.EventSessionCreated, Provider: "custom"})
	http.Redirect(w, r, "/?verified=true", http.StatusTemporaryRedirect)
}

func (h *AuthHandler) CheckSession(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(session.CookieName)
	if err != nil || c.Value == "" {
		writeError(w, http.StatusUnauthorized, "No session found")
		return
	}
	h.writeSession(r.Context(), w, c.Value, "Failed to check session")
}

func (h *AuthHandler) ValidateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionToken string `json:"sessionToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionToken == "" {
		writeError(w, http.StatusBadRequest, "Session token is required")
		return
	}
	h.writeSession(r.Context(), w, req.SessionToken, "Failed to validate session")
}

func (h *AuthHandler) writeSession(ctx context.Context, w http.ResponseWriter, token, failMsg string) {
	sw, err := h.sessions.Lookup(ctx, token)
	if err != nil {
		h.logger.Error("lookup session", "error", err)
		writeStoreError(w, err, failMsg)
		return
	}
	if sw == nil {
		writeError(w, http.StatusUnauthorized, "Invalid or expired session")
		return
	}
	writeJSON(w, http.StatusOK, sw)
}

// SignOut deletes the custom session best-effort and clears every session cookie.
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(session.CookieName); err == nil && c.Value != "" {
		sw, err := h.sessions.Lookup(r.Context(), c.Value)
		if err != nil {
			h.logger.Warn("sign out lookup", "error", err)
		}
		if err := h.sessions.Delete(r.Context(), c.Value); err != nil {
			h.logger.Warn("sign out delete session", "error", err)
		}
		if sw != nil {
			h.hub.Notify(sw.User.ID, ws.Message{Type: ws.EventSessionDeleted, Provider: "custom"})
		}
	}

	clearCookie(w, session.CookieName, h.secure)
	clearCookie(w, callbackCookieName, h.secure)
	oauth.ClearCookies(w, h.secure)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type oauthSessionUser struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Image string `json:"image,omitempty"`
}

// OAuthSession reports the OAuth session visible to clients, or {} without one.
func (h *AuthHandler) OAuthSession(w http.ResponseWriter, r *http.Request) {
	sess, _ := h.oauth.FromRequest(r)
	if sess == nil {
		writeJSON(w, http.StatusOK, struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, struct {
		User    oauthSessionUser `json:"user"`
		Expires time.Time        `json:"expires"`
	}{
		User:    oauthSessionUser{Name: sess.Name, Email: sess.Email, Image: sess.Picture},
		Expires: sess.Expires,
	})
}
