package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/dukerupert/dandy/internal/auth"
	"github.com/dukerupert/dandy/internal/config"
	"github.com/dukerupert/dandy/internal/handler"
	"github.com/dukerupert/dandy/internal/middleware"
	"github.com/dukerupert/dandy/internal/oauth"
	"github.com/dukerupert/dandy/internal/session"
	"github.com/dukerupert/dandy/internal/signin"
	"github.com/dukerupert/dandy/internal/store"
	ws "github.com/dukerupert/dandy/internal/websocket"
)

type Server struct {
	hub         *ws.Hub
	authH       *handler.AuthHandler
	oauthH      *handler.OAuthHandler
	keyH        *handler.KeyHandler
	pageH       *handler.PageHandler
	resolver    *auth.Resolver
	verifier    *session.Verifier
	sessions    *session.Manager
	prefixes    []string
	baseURL     string
	originHosts []string
	logger      *slog.Logger
}

// New wires the application. db may be nil, in which case every datastore
// operation fails with store.ErrNotConfigured. authn and oauthSessions may be
// nil when OAuth is not configured.
func New(cfg config.Config, db *sql.DB, mailer signin.Mailer, authn *oauth.Authenticator, oauthSessions *oauth.Sessions, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	userStore := store.NewUserStore(db)
	tokenStore := store.NewVerificationTokenStore(db)
	sessionStore := store.NewSessionStore(db)
	keyStore := store.NewAPIKeyStore(db)

	verifier := session.NewVerifier(tokenStore)
	sessions := session.NewManager(sessionStore)
	secure := cfg.Production()

	svc := signin.NewService(userStore, verifier, sessions, mailer, cfg.BaseURL, cfg.Production(), logger.With("component", "signin"))

	var origins []string
	if u, err := url.Parse(cfg.BaseURL); err == nil && u.Host != "" {
		origins = []string{u.Host}
	}

	return &Server{
		hub:         hub,
		authH:       handler.NewAuthHandler(svc, sessions, oauthSessions, hub, secure, logger.With("component", "auth")),
		oauthH:      handler.NewOAuthHandler(authn, oauthSessions, svc, hub, cfg.BaseURL, secure, logger.With("component", "oauth")),
		keyH:        handler.NewKeyHandler(keyStore, logger.With("component", "keys")),
		pageH:       handler.NewPageHandler(authn != nil && authn.Enabled(), logger.With("component", "page")),
		resolver:    auth.NewResolver(oauthSessions, userStore, sessions, logger.With("component", "resolver")),
		verifier:    verifier,
		sessions:    sessions,
		prefixes:    cfg.ProtectedPrefixes,
		baseURL:     cfg.BaseURL,
		originHosts: origins,
		logger:      logger,
	}
}

// Hub returns the auth event hub.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

// Cleanup sweeps expired verification tokens and sessions.
func (s *Server) Cleanup(ctx context.Context) error {
	tokens, tokErr := s.verifier.Cleanup(ctx)
	sessions, sessErr := s.sessions.Cleanup(ctx)
	if err := errors.Join(tokErr, sessErr); err != nil {
		return err
	}
	if tokens > 0 || sessions > 0 {
		s.logger.Info("cleanup", "tokens", tokens, "sessions", sessions)
	}
	return nil
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)

	// Email flow and custom session
	mux.HandleFunc("POST /api/auth/email-signup", s.authH.EmailSignUp)
	mux.HandleFunc("POST /api/auth/email-signin", s.authH.EmailSignIn)
	mux.HandleFunc("GET /api/auth/callback/email", s.authH.EmailCallback)
	mux.HandleFunc("GET /api/auth/check-session", s.authH.CheckSession)
	mux.HandleFunc("POST /api/auth/validate-session", s.authH.ValidateSession)
	mux.HandleFunc("POST /api/auth/signout", s.authH.SignOut)

	// OAuth
	mux.HandleFunc("GET /api/auth/session", s.authH.OAuthSession)
	mux.HandleFunc("GET /api/auth/signin/{provider}", s.oauthH.SignIn)
	mux.HandleFunc("GET /api/auth/callback/{provider}", s.oauthH.Callback)

	requireIdentity := middleware.RequireIdentity(s.resolver, s.logger.With("component", "auth"))
	mux.Handle("GET /api/auth/events", requireIdentity(ws.HandleEvents(s.hub, s.originHosts, s.logger.With("component", "websocket"))))

	// API keys
	mux.Handle("GET /api/keys", requireIdentity(http.HandlerFunc(s.keyH.List)))
	mux.Handle("POST /api/keys", requireIdentity(http.HandlerFunc(s.keyH.Create)))
	mux.Handle("GET /api/keys/{id}", requireIdentity(http.HandlerFunc(s.keyH.Get)))
	mux.Handle("PUT /api/keys/{id}", requireIdentity(http.HandlerFunc(s.keyH.Update)))
	mux.Handle("DELETE /api/keys/{id}", requireIdentity(http.HandlerFunc(s.keyH.Delete)))
	mux.HandleFunc("POST /api/validate-key", s.keyH.Validate)

	// Pages
	identify := middleware.Identify(s.resolver, s.logger.With("component", "auth"))
	mux.Handle("GET /{$}", identify(http.HandlerFunc(s.pageH.Home)))
	mux.HandleFunc("GET /auth/signin", s.pageH.SignIn)
	mux.HandleFunc("GET /auth/error", s.pageH.Error)
	mux.Handle("GET /dashboards", identify(s.pageH.Protected("Dashboards")))
	mux.Handle("GET /protected", identify(s.pageH.Protected("Protected")))
	mux.Handle("GET /profile", identify(s.pageH.Protected("Profile")))

	var h http.Handler = mux
	h = middleware.Gate(s.prefixes, s.baseURL)(h)
	h = middleware.RequestLogger(s.logger.With("component", "http"))(h)
	return middleware.RequestID(h)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
