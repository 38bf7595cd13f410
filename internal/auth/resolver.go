package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/dukerupert/dandy/internal/model"
	"github.com/dukerupert/dandy/internal/oauth"
	"github.com/dukerupert/dandy/internal/session"
)

type oauthSessions interface {
	FromRequest(r *http.Request) (*oauth.Session, error)
}

type userLookup interface {
	GetByEmail(ctx context.Context, email string) (*model.User, error)
}

type sessionLookup interface {
	Lookup(ctx context.Context, token string) (*model.SessionWithUser, error)
}

// Resolver resolves the identity of a request. The OAuth session is
// consulted first and wins when present; the custom session is the fallback.
type Resolver struct {
	oauth    oauthSessions
	users    userLookup
	sessions sessionLookup
	logger   *slog.Logger
}

func NewResolver(o oauthSessions, users userLookup, sessions sessionLookup, logger *slog.Logger) *Resolver {
	return &Resolver{oauth: o, users: users, sessions: sessions, logger: logger}
}

// Resolve returns (nil, nil) for an unauthenticated request. Errors are
// reserved for custom-session store failures.
func (res *Resolver) Resolve(r *http.Request) (*Identity, error) {
	if id := res.fromOAuth(r); id != nil {
		return id, nil
	}
	return res.fromCustom(r)
}

func (res *Resolver) fromOAuth(r *http.Request) *Identity {
	if res.oauth == nil {
		return nil
	}
	sess, err := res.oauth.FromRequest(r)
	if err != nil {
		res.logger.Warn("read oauth session", "error", err)
		return nil
	}
	if sess == nil || sess.Email == "" {
		return nil
	}

	u, err := res.users.GetByEmail(r.Context(), sess.Email)
	if err != nil {
		res.logger.Warn("lookup oauth user", "email", sess.Email, "error", err)
		return nil
	}
	if u == nil {
		return nil
	}
	return &Identity{User: *u, Provider: ProviderOAuth, Expires: sess.Expires}
}

func (res *Resolver) fromCustom(r *http.Request) (*Identity, error) {
	c, err := r.Cookie(session.CookieName)
	if err != nil || c.Value == "" {
		return nil, nil
	}

	sw, err := res.sessions.Lookup(r.Context(), c.Value)
	if err != nil {
		return nil, fmt.Errorf("resolve custom session: %w", err)
	}
	if sw == nil {
		return nil, nil
	}
	return &Identity{
		User:         sw.User,
		Provider:     ProviderCustom,
		SessionToken: sw.SessionToken,
		Expires:      sw.Expires,
	}, nil
}
