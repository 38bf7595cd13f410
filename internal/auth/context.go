// Package auth turns a request's session cookies into one identity.
package auth

import (
	"context"
	"time"

	"github.com/dukerupert/dandy/internal/model"
)

// Provider names the session scheme an identity was resolved through.
type Provider string

const (
	ProviderOAuth  Provider = "oauth"
	ProviderCustom Provider = "custom"
)

// Identity is an authenticated user.
type Identity struct {
	User     model.User
	Provider Provider
	// SessionToken is set only for custom sessions.
	SessionToken string
	Expires      time.Time
}

type contextKey struct{}

func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

func FromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(*Identity)
	return id, ok && id != nil
}

func UserID(ctx context.Context) int64 {
	id, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return id.User.ID
}
