// Package oauth is the boundary to third-party identity providers. It runs
// the authorization-code flow and keeps the resulting identity in a signed
// session cookie that the rest of the application treats as opaque.
package oauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/oauth2"
)

var (
	ErrProviderConflict = errors.New("provider already exists")
	ErrProviderNotFound = errors.New("provider not found")
	ErrAuthFailed       = errors.New("auth failed")
	ErrNotConfigured    = errors.New("oauth not configured")
)

// User is what a successful provider sign-in yields.
type User struct {
	ID            string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
}

// StateStore keeps the CSRF state between the redirect and the callback.
type StateStore interface {
	Save(state string) error
	Load() (string, error)
}

type identityProvider interface {
	LoginURL(state string) (string, error)
	Exchange(ctx context.Context, code string) (User, error)
}

type Authenticator struct {
	providers map[string]identityProvider
	mu        sync.RWMutex
}

func NewAuthenticator() *Authenticator {
	return &Authenticator{
		providers: make(map[string]identityProvider),
	}
}

func (a *Authenticator) Use(name string, p identityProvider) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.providers[name]; ok {
		return ErrProviderConflict
	}
	a.providers[name] = p
	return nil
}

// Enabled reports whether any provider is registered.
func (a *Authenticator) Enabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.providers) > 0
}

func (a *Authenticator) LoginURL(st StateStore, provider string) (string, error) {
	p, err := a.getProvider(provider)
	if err != nil {
		return "", fmt.Errorf("get provider: %w", err)
	}

	state := randState(32)
	if err = st.Save(state); err != nil {
		return "", fmt.Errorf("save state: %w", err)
	}

	url, err := p.LoginURL(state)
	if err != nil {
		return "", fmt.Errorf("get login url: %w", err)
	}
	return url, nil
}

func (a *Authenticator) Exchange(ctx context.Context, st StateStore, provider, code, state string) (User, error) {
	p, err := a.getProvider(provider)
	if err != nil {
		return User{}, fmt.Errorf("get provider: %w", err)
	}

	saved, err := st.Load()
	if err != nil || saved == "" || saved != state {
		return User{}, ErrAuthFailed
	}

	usr, err := p.Exchange(ctx, code)
	if err != nil {
		var rerr *oauth2.RetrieveError
		if errors.As(err, &rerr) && rerr.Response != nil {
			if rerr.Response.StatusCode == http.StatusBadRequest || rerr.Response.StatusCode == http.StatusUnauthorized {
				return User{}, ErrAuthFailed
			}
		}
		return User{}, fmt.Errorf("exchange: %w", err)
	}
	if usr.Email == "" {
		return User{}, fmt.Errorf("%w: provider returned no email", ErrAuthFailed)
	}
	return usr, nil
}

func (a *Authenticator) getProvider(name string) (identityProvider, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	p, ok := a.providers[name]
	if !ok {
		return nil, ErrProviderNotFound
	}
	return p, nil
}

func randState(size int) string {
	b := make([]byte, size)
	// rand.Read never returns an error
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
