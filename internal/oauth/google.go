package oauth

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

const (
	googleScopeEmail   = "email"
	googleScopeProfile = "profile"
)

// Google implements identityProvider for Google sign-in.
type Google struct {
	cfg      *oauth2.Config
	verifier *oidc.IDTokenVerifier
}

type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

type googleClaims struct {
	Sub      string `json:"sub,omitempty"`
	Email    string `json:"email,omitempty"`
	Verified bool   `json:"email_verified,omitempty"`
	Name     string `json:"name,omitempty"`
	Picture  string `json:"picture,omitempty"`
}

// NewGoogle fetches Google's OIDC discovery document and builds the provider.
func NewGoogle(ctx context.Context, cfg GoogleConfig) (*Google, error) {
	p, err := oidc.NewProvider(ctx, "https://accounts.google.com")
	if err != nil {
		return nil, fmt.Errorf("new oidc provider: %w", err)
	}

	return &Google{
		cfg: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{oidc.ScopeOpenID, googleScopeProfile, googleScopeEmail},
			Endpoint:     endpoints.Google,
		},
		verifier: p.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
	}, nil
}

func (g *Google) LoginURL(state string) (string, error) {
	return g.cfg.AuthCodeURL(state), nil
}

func (g *Google) Exchange(ctx context.Context, code string) (User, error) {
	tok, err := g.cfg.Exchange(ctx, code)
	if err != nil {
		return User{}, err
	}

	raw, ok := tok.Extra("id_token").(string)
	if !ok {
		return User{}, fmt.Errorf("%w: missing id_token", ErrAuthFailed)
	}
	idTok, err := g.verifier.Verify(ctx, raw)
	if err != nil {
		return User{}, fmt.Errorf("verify id token: %w", err)
	}

	var c googleClaims
	if err := idTok.Claims(&c); err != nil {
		return User{}, fmt.Errorf("read claims: %w", err)
	}

	name := c.Name
	if name == "" {
		name = c.Email
	}
	return User{
		ID:            c.Sub,
		Email:         c.Email,
		EmailVerified: c.Verified,
		Name:          name,
		Picture:       c.Picture,
	}, nil
}
