package oauth

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/hkdf"
)

// SessionTTL is the lifetime of an OAuth session and its cookie.
const SessionTTL = 30 * 24 * time.Hour

const (
	sessionIssuer = "dandy"
	keyInfo       = "dandy oauth session signing key"
)

// Session is the identity carried by a valid OAuth session cookie.
type Session struct {
	Provider string    `json:"provider"`
	Email    string    `json:"email"`
	Name     string    `json:"name"`
	Picture  string    `json:"image,omitempty"`
	Expires  time.Time `json:"expires"`
}

type sessionClaims struct {
	jwt.RegisteredClaims
	Provider string `json:"provider"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Picture  string `json:"picture,omitempty"`
}

// Sessions issues and reads the OAuth session cookie as an HS256 JWT whose
// key is derived from the configured secret with HKDF-SHA256.
type Sessions struct {
	key    []byte
	secure bool
	now    func() time.Time
}

// NewSessions derives the signing key from secret. secure selects the
// production cookie name and the Secure attribute.
func NewSessions(secret string, secure bool) (*Sessions, error) {
	if secret == "" {
		return nil, ErrNotConfigured
	}
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(keyInfo)), key); err != nil {
		return nil, fmt.Errorf("derive session key: %w", err)
	}
	return &Sessions{key: key, secure: secure, now: time.Now}, nil
}

func (s *Sessions) cookieName() string {
	if s.secure {
		return SecureSessionCookieName
	}
	return SessionCookieName
}

// Issue signs a session for u valid for SessionTTL.
func (s *Sessions) Issue(provider string, u User) (string, time.Time, error) {
	now := s.now()
	expires := now.Add(SessionTTL)
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    sessionIssuer,
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		Provider: provider,
		Email:    u.Email,
		Name:     u.Name,
		Picture:  u.Picture,
	}
	tk, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session: %w", err)
	}
	return tk, expires, nil
}

// Parse validates signature, issuer and expiry.
func (s *Sessions) Parse(raw string) (*Session, error) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("parse session: %w", err)
	}
	if claims.Email == "" {
		return nil, errors.New("parse session: missing email")
	}
	return &Session{
		Provider: claims.Provider,
		Email:    claims.Email,
		Name:     claims.Name,
		Picture:  claims.Picture,
		Expires:  claims.ExpiresAt.Time,
	}, nil
}

// FromRequest returns the OAuth session carried by r. A missing, stale or
// forged cookie is reported as (nil, nil).
func (s *Sessions) FromRequest(r *http.Request) (*Session, error) {
	if s == nil {
		return nil, nil
	}
	for _, name := range SessionCookieNames {
		c, err := r.Cookie(name)
		if err != nil || c.Value == "" {
			continue
		}
		if sess, err := s.Parse(c.Value); err == nil {
			return sess, nil
		}
	}
	return nil, nil
}

// SetCookie writes the signed session as an httpOnly, lax cookie.
func (s *Sessions) SetCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName(),
		Value:    token,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
