// Package session implements the lifecycle of email verification tokens and
// of the custom (non-OAuth) sessions issued once a token is consumed.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dukerupert/dandy/internal/model"
	"github.com/dukerupert/dandy/internal/token"
)

const (
	// TokenTTL is the validity window of a verification token.
	TokenTTL = 24 * time.Hour
	// SessionTTL is the lifetime of a custom session and of its cookie.
	SessionTTL = 30 * 24 * time.Hour
	// CookieName carries the custom session token.
	CookieName = "session_token"
)

var (
	ErrTokenNotFound       = errors.New("verification token not found")
	ErrTokenExpired        = errors.New("verification token expired")
	ErrSessionCreateFailed = errors.New("session creation failed")
)

type tokenStore interface {
	Create(ctx context.Context, token, identifier string, expires time.Time) (*model.VerificationToken, error)
	Find(ctx context.Context, token, identifier string) (*model.VerificationToken, error)
	DeleteByToken(ctx context.Context, token string) (bool, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type sessionStore interface {
	Create(ctx context.Context, token string, userID int64, expires time.Time) (*model.Session, error)
	GetByToken(ctx context.Context, token string, now time.Time) (*model.SessionWithUser, error)
	DeleteByToken(ctx context.Context, token string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Option configures a Verifier or a Manager.
type Option func(*options)

type options struct {
	now      func() time.Time
	newToken func() (string, error)
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithTokenSource overrides token.New.
func WithTokenSource(f func() (string, error)) Option {
	return func(o *options) { o.newToken = f }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now, newToken: token.New}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Verifier issues and consumes verification tokens.
// A token moves from issued to consumed or expired and never back.
type Verifier struct {
	tokens tokenStore
	options
}

func NewVerifier(tokens tokenStore, opts ...Option) *Verifier {
	return &Verifier{tokens: tokens, options: buildOptions(opts)}
}

// Issue creates a token for email valid for TokenTTL. Earlier outstanding
// tokens for the same email stay valid.
func (v *Verifier) Issue(ctx context.Context, email string) (*model.VerificationToken, error) {
	tok, err := v.newToken()
	if err != nil {
		return nil, err
	}
	vt, err := v.tokens.Create(ctx, tok, email, v.now().Add(TokenTTL))
	if err != nil {
		return nil, fmt.Errorf("issue verification token: %w", err)
	}
	return vt, nil
}

// Consume validates (token, email) and deletes the row. It succeeds at most
// once per token: a concurrent consumer that loses the delete gets
// ErrTokenNotFound. Expired rows are left for Cleanup.
func (v *Verifier) Consume(ctx context.Context, tok, email string) error {
	vt, err := v.tokens.Find(ctx, tok, email)
	if err != nil {
		return fmt.Errorf("find verification token: %w", err)
	}
	if vt == nil {
		return ErrTokenNotFound
	}
	if vt.Expired(v.now()) {
		return ErrTokenExpired
	}

	deleted, err := v.tokens.DeleteByToken(ctx, tok)
	if err != nil {
		return fmt.Errorf("consume verification token: %w", err)
	}
	if !deleted {
		return ErrTokenNotFound
	}
	return nil
}

// Cleanup deletes every expired token.
func (v *Verifier) Cleanup(ctx context.Context) (int64, error) {
	return v.tokens.DeleteExpired(ctx, v.now())
}

// Manager creates, looks up and deletes custom sessions.
type Manager struct {
	sessions sessionStore
	options
}

func NewManager(sessions sessionStore, opts ...Option) *Manager {
	return &Manager{sessions: sessions, options: buildOptions(opts)}
}

// Create persists a new session for userID expiring after SessionTTL.
// Any failure is reported as ErrSessionCreateFailed wrapping the cause.
func (m *Manager) Create(ctx context.Context, userID int64) (*model.Session, error) {
	tok, err := m.newToken()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSessionCreateFailed, err)
	}
	sess, err := m.sessions.Create(ctx, tok, userID, m.now().Add(SessionTTL))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSessionCreateFailed, err)
	}
	return sess, nil
}

// Lookup returns the unexpired session for tok with its user. A missing or
// expired session yields (nil, nil); only store failures are errors.
func (m *Manager) Lookup(ctx context.Context, tok string) (*model.SessionWithUser, error) {
	if tok == "" {
		return nil, nil
	}
	sw, err := m.sessions.GetByToken(ctx, tok, m.now())
	if err != nil {
		return nil, fmt.Errorf("lookup session: %w", err)
	}
	return sw, nil
}

// Delete removes the session. Unknown tokens are not an error.
func (m *Manager) Delete(ctx context.Context, tok string) error {
	return m.sessions.DeleteByToken(ctx, tok)
}

// Cleanup deletes every expired session. Safe to run concurrently.
func (m *Manager) Cleanup(ctx context.Context) (int64, error) {
	return m.sessions.DeleteExpired(ctx, m.now())
}
