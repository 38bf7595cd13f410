// Package signin coordinates the passwordless email flow: user creation,
// token issuance, link delivery and verification into a custom session.
package signin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/dukerupert/dandy/internal/email"
	"github.com/dukerupert/dandy/internal/model"
	"github.com/dukerupert/dandy/internal/oauth"
	"github.com/dukerupert/dandy/internal/session"
	"github.com/dukerupert/dandy/internal/store"
)

var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrInvalidLink    = errors.New("invalid verification link")
	ErrAlreadyExists  = errors.New("user already exists")
	ErrUserNotFound   = errors.New("user not found")
	ErrIssueFailed    = errors.New("verification token not created")
	ErrDispatchFailed = errors.New("email dispatch failed")
)

// Callback error codes carried to the auth error page.
const (
	CodeConfiguration           = "Configuration"
	CodeInvalidVerificationLink = "InvalidVerificationLink"
	CodeInvalidToken            = "InvalidToken"
	CodeTokenExpired            = "TokenExpired"
	CodeUserNotFound            = "UserNotFound"
	CodeSessionCreationFailed   = "SessionCreationFailed"
	CodeVerificationFailed      = "VerificationFailed"
)

// CallbackPath is where emailed links point, relative to the base URL.
const CallbackPath = "/api/auth/callback/email"

// Mailer delivers a link to an address.
type Mailer interface {
	SendLink(to string, purpose email.Purpose, link string, ttl time.Duration) error
}

type userStore interface {
	Configured() bool
	Create(ctx context.Context, name, email string, image *string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	Upsert(ctx context.Context, name, email string, image *string) (*model.User, bool, error)
}

type tokenIssuer interface {
	Issue(ctx context.Context, email string) (*model.VerificationToken, error)
	Consume(ctx context.Context, tok, email string) error
}

type sessionCreator interface {
	Create(ctx context.Context, userID int64) (*model.Session, error)
}

// Result describes an initiated email flow. URL is only populated when the
// link is returned inline instead of mailed.
type Result struct {
	UserID int64
	URL    string
}

type Service struct {
	users    userStore
	tokens   tokenIssuer
	sessions sessionCreator
	mailer   Mailer
	baseURL  string
	// production mails links; otherwise they are returned inline.
	production bool
	logger     *slog.Logger
}

func NewService(users userStore, tokens tokenIssuer, sessions sessionCreator, mailer Mailer, baseURL string, production bool, logger *slog.Logger) *Service {
	return &Service{
		users:      users,
		tokens:     tokens,
		sessions:   sessions,
		mailer:     mailer,
		baseURL:    strings.TrimRight(baseURL, "/"),
		production: production,
		logger:     logger,
	}
}

// Production reports whether links are mailed.
func (s *Service) Production() bool {
	return s.production
}

// SignUp creates the user named "first last" and sends a sign-up link.
func (s *Service) SignUp(ctx context.Context, addr, firstName, lastName string) (*Result, error) {
	if !s.users.Configured() {
		return nil, store.ErrNotConfigured
	}
	addr = strings.TrimSpace(addr)
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)
	if addr == "" || firstName == "" || lastName == "" {
		return nil, fmt.Errorf("%w: email, first name and last name are required", ErrInvalidInput)
	}

	existing, err := s.users.GetByEmail(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("check user: %w", err)
	}
	if existing != nil {
		return nil, ErrAlreadyExists
	}

	u, err := s.users.Create(ctx, firstName+" "+lastName, addr, nil)
	if errors.Is(err, store.ErrDuplicate) {
		return nil, ErrAlreadyExists
	}
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.logger.Info("user signed up", "user_id", u.ID, "email", u.Email)

	link, err := s.deliver(ctx, addr, email.PurposeSignUp)
	if err != nil {
		return nil, err
	}
	return &Result{UserID: u.ID, URL: link}, nil
}

// SignIn sends a sign-in link to an existing user.
func (s *Service) SignIn(ctx context.Context, addr string) (*Result, error) {
	if !s.users.Configured() {
		return nil, store.ErrNotConfigured
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("%w: email is required", ErrInvalidInput)
	}

	u, err := s.users.GetByEmail(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if u == nil {
		return nil, ErrUserNotFound
	}

	link, err := s.deliver(ctx, addr, email.PurposeSignIn)
	if err != nil {
		return nil, err
	}
	return &Result{UserID: u.ID, URL: link}, nil
}

// deliver issues a token and mails the link, or returns it outside production.
func (s *Service) deliver(ctx context.Context, addr string, purpose email.Purpose) (string, error) {
	vt, err := s.tokens.Issue(ctx, addr)
	if err != nil {
		s.logger.Error("issue verification token", "email", addr, "error", err)
		return "", fmt.Errorf("%w: %w", ErrIssueFailed, err)
	}
	link := s.Link(vt.Token, addr)

	if !s.production {
		s.logger.Info("verification link returned inline", "email", addr, "purpose", purpose)
		return link, nil
	}
	if err := s.mailer.SendLink(addr, purpose, link, session.TokenTTL); err != nil {
		s.logger.Error("send verification email", "email", addr, "error", err)
		return "", fmt.Errorf("%w: %w", ErrDispatchFailed, err)
	}
	return "", nil
}

// Link builds {base}/api/auth/callback/email?token=...&email=....
func (s *Service) Link(tok, addr string) string {
	return s.baseURL + CallbackPath + "?token=" + url.QueryEscape(tok) + "&email=" + url.QueryEscape(addr)
}

// Verify consumes the token and opens a custom session for its owner. The
// token stays consumed if session creation fails afterwards.
func (s *Service) Verify(ctx context.Context, tok, addr string) (*model.Session, error) {
	if !s.users.Configured() {
		return nil, store.ErrNotConfigured
	}
	if tok == "" || addr == "" {
		return nil, ErrInvalidLink
	}

	if err := s.tokens.Consume(ctx, tok, addr); err != nil {
		return nil, err
	}

	u, err := s.users.GetByEmail(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if u == nil {
		return nil, ErrUserNotFound
	}

	sess, err := s.sessions.Create(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("email verified", "user_id", u.ID)
	return sess, nil
}

// RecordOAuthUser mirrors a successful OAuth sign-in into the users table.
// Callers let the sign-in proceed when it fails.
func (s *Service) RecordOAuthUser(ctx context.Context, u oauth.User) (*model.User, error) {
	var image *string
	if u.Picture != "" {
		image = &u.Picture
	}
	mu, created, err := s.users.Upsert(ctx, u.Name, u.Email, image)
	if err != nil {
		return nil, fmt.Errorf("record oauth user: %w", err)
	}
	if created {
		s.logger.Info("user created from oauth", "user_id", mu.ID, "email", mu.Email)
	}
	return mu, nil
}

// ErrorCode maps a Verify error to the code shown on the auth error page.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, store.ErrNotConfigured):
		return CodeConfiguration
	case errors.Is(err, ErrInvalidLink):
		return CodeInvalidVerificationLink
	case errors.Is(err, session.ErrTokenNotFound):
		return CodeInvalidToken
	case errors.Is(err, session.ErrTokenExpired):
		return CodeTokenExpired
	case errors.Is(err, ErrUserNotFound):
		return CodeUserNotFound
	case errors.Is(err, session.ErrSessionCreateFailed):
		return CodeSessionCreationFailed
	default:
		return CodeVerificationFailed
	}
}
