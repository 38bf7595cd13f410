// Package email delivers sign-in and sign-up links over SMTP.
package email

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"time"

	"gopkg.in/gomail.v2"
)

// Purpose selects the wording of a link email.
type Purpose string

const (
	PurposeSignIn Purpose = "signin"
	PurposeSignUp Purpose = "signup"
)

var ErrNotConfigured = errors.New("email sender not configured")

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type Sender struct {
	dialer  dialer
	from    string
	appName string
}

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func NewSender(cfg Config, appName string) *Sender {
	s := &Sender{from: cfg.From, appName: appName}
	if cfg.Host != "" {
		s.dialer = gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	}
	return s
}

// Configured returns true if an SMTP host is set.
func (s *Sender) Configured() bool {
	return s.dialer != nil
}

var linkTemplate = template.Must(template.New("link").Parse(`<div style="font-family: sans-serif; max-width: 600px; margin: 0 auto;">
<h2>{{.Heading}}</h2>
<p>Click the button below to {{.Action}}:</p>
<p><a href="{{.Link}}" style="background-color: #0070f3; color: white; padding: 12px 24px; text-decoration: none; border-radius: 6px;">{{.Heading}}</a></p>
<p>This link expires in {{.Expiry}}. If you did not request it, you can ignore this email.</p>
</div>`))

type linkData struct {
	Heading string
	Action  string
	Link    string
	Expiry  string
}

func (s *Sender) render(purpose Purpose, link string, ttl time.Duration) (subject, text, html string, err error) {
	var action string
	switch purpose {
	case PurposeSignUp:
		subject = fmt.Sprintf("Welcome to %s", s.appName)
		action = "verify your email and finish signing up"
	default:
		subject = fmt.Sprintf("Sign in to %s", s.appName)
		action = "sign in"
	}
	expiry := fmt.Sprintf("%d hours", int(ttl.Hours()))

	var buf bytes.Buffer
	if err := linkTemplate.Execute(&buf, linkData{Heading: subject, Action: action, Link: link, Expiry: expiry}); err != nil {
		return "", "", "", fmt.Errorf("render email: %w", err)
	}
	text = fmt.Sprintf("Click the link below to %s:\n\n%s\n\nThis link expires in %s.", action, link, expiry)
	return subject, text, buf.String(), nil
}

// SendLink mails link to the given address. ttl is quoted in the body.
func (s *Sender) SendLink(to string, purpose Purpose, link string, ttl time.Duration) error {
	if !s.Configured() {
		return ErrNotConfigured
	}

	subject, text, html, err := s.render(purpose, link, ttl)
	if err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", text)
	m.AddAlternative("text/html", html)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}
