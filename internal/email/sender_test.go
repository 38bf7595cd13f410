package email

import (
	"errors"
	"strings"
	"testing"
	"time"

	"gopkg.in/gomail.v2"
)

type recordingDialer struct {
	sent []*gomail.Message
	err  error
}

func (d *recordingDialer) DialAndSend(m ...*gomail.Message) error {
	d.sent = append(d.sent, m...)
	return d.err
}

func newTestSender(d dialer) *Sender {
	s := NewSender(Config{From: "noreply@example.com"}, "Dandy")
	s.dialer = d
	return s
}

func TestSendLinkSignIn(t *testing.T) {
	d := &recordingDialer{}
	s := newTestSender(d)

	if err := s.SendLink("alice@example.com", PurposeSignIn, "https://dandy.test/x", 24*time.Hour); err != nil {
		t.Fatalf("send link: %v", err)
	}
	if len(d.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(d.sent))
	}
	m := d.sent[0]
	if got := m.GetHeader("To"); len(got) != 1 || got[0] != "alice@example.com" {
		t.Errorf("To = %v, want alice@example.com", got)
	}
	if got := m.GetHeader("From"); len(got) != 1 || got[0] != "noreply@example.com" {
		t.Errorf("From = %v, want noreply@example.com", got)
	}
	if got := m.GetHeader("Subject"); len(got) != 1 || got[0] != "Sign in to Dandy" {
		t.Errorf("Subject = %v, want %q", got, "Sign in to Dandy")
	}
}

func TestRenderSignUp(t *testing.T) {
	s := newTestSender(&recordingDialer{})
	link := "https://dandy.test/api/auth/callback/email?token=abc&email=a%40x.com"

	subject, text, html, err := s.render(PurposeSignUp, link, 24*time.Hour)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if subject != "Welcome to Dandy" {
		t.Errorf("subject = %q", subject)
	}
	if !strings.Contains(text, link) {
		t.Errorf("text body missing link: %q", text)
	}
	if !strings.Contains(text, "24 hours") {
		t.Errorf("text body missing expiry: %q", text)
	}
	// html/template escapes & inside attributes
	if !strings.Contains(html, "token=abc&amp;email=a%40x.com") {
		t.Errorf("html body missing link: %q", html)
	}
}

func TestSendLinkNotConfigured(t *testing.T) {
	s := NewSender(Config{}, "Dandy")
	if s.Configured() {
		t.Fatal("expected unconfigured sender")
	}
	err := s.SendLink("alice@example.com", PurposeSignIn, "https://dandy.test/x", time.Hour)
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("err = %v, want ErrNotConfigured", err)
	}
}

func TestSendLinkDialError(t *testing.T) {
	boom := errors.New("connection refused")
	s := newTestSender(&recordingDialer{err: boom})

	err := s.SendLink("alice@example.com", PurposeSignIn, "https://dandy.test/x", time.Hour)
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped %v", err, boom)
	}
}

func TestNewSenderWithHost(t *testing.T) {
	s := NewSender(Config{Host: "smtp.example.com", Port: 587}, "Dandy")
	if !s.Configured() {
		t.Error("expected configured sender")
	}
}
