package model

import "time"

// VerificationToken is a one-time credential proving control of Identifier (an email).
type VerificationToken struct {
	Token      string    `json:"-"`
	Identifier string    `json:"identifier"`
	Expires    time.Time `json:"expires"`
	CreatedAt  time.Time `json:"created_at"`
}

// Expired reports whether the token is past its expiry at now.
func (t *VerificationToken) Expired(now time.Time) bool {
	return !t.Expires.After(now)
}

type Session struct {
	SessionToken string    `json:"session_token"`
	UserID       int64     `json:"user_id"`
	Expires      time.Time `json:"expires"`
	CreatedAt    time.Time `json:"created_at"`
}

// SessionWithUser is an unexpired session joined with its owner.
type SessionWithUser struct {
	User         User      `json:"user"`
	SessionToken string    `json:"sessionToken"`
	Expires      time.Time `json:"expires"`
}
