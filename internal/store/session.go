package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dukerupert/dandy/internal/model"
)

type SessionStore struct {
	conn
}

func NewSessionStore(db *sql.DB) *SessionStore {
	return &SessionStore{conn{db: db}}
}

func scanSession(s scanner) (*model.Session, error) {
	var sess model.Session
	err := s.Scan(&sess.SessionToken, &sess.UserID, &sess.Expires, &sess.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

const sessionCols = `session_token, user_id, expires, created_at`

func (s *SessionStore) Create(ctx context.Context, token string, userID int64, expires time.Time) (*model.Session, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO sessions (session_token, user_id, expires) VALUES (?, ?, ?)`,
		token, userID, expires.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("insert session: %w", ErrDuplicate)
		}
		return nil, fmt.Errorf("insert session: %w", err)
	}
	row := db.QueryRowContext(ctx, `SELECT `+sessionCols+` FROM sessions WHERE session_token = ?`, token)
	sess, err := scanSession(row)
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	return sess, nil
}

// GetByToken returns the session joined with its user, or nil if the token is
// unknown or the session expired at or before now.
func (s *SessionStore) GetByToken(ctx context.Context, token string, now time.Time) (*model.SessionWithUser, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	row := db.QueryRowContext(ctx, `
		SELECT s.session_token, s.expires,
		       u.id, u.name, u.email, u.image, u.created_at, u.updated_at
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.session_token = ? AND s.expires > ?`,
		token, now.UTC(),
	)

	var sw model.SessionWithUser
	var image sql.NullString
	err = row.Scan(
		&sw.SessionToken, &sw.Expires,
		&sw.User.ID, &sw.User.Name, &sw.User.Email, &image, &sw.User.CreatedAt, &sw.User.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session by token: %w", err)
	}
	if image.Valid {
		sw.User.Image = &image.String
	}
	return &sw, nil
}

// DeleteByToken is idempotent: deleting an unknown token is not an error.
func (s *SessionStore) DeleteByToken(ctx context.Context, token string) error {
	db, err := s.handle()
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM sessions WHERE session_token = ?`, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *SessionStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	db, err := s.handle()
	if err != nil {
		return 0, err
	}
	result, err := db.ExecContext(ctx, `DELETE FROM sessions WHERE expires <= ?`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}
