package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dukerupert/dandy/internal/model"
)

type VerificationTokenStore struct {
	conn
}

func NewVerificationTokenStore(db *sql.DB) *VerificationTokenStore {
	return &VerificationTokenStore{conn{db: db}}
}

func scanVerificationToken(s scanner) (*model.VerificationToken, error) {
	var vt model.VerificationToken
	err := s.Scan(&vt.Token, &vt.Identifier, &vt.Expires, &vt.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &vt, nil
}

const verificationTokenCols = `token, identifier, expires, created_at`

func (s *VerificationTokenStore) Create(ctx context.Context, token, identifier string, expires time.Time) (*model.VerificationToken, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO verification_tokens (token, identifier, expires) VALUES (?, ?, ?)`,
		token, identifier, expires.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("insert verification token: %w", ErrDuplicate)
		}
		return nil, fmt.Errorf("insert verification token: %w", err)
	}
	row := db.QueryRowContext(ctx, `SELECT `+verificationTokenCols+` FROM verification_tokens WHERE token = ?`, token)
	vt, err := scanVerificationToken(row)
	if err != nil {
		return nil, fmt.Errorf("read verification token: %w", err)
	}
	return vt, nil
}

// Find returns the token matching both token and identifier, or nil.
// Expired rows are returned; callers decide what expiry means.
func (s *VerificationTokenStore) Find(ctx context.Context, token, identifier string) (*model.VerificationToken, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	row := db.QueryRowContext(ctx,
		`SELECT `+verificationTokenCols+` FROM verification_tokens WHERE token = ? AND identifier = ?`,
		token, identifier,
	)
	vt, err := scanVerificationToken(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find verification token: %w", err)
	}
	return vt, nil
}

// DeleteByToken removes the token and reports whether this call removed it.
// Of several concurrent callers at most one sees true.
func (s *VerificationTokenStore) DeleteByToken(ctx context.Context, token string) (bool, error) {
	db, err := s.handle()
	if err != nil {
		return false, err
	}
	result, err := db.ExecContext(ctx, `DELETE FROM verification_tokens WHERE token = ?`, token)
	if err != nil {
		return false, fmt.Errorf("delete verification token: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *VerificationTokenStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	db, err := s.handle()
	if err != nil {
		return 0, err
	}
	result, err := db.ExecContext(ctx, `DELETE FROM verification_tokens WHERE expires <= ?`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired verification tokens: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}
