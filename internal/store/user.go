package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dukerupert/dandy/internal/model"
)

type UserStore struct {
	conn
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{conn{db: db}}
}

func scanUser(s scanner) (*model.User, error) {
	var u model.User
	var image sql.NullString
	err := s.Scan(&u.ID, &u.Name, &u.Email, &image, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if image.Valid {
		u.Image = &image.String
	}
	return &u, nil
}

const userCols = `id, name, email, image, created_at, updated_at`

func (s *UserStore) Create(ctx context.Context, name, email string, image *string) (*model.User, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	result, err := db.ExecContext(ctx,
		`INSERT INTO users (name, email, image) VALUES (?, ?, ?)`,
		name, email, nullString(image),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("insert user: %w", ErrDuplicate)
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *UserStore) GetByID(ctx context.Context, id int64) (*model.User, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	row := db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// GetByEmail matches the email exactly as stored.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	row := db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE email = ?`, email)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

// UpdateProfile refreshes name and image, keyed by email.
func (s *UserStore) UpdateProfile(ctx context.Context, email, name string, image *string) (*model.User, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	_, err = db.ExecContext(ctx,
		`UPDATE users SET name = ?, image = ?, updated_at = ? WHERE email = ?`,
		name, nullString(image), time.Now().UTC(), email,
	)
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return s.GetByEmail(ctx, email)
}

// Upsert creates the user or refreshes name and image of an existing one.
// created reports whether a new row was inserted.
func (s *UserStore) Upsert(ctx context.Context, name, email string, image *string) (u *model.User, created bool, err error) {
	existing, err := s.GetByEmail(ctx, email)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		u, err = s.UpdateProfile(ctx, email, name, image)
		return u, false, err
	}
	u, err = s.Create(ctx, name, email, image)
	if errors.Is(err, ErrDuplicate) {
		// Lost a race with a concurrent insert for the same email.
		u, err = s.UpdateProfile(ctx, email, name, image)
		return u, false, err
	}
	return u, err == nil, err
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
