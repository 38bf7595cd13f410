package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dukerupert/dandy/internal/model"
)

type APIKeyStore struct {
	conn
}

func NewAPIKeyStore(db *sql.DB) *APIKeyStore {
	return &APIKeyStore{conn{db: db}}
}

func scanAPIKey(s scanner) (*model.APIKey, error) {
	var k model.APIKey
	err := s.Scan(&k.ID, &k.Name, &k.Key, &k.UserID, &k.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &k, nil
}

const apiKeyCols = `id, name, key, user_id, created_at`

func (s *APIKeyStore) Create(ctx context.Context, userID int64, name, key string) (*model.APIKey, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	result, err := db.ExecContext(ctx,
		`INSERT INTO api_keys (name, key, user_id) VALUES (?, ?, ?)`,
		name, key, userID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("insert api key: %w", ErrDuplicate)
		}
		return nil, fmt.Errorf("insert api key: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.get(ctx, db, `id = ?`, id)
}

// ListByUser returns the user's keys ordered by id.
func (s *APIKeyStore) ListByUser(ctx context.Context, userID int64) ([]model.APIKey, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx,
		`SELECT `+apiKeyCols+` FROM api_keys WHERE user_id = ? ORDER BY id ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close()

	var keys []model.APIKey
	for rows.Next() {
		k, err := scanAPIKey(rows)
		if err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, *k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate api keys: %w", err)
	}
	return keys, nil
}

// GetOwned returns the key only when it belongs to userID.
func (s *APIKeyStore) GetOwned(ctx context.Context, id, userID int64) (*model.APIKey, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	return s.get(ctx, db, `id = ? AND user_id = ?`, id, userID)
}

func (s *APIKeyStore) GetByKey(ctx context.Context, key string) (*model.APIKey, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	return s.get(ctx, db, `key = ?`, key)
}

// Rename changes the name of a key owned by userID. It returns nil when no
// such key exists for that user.
func (s *APIKeyStore) Rename(ctx context.Context, id, userID int64, name string) (*model.APIKey, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	result, err := db.ExecContext(ctx,
		`UPDATE api_keys SET name = ? WHERE id = ? AND user_id = ?`,
		name, id, userID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("rename api key: %w", ErrDuplicate)
		}
		return nil, fmt.Errorf("rename api key: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return nil, nil
	}
	return s.get(ctx, db, `id = ?`, id)
}

// Delete removes a key owned by userID and reports whether a row was removed.
func (s *APIKeyStore) Delete(ctx context.Context, id, userID int64) (bool, error) {
	db, err := s.handle()
	if err != nil {
		return false, err
	}
	result, err := db.ExecContext(ctx, `DELETE FROM api_keys WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return false, fmt.Errorf("delete api key: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *APIKeyStore) get(ctx context.Context, db *sql.DB, where string, args ...any) (*model.APIKey, error) {
	row := db.QueryRowContext(ctx, `SELECT `+apiKeyCols+` FROM api_keys WHERE `+where, args...)
	k, err := scanAPIKey(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get api key: %w", err)
	}
	return k, nil
}
