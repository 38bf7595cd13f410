package store

import (
	"database/sql"
	"errors"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrNotConfigured is returned by every store operation when no datastore
	// handle was supplied. It signals an infrastructure problem, never a miss.
	ErrNotConfigured = errors.New("datastore not configured")

	// ErrDuplicate is returned when an insert or update violates a unique constraint.
	ErrDuplicate = errors.New("duplicate record")
)

// conn holds the shared handle. A nil db makes every call fail with ErrNotConfigured.
type conn struct {
	db *sql.DB
}

func (c conn) handle() (*sql.DB, error) {
	if c.db == nil {
		return nil, ErrNotConfigured
	}
	return c.db, nil
}

// Configured reports whether the store has a datastore handle.
func (c conn) Configured() bool {
	return c.db != nil
}

type scanner interface{ Scan(...any) error }

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return false
}
