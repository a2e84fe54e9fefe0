package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface check.
var _ TokenStore = (*SQLiteStore)(nil)

// SQLiteStore implements TokenStore backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and returns
// a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS tokens (
		client_id      TEXT PRIMARY KEY,
		access_token   TEXT NOT NULL,
		refresh_token  TEXT NOT NULL,
		access_expiry  INTEGER NOT NULL,
		refresh_expiry INTEGER NOT NULL,
		updated_at     INTEGER NOT NULL
	)`); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveTokens replaces the stored token record for the given client id.
func (s *SQLiteStore) SaveTokens(ctx context.Context, clientID string, rec *TokenRecord) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO tokens
		(client_id, access_token, refresh_token, access_expiry, refresh_expiry, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		clientID,
		rec.AccessToken,
		rec.RefreshToken,
		rec.AccessExpiry.UnixMilli(),
		rec.RefreshExpiry.UnixMilli(),
		time.Now().UnixMilli(),
	)
	return err
}

// LoadTokens retrieves the stored token record for the given client id. A
// missing record returns (nil, nil).
func (s *SQLiteStore) LoadTokens(ctx context.Context, clientID string) (*TokenRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT access_token, refresh_token,
		access_expiry, refresh_expiry, updated_at
		FROM tokens WHERE client_id = ?`, clientID)

	var rec TokenRecord
	var accessExp, refreshExp, updated int64
	err := row.Scan(&rec.AccessToken, &rec.RefreshToken, &accessExp, &refreshExp, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec.AccessExpiry = time.UnixMilli(accessExp)
	rec.RefreshExpiry = time.UnixMilli(refreshExp)
	rec.UpdatedAt = time.UnixMilli(updated)
	return &rec, nil
}
