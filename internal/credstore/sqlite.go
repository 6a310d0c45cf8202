package credstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SqliteStore is a Store backed by a SQLite database file. The pure-Go
// driver keeps the binary free of cgo.
type SqliteStore struct {
	db *sql.DB
}

// NewSqliteStore opens (and if necessary creates) the SQLite database at
// the given path and ensures the credentials table exists.
func NewSqliteStore(path string) (*SqliteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	s := &SqliteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SqliteStore) migrate() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS oauth_credentials (
	user_id       TEXT NOT NULL,
	provider      TEXT NOT NULL,
	access_token  TEXT NOT NULL,
	refresh_token TEXT,
	token_type    TEXT NOT NULL DEFAULT 'Bearer',
	scope         TEXT,
	expires_at    INTEGER,
	updated_at    INTEGER NOT NULL,
	PRIMARY KEY (user_id, provider)
)`)
	if err != nil {
		return fmt.Errorf("failed to create oauth_credentials table: %w", err)
	}
	return nil
}

func (s *SqliteStore) Upsert(ctx context.Context, cred *Credential) error {
	if err := cred.Validate(); err != nil {
		return fmt.Errorf("invalid credential: %w", err)
	}

	var expiresAt *int64
	if !cred.ExpiresAt.IsZero() {
		ts := cred.ExpiresAt.Unix()
		expiresAt = &ts
	}

	var refreshToken *string
	if cred.RefreshToken != "" {
		refreshToken = &cred.RefreshToken
	}

	tokenType := cred.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO oauth_credentials (user_id, provider, access_token, refresh_token, token_type, scope, expires_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(user_id, provider) DO UPDATE SET
	access_token=excluded.access_token,
	refresh_token=excluded.refresh_token,
	token_type=excluded.token_type,
	scope=excluded.scope,
	expires_at=excluded.expires_at,
	updated_at=excluded.updated_at`,
		cred.UserID, cred.Provider, cred.AccessToken, refreshToken,
		tokenType, cred.Scope, expiresAt, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}
	return nil
}

func (s *SqliteStore) Get(ctx context.Context, userID, provider string) (*Credential, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT user_id, provider, access_token, refresh_token, token_type, scope, expires_at, updated_at
FROM oauth_credentials
WHERE user_id = ? AND provider = ?`,
		userID, provider)

	return scanCredential(row)
}

func (s *SqliteStore) Delete(ctx context.Context, userID, provider string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM oauth_credentials WHERE user_id = ? AND provider = ?`,
		userID, provider)
	if err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	return nil
}

func (s *SqliteStore) Close() error {
	return s.db.Close()
}

// scanCredential scans one credential row, mapping sql.ErrNoRows to
// ErrNotFound.
func scanCredential(row *sql.Row) (*Credential, error) {
	var cred Credential
	var refreshToken sql.NullString
	var scope sql.NullString
	var expiresAt sql.NullInt64
	var updatedAt int64

	err := row.Scan(&cred.UserID, &cred.Provider, &cred.AccessToken,
		&refreshToken, &cred.TokenType, &scope, &expiresAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}

	if refreshToken.Valid {
		cred.RefreshToken = refreshToken.String
	}
	if scope.Valid {
		cred.Scope = scope.String
	}
	if expiresAt.Valid {
		cred.ExpiresAt = time.Unix(expiresAt.Int64, 0)
	}
	cred.UpdatedAt = time.Unix(updatedAt, 0)

	return &cred, nil
}
