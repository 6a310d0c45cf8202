package credstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresStore is a Store backed by PostgreSQL, for deployments where
// multiple agenthub instances share one credential table.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore connects to the database described by dsn and ensures
// the credentials table exists.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	s := &PostgresStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) migrate() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS oauth_credentials (
	user_id       TEXT NOT NULL,
	provider      TEXT NOT NULL,
	access_token  TEXT NOT NULL,
	refresh_token TEXT,
	token_type    TEXT NOT NULL DEFAULT 'Bearer',
	scope         TEXT,
	expires_at    BIGINT,
	updated_at    BIGINT NOT NULL,
	PRIMARY KEY (user_id, provider)
)`)
	if err != nil {
		return fmt.Errorf("failed to create oauth_credentials table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Upsert(ctx context.Context, cred *Credential) error {
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
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (user_id, provider) DO UPDATE SET
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

func (s *PostgresStore) Get(ctx context.Context, userID, provider string) (*Credential, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT user_id, provider, access_token, refresh_token, token_type, scope, expires_at, updated_at
FROM oauth_credentials
WHERE user_id = $1 AND provider = $2`,
		userID, provider)

	return scanCredential(row)
}

func (s *PostgresStore) Delete(ctx context.Context, userID, provider string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM oauth_credentials WHERE user_id = $1 AND provider = $2`,
		userID, provider)
	if err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
