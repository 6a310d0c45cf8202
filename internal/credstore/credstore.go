package credstore

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by Get when no credential exists for the
// requested (user, provider) pair.
var ErrNotFound = errors.New("credential not found")

// Credential is a stored OAuth2 token set scoped to one (user, provider)
// pair. At most one credential exists per pair; writes are upserts.
type Credential struct {
	UserID       string    `json:"user_id"`
	Provider     string    `json:"provider"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type"`
	Scope        string    `json:"scope,omitempty"`
	ExpiresAt    time.Time `json:"expires_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Validate checks that the credential carries the required fields.
func (c *Credential) Validate() error {
	if c.Provider == "" {
		return fmt.Errorf("provider is required")
	}
	if c.AccessToken == "" {
		return fmt.Errorf("access_token is required")
	}
	return nil
}

// IsExpired reports whether the credential has expired, or will expire
// within the given margin. A zero ExpiresAt never expires.
func (c *Credential) IsExpired(margin time.Duration) bool {
	if c.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().Add(margin).After(c.ExpiresAt)
}

// Store persists OAuth credentials keyed by (user, provider).
//
// Implementations must make Upsert overwrite any existing row for the same
// pair, return ErrNotFound from Get when the pair is absent, and make
// Delete idempotent.
type Store interface {
	Upsert(ctx context.Context, cred *Credential) error
	Get(ctx context.Context, userID, provider string) (*Credential, error)
	Delete(ctx context.Context, userID, provider string) error
	Close() error
}

// Open creates a Store for the given driver. Supported drivers are
// "memory", "sqlite", and "postgres".
func Open(driver, dsn string) (Store, error) {
	switch driver {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return NewSqliteStore(dsn)
	case "postgres":
		return NewPostgresStore(dsn)
	default:
		return nil, fmt.Errorf("unknown credential store driver: %s", driver)
	}
}
