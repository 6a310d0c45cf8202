package credstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentialValidate(t *testing.T) {
	cred := &Credential{Provider: "github", AccessToken: "token"}
	assert.NoError(t, cred.Validate())

	assert.Error(t, (&Credential{AccessToken: "token"}).Validate())
	assert.Error(t, (&Credential{Provider: "github"}).Validate())
}

func TestCredentialIsExpired(t *testing.T) {
	margin := 30 * time.Second

	// Zero expiry means the token never expires.
	assert.False(t, (&Credential{}).IsExpired(margin))

	assert.False(t, (&Credential{ExpiresAt: time.Now().Add(time.Hour)}).IsExpired(margin))
	assert.True(t, (&Credential{ExpiresAt: time.Now().Add(-time.Hour)}).IsExpired(margin))

	// Tokens inside the margin count as expired.
	assert.True(t, (&Credential{ExpiresAt: time.Now().Add(10 * time.Second)}).IsExpired(margin))
}

func TestOpen(t *testing.T) {
	store, err := Open("", "")
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)
	store.Close()

	store, err = Open("memory", "")
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)
	store.Close()

	_, err = Open("cassandra", "")
	assert.Error(t, err)
}

// storeConformance runs the Store contract against an implementation.
func storeConformance(t *testing.T, store Store) {
	ctx := context.Background()

	_, err := store.Get(ctx, "user-1", "github")
	assert.ErrorIs(t, err, ErrNotFound)

	cred := &Credential{
		UserID:       "user-1",
		Provider:     "github",
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		TokenType:    "Bearer",
		Scope:        "repo",
		ExpiresAt:    time.Now().Add(time.Hour).UTC().Truncate(time.Second),
	}
	require.NoError(t, store.Upsert(ctx, cred))

	got, err := store.Get(ctx, "user-1", "github")
	require.NoError(t, err)
	assert.Equal(t, "access-1", got.AccessToken)
	assert.Equal(t, "refresh-1", got.RefreshToken)
	assert.Equal(t, "Bearer", got.TokenType)
	assert.Equal(t, "repo", got.Scope)
	assert.False(t, got.UpdatedAt.IsZero())

	// Upsert on the same pair overwrites.
	cred.AccessToken = "access-2"
	require.NoError(t, store.Upsert(ctx, cred))
	got, err = store.Get(ctx, "user-1", "github")
	require.NoError(t, err)
	assert.Equal(t, "access-2", got.AccessToken)

	// The same provider for a different user is an independent row.
	require.NoError(t, store.Upsert(ctx, &Credential{
		UserID:      "user-2",
		Provider:    "github",
		AccessToken: "other",
	}))
	got, err = store.Get(ctx, "user-1", "github")
	require.NoError(t, err)
	assert.Equal(t, "access-2", got.AccessToken)

	// Delete is idempotent.
	require.NoError(t, store.Delete(ctx, "user-1", "github"))
	_, err = store.Get(ctx, "user-1", "github")
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, store.Delete(ctx, "user-1", "github"))

	// Invalid credentials are rejected before hitting storage.
	assert.Error(t, store.Upsert(ctx, &Credential{UserID: "user-1"}))
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	storeConformance(t, store)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, &Credential{
		UserID:      "user-1",
		Provider:    "github",
		AccessToken: "access-1",
	}))

	got, err := store.Get(ctx, "user-1", "github")
	require.NoError(t, err)
	got.AccessToken = "mutated"

	again, err := store.Get(ctx, "user-1", "github")
	require.NoError(t, err)
	assert.Equal(t, "access-1", again.AccessToken)
}

func TestSqliteStore(t *testing.T) {
	store, err := NewSqliteStore(filepath.Join(t.TempDir(), "creds.db"))
	require.NoError(t, err)
	defer store.Close()
	storeConformance(t, store)
}

func TestSqliteStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.db")
	ctx := context.Background()

	store, err := NewSqliteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Upsert(ctx, &Credential{
		UserID:      "user-1",
		Provider:    "github",
		AccessToken: "access-1",
	}))
	require.NoError(t, store.Close())

	reopened, err := NewSqliteStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(ctx, "user-1", "github")
	require.NoError(t, err)
	assert.Equal(t, "access-1", got.AccessToken)
}
