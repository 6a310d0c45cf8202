package oauth

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"agenthub/internal/config"
	"agenthub/internal/credstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tokenEndpoint fakes a provider token endpoint. Every hit increments the
// counter; the handler decides the response.
func tokenEndpoint(hits *atomic.Int32, handler http.HandlerFunc) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		handler(w, r)
	}))
}

func tokenResponse(accessToken, refreshToken string, expiresIn int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		body := fmt.Sprintf(`{"access_token":%q,"token_type":"Bearer","expires_in":%d`, accessToken, expiresIn)
		if refreshToken != "" {
			body += fmt.Sprintf(`,"refresh_token":%q`, refreshToken)
		}
		body += `,"scope":"repo"}`
		fmt.Fprint(w, body)
	}
}

func newTestManager(t *testing.T, tokenURL string) (*Manager, *credstore.MemoryStore) {
	t.Helper()
	registry := NewRegistry([]config.ProviderConfig{{
		Name:         "github",
		AuthURL:      "https://github.example.com/authorize",
		TokenURL:     tokenURL,
		Scopes:       []string{"repo"},
		ClientID:     "client-id",
		ClientSecret: "client-secret",
	}}, "http://localhost:8080", "/oauth/callback")

	store := credstore.NewMemoryStore()
	return NewManager(registry, store), store
}

func TestStateRoundTrip(t *testing.T) {
	antiForgery, userID, err := DecodeState(EncodeState("abc", "user-1"))
	require.NoError(t, err)
	assert.Equal(t, "abc", antiForgery)
	assert.Equal(t, "user-1", userID)

	// User identifiers containing ':' survive because the split is on the
	// first separator only.
	antiForgery, userID, err = DecodeState(EncodeState("nonce", "org:team:42"))
	require.NoError(t, err)
	assert.Equal(t, "nonce", antiForgery)
	assert.Equal(t, "org:team:42", userID)
}

func TestDecodeStateMalformed(t *testing.T) {
	for _, state := range []string{"", "no-separator", ":user", "nonce:"} {
		_, _, err := DecodeState(state)
		assert.Error(t, err, "state %q should be rejected", state)
	}
}

func TestAuthURL(t *testing.T) {
	mgr, _ := newTestManager(t, "https://github.example.com/token")

	authURL, err := mgr.AuthURL("github", "nonce-1", "user-1")
	require.NoError(t, err)

	parsed, err := url.Parse(authURL)
	require.NoError(t, err)
	q := parsed.Query()
	assert.Equal(t, "nonce-1:user-1", q.Get("state"))
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "consent", q.Get("prompt"))
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "http://localhost:8080/oauth/callback/github", q.Get("redirect_uri"))
}

func TestAuthURLUnknownProvider(t *testing.T) {
	mgr, _ := newTestManager(t, "https://github.example.com/token")

	_, err := mgr.AuthURL("gitlab", "nonce", "user-1")
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestExchange(t *testing.T) {
	var hits atomic.Int32
	srv := tokenEndpoint(&hits, tokenResponse("access-1", "refresh-1", 3600))
	defer srv.Close()

	mgr, _ := newTestManager(t, srv.URL)

	cred, err := mgr.Exchange(context.Background(), "github", "auth-code")
	require.NoError(t, err)
	assert.Equal(t, "github", cred.Provider)
	assert.Equal(t, "access-1", cred.AccessToken)
	assert.Equal(t, "refresh-1", cred.RefreshToken)
	assert.Equal(t, "Bearer", cred.TokenType)
	assert.Equal(t, "repo", cred.Scope)
	assert.False(t, cred.ExpiresAt.IsZero())
	assert.Equal(t, int32(1), hits.Load())
}

func TestExchangeProviderRejection(t *testing.T) {
	var hits atomic.Int32
	srv := tokenEndpoint(&hits, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":"invalid_grant"}`)
	})
	defer srv.Close()

	mgr, _ := newTestManager(t, srv.URL)

	_, err := mgr.Exchange(context.Background(), "github", "bad-code")
	require.Error(t, err)

	var exchangeErr *TokenExchangeError
	require.ErrorAs(t, err, &exchangeErr)
	assert.Equal(t, "github", exchangeErr.Provider)
	assert.Equal(t, http.StatusBadRequest, exchangeErr.StatusCode)
	assert.Contains(t, exchangeErr.Body, "invalid_grant")

	// A rejection is final; the fixed auth style prevents a second attempt
	// with alternate client authentication.
	assert.Equal(t, int32(1), hits.Load())
}

func TestGetNotConnected(t *testing.T) {
	mgr, _ := newTestManager(t, "https://github.example.com/token")

	cred, err := mgr.Get(context.Background(), "user-1", "github")
	require.NoError(t, err)
	assert.Nil(t, cred)
}

func TestGetFreshCredential(t *testing.T) {
	var hits atomic.Int32
	srv := tokenEndpoint(&hits, tokenResponse("unused", "", 3600))
	defer srv.Close()

	mgr, store := newTestManager(t, srv.URL)
	require.NoError(t, store.Upsert(context.Background(), &credstore.Credential{
		UserID:      "user-1",
		Provider:    "github",
		AccessToken: "live-token",
		ExpiresAt:   time.Now().Add(time.Hour),
	}))

	cred, err := mgr.Get(context.Background(), "user-1", "github")
	require.NoError(t, err)
	require.NotNil(t, cred)
	assert.Equal(t, "live-token", cred.AccessToken)
	assert.Equal(t, int32(0), hits.Load(), "a fresh credential must not hit the token endpoint")
}

func TestGetTransparentRefresh(t *testing.T) {
	var hits atomic.Int32
	srv := tokenEndpoint(&hits, tokenResponse("access-2", "refresh-2", 3600))
	defer srv.Close()

	mgr, store := newTestManager(t, srv.URL)
	require.NoError(t, store.Upsert(context.Background(), &credstore.Credential{
		UserID:       "user-1",
		Provider:     "github",
		AccessToken:  "stale-token",
		RefreshToken: "refresh-1",
		ExpiresAt:    time.Now().Add(-time.Hour),
	}))

	cred, err := mgr.Get(context.Background(), "user-1", "github")
	require.NoError(t, err)
	require.NotNil(t, cred)
	assert.Equal(t, "access-2", cred.AccessToken)
	assert.Equal(t, "refresh-2", cred.RefreshToken)
	assert.Equal(t, int32(1), hits.Load())

	// The refreshed credential replaced the stale row.
	stored, err := store.Get(context.Background(), "user-1", "github")
	require.NoError(t, err)
	assert.Equal(t, "access-2", stored.AccessToken)
}

func TestGetRefreshRetainsPreviousRefreshToken(t *testing.T) {
	var hits atomic.Int32
	srv := tokenEndpoint(&hits, tokenResponse("access-2", "", 3600))
	defer srv.Close()

	mgr, store := newTestManager(t, srv.URL)
	require.NoError(t, store.Upsert(context.Background(), &credstore.Credential{
		UserID:       "user-1",
		Provider:     "github",
		AccessToken:  "stale-token",
		RefreshToken: "refresh-1",
		ExpiresAt:    time.Now().Add(-time.Hour),
	}))

	cred, err := mgr.Get(context.Background(), "user-1", "github")
	require.NoError(t, err)
	require.NotNil(t, cred)
	assert.Equal(t, "refresh-1", cred.RefreshToken,
		"a response without a refresh token keeps the previous one")
}

func TestGetExpiredWithoutRefreshToken(t *testing.T) {
	var hits atomic.Int32
	srv := tokenEndpoint(&hits, tokenResponse("unused", "", 3600))
	defer srv.Close()

	mgr, store := newTestManager(t, srv.URL)
	require.NoError(t, store.Upsert(context.Background(), &credstore.Credential{
		UserID:      "user-1",
		Provider:    "github",
		AccessToken: "stale-token",
		ExpiresAt:   time.Now().Add(-time.Hour),
	}))

	cred, err := mgr.Get(context.Background(), "user-1", "github")
	require.NoError(t, err)
	assert.Nil(t, cred, "permanently stale credentials read as not connected")
	assert.Equal(t, int32(0), hits.Load(), "nothing to refresh with, so no endpoint call")
}

func TestGetRefreshFailureLeavesStoreUntouched(t *testing.T) {
	var hits atomic.Int32
	srv := tokenEndpoint(&hits, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":"invalid_grant"}`)
	})
	defer srv.Close()

	mgr, store := newTestManager(t, srv.URL)
	require.NoError(t, store.Upsert(context.Background(), &credstore.Credential{
		UserID:       "user-1",
		Provider:     "github",
		AccessToken:  "stale-token",
		RefreshToken: "revoked-refresh",
		ExpiresAt:    time.Now().Add(-time.Hour),
	}))

	cred, err := mgr.Get(context.Background(), "user-1", "github")
	require.NoError(t, err, "refresh failures are not surfaced to callers")
	assert.Nil(t, cred)
	assert.Equal(t, int32(1), hits.Load())

	// The stale row survives so the failure can be inspected and the user
	// re-prompted to connect.
	stored, err := store.Get(context.Background(), "user-1", "github")
	require.NoError(t, err)
	assert.Equal(t, "stale-token", stored.AccessToken)
}

func TestRevokeIsIdempotent(t *testing.T) {
	mgr, store := newTestManager(t, "https://github.example.com/token")
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, &credstore.Credential{
		UserID:      "user-1",
		Provider:    "github",
		AccessToken: "token",
	}))

	require.NoError(t, mgr.Revoke(ctx, "user-1", "github"))
	_, err := store.Get(ctx, "user-1", "github")
	assert.ErrorIs(t, err, credstore.ErrNotFound)

	// Second revoke of the same pair succeeds as well.
	require.NoError(t, mgr.Revoke(ctx, "user-1", "github"))
}

func TestRevokeUnknownProvider(t *testing.T) {
	mgr, _ := newTestManager(t, "https://github.example.com/token")

	err := mgr.Revoke(context.Background(), "user-1", "gitlab")
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestRevokeNotifiesListeners(t *testing.T) {
	mgr, _ := newTestManager(t, "https://github.example.com/token")

	var notified []string
	mgr.OnRevoke(func(userID string) {
		notified = append(notified, userID)
	})

	require.NoError(t, mgr.Revoke(context.Background(), "user-1", "github"))
	assert.Equal(t, []string{"user-1"}, notified)
}

func TestHasValidToken(t *testing.T) {
	mgr, store := newTestManager(t, "https://github.example.com/token")
	ctx := context.Background()

	assert.False(t, mgr.HasValidToken(ctx, "user-1", "github"))

	require.NoError(t, store.Upsert(ctx, &credstore.Credential{
		UserID:      "user-1",
		Provider:    "github",
		AccessToken: "token",
		ExpiresAt:   time.Now().Add(time.Hour),
	}))
	assert.True(t, mgr.HasValidToken(ctx, "user-1", "github"))
}
