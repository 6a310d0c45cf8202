package oauth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"agenthub/internal/credstore"
	"agenthub/pkg/logging"

	"golang.org/x/oauth2"
)

// tokenExpiryMargin is the margin used when checking credential
// expiration. It accounts for clock skew and the latency between reading
// a token and a tool server validating it.
const tokenExpiryMargin = 30 * time.Second

// Manager owns the full lifecycle of per-user, per-provider OAuth2
// credentials: authorization-URL construction, code exchange, transparent
// refresh on expiry, and revocation.
//
// Thread-safe: the registry is immutable and the store handles its own
// synchronization.
type Manager struct {
	registry *Registry
	store    credstore.Store

	mu              sync.RWMutex
	revokeListeners []func(userID string)
}

// NewManager creates a Manager over the given provider registry and
// credential store.
func NewManager(registry *Registry, store credstore.Store) *Manager {
	return &Manager{
		registry: registry,
		store:    store,
	}
}

// Registry returns the manager's provider registry.
func (m *Manager) Registry() *Registry {
	return m.registry
}

// OnRevoke registers a listener invoked after a credential is revoked.
// The tool resolver uses this to drop the user's cached tool sets.
func (m *Manager) OnRevoke(fn func(userID string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revokeListeners = append(m.revokeListeners, fn)
}

// AuthURL builds the provider authorization URL for the given user. The
// state query parameter carries "<antiForgery>:<userID>" so the callback
// can recover the user without a server-side session lookup. Offline
// access is requested and re-consent forced so a refresh token is always
// issued.
func (m *Manager) AuthURL(provider, antiForgery, userID string) (string, error) {
	p, err := m.registry.Get(provider)
	if err != nil {
		return "", err
	}

	return p.Config().AuthCodeURL(
		EncodeState(antiForgery, userID),
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	), nil
}

// Exchange performs the authorization-code grant against the provider's
// token endpoint. A non-success response yields a *TokenExchangeError
// carrying the provider's error body.
func (m *Manager) Exchange(ctx context.Context, provider, code string) (*credstore.Credential, error) {
	p, err := m.registry.Get(provider)
	if err != nil {
		return nil, err
	}

	tok, err := p.Config().Exchange(ctx, code)
	if err != nil {
		status, body := retrieveDetails(err)
		logging.Warn("OAuth", "Code exchange rejected by provider %s: status=%d body=%s", provider, status, body)
		return nil, &TokenExchangeError{Provider: provider, StatusCode: status, Body: body, Err: err}
	}

	logging.Debug("OAuth", "Exchanged authorization code for provider %s (expires %v)", provider, tok.Expiry)
	return credentialFromToken(provider, tok), nil
}

// Refresh performs the refresh-token grant. When the provider omits a new
// refresh token from its response, the previous one is retained (refresh
// tokens are not guaranteed to rotate).
func (m *Manager) Refresh(ctx context.Context, provider, refreshToken string) (*credstore.Credential, error) {
	p, err := m.registry.Get(provider)
	if err != nil {
		return nil, err
	}

	tok, err := p.Config().TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		status, body := retrieveDetails(err)
		logging.Warn("OAuth", "Token refresh rejected by provider %s: status=%d body=%s", provider, status, body)
		return nil, &TokenRefreshError{Provider: provider, StatusCode: status, Body: body, Err: err}
	}

	cred := credentialFromToken(provider, tok)
	if cred.RefreshToken == "" {
		cred.RefreshToken = refreshToken
	}

	logging.Debug("OAuth", "Refreshed token for provider %s (expires %v)", provider, tok.Expiry)
	return cred, nil
}

// Save persists a credential for the user via upsert on (user, provider).
func (m *Manager) Save(ctx context.Context, userID string, cred *credstore.Credential) error {
	cred.UserID = userID
	return m.store.Upsert(ctx, cred)
}

// Get returns the user's credential for the provider, transparently
// refreshing and re-persisting it when expired.
//
// A nil credential with a nil error means "not connected": the pair has no
// stored row, the row is permanently stale (expired with no refresh
// token), or the refresh attempt failed. Refresh failures are deliberately
// not surfaced; the previous row is left in place.
func (m *Manager) Get(ctx context.Context, userID, provider string) (*credstore.Credential, error) {
	cred, err := m.store.Get(ctx, userID, provider)
	if errors.Is(err, credstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load credential: %w", err)
	}

	if !cred.IsExpired(tokenExpiryMargin) {
		return cred, nil
	}

	if cred.RefreshToken == "" {
		logging.Debug("OAuth", "Credential for user=%s provider=%s expired with no refresh token",
			logging.TruncateUserID(userID), provider)
		return nil, nil
	}

	refreshed, err := m.Refresh(ctx, provider, cred.RefreshToken)
	if err != nil {
		logging.Warn("OAuth", "Transparent refresh failed for user=%s provider=%s: %v",
			logging.TruncateUserID(userID), provider, err)
		return nil, nil
	}

	if err := m.Save(ctx, userID, refreshed); err != nil {
		logging.Error("OAuth", err, "Failed to persist refreshed credential for user=%s provider=%s",
			logging.TruncateUserID(userID), provider)
		return nil, nil
	}

	return refreshed, nil
}

// HasValidToken reports whether the user has a usable credential for the
// provider, refreshing it if necessary.
func (m *Manager) HasValidToken(ctx context.Context, userID, provider string) bool {
	cred, err := m.Get(ctx, userID, provider)
	return err == nil && cred != nil
}

// Revoke deletes the user's stored credential for the provider and
// notifies revoke listeners. Revoking a non-existent credential is not an
// error.
func (m *Manager) Revoke(ctx context.Context, userID, provider string) error {
	if _, err := m.registry.Get(provider); err != nil {
		return err
	}

	if err := m.store.Delete(ctx, userID, provider); err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}

	m.mu.RLock()
	listeners := m.revokeListeners
	m.mu.RUnlock()
	for _, fn := range listeners {
		fn(userID)
	}

	logging.Info("OAuth", "Revoked credential for user=%s provider=%s",
		logging.TruncateUserID(userID), provider)
	return nil
}

// credentialFromToken converts an oauth2 token response to a credential
// row. A zero Expiry means the token is treated as non-expiring.
func credentialFromToken(provider string, tok *oauth2.Token) *credstore.Credential {
	cred := &credstore.Credential{
		Provider:     provider,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		ExpiresAt:    tok.Expiry,
	}
	if cred.TokenType == "" {
		cred.TokenType = "Bearer"
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		cred.Scope = scope
	}
	return cred
}

// retrieveDetails extracts the HTTP status and raw error body from an
// oauth2 retrieval failure, for logging and error reporting.
func retrieveDetails(err error) (status int, body string) {
	var rErr *oauth2.RetrieveError
	if errors.As(err, &rErr) {
		if rErr.Response != nil {
			status = rErr.Response.StatusCode
		}
		return status, string(rErr.Body)
	}
	return 0, err.Error()
}
