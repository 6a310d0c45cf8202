package oauth

import (
	"errors"
	"fmt"
	"strings"

	"agenthub/internal/config"

	"golang.org/x/oauth2"
)

// ErrUnknownProvider is returned when a provider name is not present in
// the registry. It is a caller error, not a remote failure.
var ErrUnknownProvider = errors.New("unknown OAuth provider")

// TokenExchangeError indicates the provider rejected an authorization-code
// exchange. Body carries the provider's raw error response for logging.
type TokenExchangeError struct {
	Provider   string
	StatusCode int
	Body       string
	Err        error
}

func (e *TokenExchangeError) Error() string {
	return fmt.Sprintf("token exchange failed for provider %s (status %d)", e.Provider, e.StatusCode)
}

func (e *TokenExchangeError) Unwrap() error {
	return e.Err
}

// TokenRefreshError indicates the provider rejected a refresh-token grant.
type TokenRefreshError struct {
	Provider   string
	StatusCode int
	Body       string
	Err        error
}

func (e *TokenRefreshError) Error() string {
	return fmt.Sprintf("token refresh failed for provider %s (status %d)", e.Provider, e.StatusCode)
}

func (e *TokenRefreshError) Unwrap() error {
	return e.Err
}

// Provider is an immutable OAuth2 provider descriptor resolved from
// configuration at process start.
type Provider struct {
	Name        string
	Scopes      []string
	RedirectURI string

	oauthConfig *oauth2.Config
}

func newProvider(pc config.ProviderConfig, redirectURI string) *Provider {
	return &Provider{
		Name:        pc.Name,
		Scopes:      pc.Scopes,
		RedirectURI: redirectURI,
		oauthConfig: &oauth2.Config{
			ClientID:     pc.ClientID,
			ClientSecret: pc.ClientSecret,
			Scopes:       pc.Scopes,
			RedirectURL:  redirectURI,
			Endpoint: oauth2.Endpoint{
				AuthURL:  pc.AuthURL,
				TokenURL: pc.TokenURL,
				// Explicit style so a rejected request is not retried
				// with the alternate client-auth style.
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
	}
}

// Config returns the provider's oauth2 configuration.
func (p *Provider) Config() *oauth2.Config {
	return p.oauthConfig
}

// EncodeState packs the anti-forgery token and the user identity into one
// state parameter so the callback can recover the user without a
// server-side session lookup.
func EncodeState(antiForgery, userID string) string {
	return antiForgery + ":" + userID
}

// DecodeState splits a state parameter into its anti-forgery token and
// user identity halves. The split is on the first ':' so user identifiers
// containing ':' survive the round trip.
func DecodeState(state string) (antiForgery, userID string, err error) {
	antiForgery, userID, found := strings.Cut(state, ":")
	if !found || antiForgery == "" || userID == "" {
		return "", "", fmt.Errorf("malformed state parameter")
	}
	return antiForgery, userID, nil
}
