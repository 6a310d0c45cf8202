// Package oauth implements the OAuth 2.0 credential lifecycle for agenthub.
//
// This package owns every step of a user's connection to a third-party
// provider: building the authorization URL, handling the provider's
// browser redirect, exchanging the authorization code, refreshing expired
// tokens transparently, and revoking stored credentials.
//
// # Flow
//
//  1. The user clicks "Connect" on the settings page, which hits the
//     connect endpoint for a provider
//  2. The Handler generates an anti-forgery nonce, packs it together with
//     the user identity into the state parameter, and redirects the
//     browser to the provider's authorization endpoint
//  3. The provider redirects back to the per-provider callback URL with
//     an authorization code
//  4. The Handler recovers the user from the state, verifies it against
//     the calling session, and has the Manager exchange the code
//  5. The resulting credential is upserted into the credential store,
//     keyed by (user, provider)
//
// # Components
//
//   - Registry: immutable mapping from provider name to oauth2 endpoint
//     configuration, built once from the config file at startup
//   - Manager: token lifecycle operations (exchange, transparent refresh,
//     revoke) over the credential store
//   - Handler: HTTP handlers for the connect and callback endpoints
//
// # Transparent refresh
//
// Manager.Get is the single read path for credentials. When a stored
// token is expired (or inside a 30 second expiry margin) and a refresh
// token exists, Get refreshes and re-persists it before returning. A pair
// that cannot produce a usable token reads as "not connected" (nil
// credential, nil error); refresh failures never propagate as errors and
// never modify the stored row.
//
// # Callback failure handling
//
// The callback endpoint faces the user's browser, so failures never
// surface as HTTP error pages. Every outcome is a redirect to the
// settings page; failures carry a machine-readable reason code
// (provider_denied, invalid_state, user_mismatch, unknown_provider,
// exchange_failed, storage_failed) in the query string.
package oauth
