package oauth

import (
	"errors"
	"net/http"
	"net/url"

	"agenthub/pkg/logging"

	"github.com/google/uuid"
)

// Handler serves the OAuth connect and callback endpoints.
//
// Failures at the callback boundary never surface as HTTP errors to the
// browser; every outcome redirects to the settings page, failures with a
// machine-readable reason code in the query.
type Handler struct {
	manager     *Manager
	settingsURL string
}

// Reason codes appended to the settings-page redirect on callback failure.
const (
	ReasonProviderDenied  = "provider_denied"
	ReasonInvalidState    = "invalid_state"
	ReasonUserMismatch    = "user_mismatch"
	ReasonUnknownProvider = "unknown_provider"
	ReasonExchangeFailed  = "exchange_failed"
	ReasonStorageFailed   = "storage_failed"
)

// NewHandler creates an OAuth HTTP handler redirecting to settingsURL
// after every callback.
func NewHandler(manager *Manager, settingsURL string) *Handler {
	return &Handler{
		manager:     manager,
		settingsURL: settingsURL,
	}
}

// SessionUser extracts the calling session's user identity from the
// request. The hosted platform injects the header for proxied requests;
// the query parameter covers direct browser navigation in development.
func SessionUser(r *http.Request) string {
	if user := r.Header.Get("X-AgentHub-User"); user != "" {
		return user
	}
	return r.URL.Query().Get("user")
}

// HandleConnect starts the OAuth flow for the provider in the request
// path: it generates a fresh anti-forgery token and redirects the browser
// to the provider's authorization endpoint.
func (h *Handler) HandleConnect(w http.ResponseWriter, r *http.Request) {
	provider := r.PathValue("provider")

	userID := SessionUser(r)
	if userID == "" {
		http.Error(w, "missing user identity", http.StatusUnauthorized)
		return
	}

	authURL, err := h.manager.AuthURL(provider, uuid.NewString(), userID)
	if err != nil {
		if errors.Is(err, ErrUnknownProvider) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, "failed to build authorization URL", http.StatusInternalServerError)
		return
	}

	logging.Info("OAuth", "Starting OAuth flow for user=%s provider=%s",
		logging.TruncateUserID(userID), provider)
	http.Redirect(w, r, authURL, http.StatusFound)
}

// HandleCallback processes the provider redirect: it recovers the user
// from the state parameter, verifies it against the calling session,
// exchanges the code, and persists the credential.
func (h *Handler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	provider := r.PathValue("provider")
	query := r.URL.Query()

	if errParam := query.Get("error"); errParam != "" {
		logging.Warn("OAuth", "Callback for provider %s carried error: %s - %s",
			provider, errParam, query.Get("error_description"))
		h.redirectWithReason(w, r, ReasonProviderDenied)
		return
	}

	code := query.Get("code")
	state := query.Get("state")
	if code == "" || state == "" {
		logging.Warn("OAuth", "Callback for provider %s missing code or state", provider)
		h.redirectWithReason(w, r, ReasonInvalidState)
		return
	}

	_, userID, err := DecodeState(state)
	if err != nil {
		logging.Warn("OAuth", "Callback for provider %s carried malformed state", provider)
		h.redirectWithReason(w, r, ReasonInvalidState)
		return
	}

	// The state-encoded user must match the calling session.
	if sessionUser := SessionUser(r); sessionUser != userID {
		logging.Warn("OAuth", "Callback user mismatch for provider %s: state=%s session=%s",
			provider, logging.TruncateUserID(userID), logging.TruncateUserID(sessionUser))
		h.redirectWithReason(w, r, ReasonUserMismatch)
		return
	}

	cred, err := h.manager.Exchange(r.Context(), provider, code)
	if err != nil {
		if errors.Is(err, ErrUnknownProvider) {
			h.redirectWithReason(w, r, ReasonUnknownProvider)
			return
		}
		logging.Error("OAuth", err, "Code exchange failed for user=%s provider=%s",
			logging.TruncateUserID(userID), provider)
		h.redirectWithReason(w, r, ReasonExchangeFailed)
		return
	}

	if err := h.manager.Save(r.Context(), userID, cred); err != nil {
		logging.Error("OAuth", err, "Failed to persist credential for user=%s provider=%s",
			logging.TruncateUserID(userID), provider)
		h.redirectWithReason(w, r, ReasonStorageFailed)
		return
	}

	logging.Info("OAuth", "Connected user=%s to provider=%s",
		logging.TruncateUserID(userID), provider)

	http.Redirect(w, r, h.settingsURL+"?connected="+url.QueryEscape(provider), http.StatusFound)
}

func (h *Handler) redirectWithReason(w http.ResponseWriter, r *http.Request, reason string) {
	http.Redirect(w, r, h.settingsURL+"?reason="+url.QueryEscape(reason), http.StatusFound)
}
