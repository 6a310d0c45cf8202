package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"agenthub/internal/config"
	"agenthub/internal/oauth"
	"agenthub/internal/tools"
	"agenthub/pkg/logging"
)

// shutdownTimeout bounds graceful shutdown of in-flight requests.
const shutdownTimeout = 10 * time.Second

// Server exposes the OAuth flow and the tool resolution boundary over
// HTTP. Identity arrives in the X-AgentHub-User header, injected by the
// hosted platform in front of this service.
type Server struct {
	cfg      config.ServerConfig
	oauthMgr *oauth.Manager
	handler  *oauth.Handler
	resolver *tools.Resolver

	httpServer *http.Server
}

// New wires the HTTP API over the given components.
func New(cfg config.ServerConfig, oauthMgr *oauth.Manager, resolver *tools.Resolver) *Server {
	s := &Server{
		cfg:      cfg,
		oauthMgr: oauthMgr,
		handler:  oauth.NewHandler(oauthMgr, cfg.SettingsURL),
		resolver: resolver,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /oauth/connect/{provider}", s.handler.HandleConnect)
	mux.HandleFunc("GET "+cfg.CallbackPath+"/{provider}", s.handler.HandleCallback)
	mux.HandleFunc("GET /api/integrations", s.handleIntegrations)
	mux.HandleFunc("POST /api/integrations/{provider}/revoke", s.handleRevoke)
	mux.HandleFunc("POST /api/tools/resolve", s.handleResolve)
	mux.HandleFunc("POST /api/tools/call", s.handleCall)

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler: mux,
	}
	return s
}

// Run starts the server and blocks until the context is cancelled, then
// shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logging.Info("Server", "Listening on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	logging.Info("Server", "Shutting down")
	return s.httpServer.Shutdown(shutdownCtx)
}

// Handler returns the server's HTTP handler, used by tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// integrationStatus is one row of the settings page listing.
type integrationStatus struct {
	Provider  string `json:"provider"`
	Connected bool   `json:"connected"`
}

func (s *Server) handleIntegrations(w http.ResponseWriter, r *http.Request) {
	userID := oauth.SessionUser(r)
	if userID == "" {
		http.Error(w, "missing user identity", http.StatusUnauthorized)
		return
	}

	var statuses []integrationStatus
	for _, name := range s.oauthMgr.Registry().Names() {
		statuses = append(statuses, integrationStatus{
			Provider:  name,
			Connected: s.oauthMgr.HasValidToken(r.Context(), userID, name),
		})
	}
	writeJSON(w, http.StatusOK, statuses)
}

func (s *Server) handleRevoke(w http.ResponseWriter, r *http.Request) {
	userID := oauth.SessionUser(r)
	if userID == "" {
		http.Error(w, "missing user identity", http.StatusUnauthorized)
		return
	}

	provider := r.PathValue("provider")
	if err := s.oauthMgr.Revoke(r.Context(), userID, provider); err != nil {
		if errors.Is(err, oauth.ErrUnknownProvider) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		logging.Error("Server", err, "Revoke failed for provider %s", provider)
		http.Error(w, "revoke failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// resolveRequest is the body of POST /api/tools/resolve.
type resolveRequest struct {
	Servers []string `json:"servers"`
	User    string   `json:"user,omitempty"`
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	userID := oauth.SessionUser(r)
	if userID == "" {
		userID = req.User
	}
	if userID == "" {
		http.Error(w, "missing user identity", http.StatusUnauthorized)
		return
	}

	// Resolution never fails; total failure is an empty list.
	resolved := s.resolver.Resolve(r.Context(), req.Servers, userID)
	writeJSON(w, http.StatusOK, resolved)
}

// callRequest is the body of POST /api/tools/call.
type callRequest struct {
	Servers   []string               `json:"servers"`
	User      string                 `json:"user,omitempty"`
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments,omitempty"`
}

func (s *Server) handleCall(w http.ResponseWriter, r *http.Request) {
	var req callRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	userID := oauth.SessionUser(r)
	if userID == "" {
		userID = req.User
	}
	if userID == "" {
		http.Error(w, "missing user identity", http.StatusUnauthorized)
		return
	}

	result, err := s.resolver.CallTool(r.Context(), req.Servers, userID, req.Name, req.Arguments)
	if err != nil {
		logging.Warn("Server", "Tool call %s failed: %v", req.Name, err)
		if errors.Is(err, tools.ErrMalformedToolName) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("Server", err, "Failed to encode response")
	}
}
