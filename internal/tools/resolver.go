package tools

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"agenthub/internal/config"
	"agenthub/internal/mcpclient"
	"agenthub/internal/oauth"
	"agenthub/pkg/logging"

	"github.com/mark3labs/mcp-go/mcp"
	"golang.org/x/sync/singleflight"
)

// clientFactory builds a transport client for a tool server definition
// with its headers already substituted. Swapped for a fake in tests.
type clientFactory func(def config.ToolServerConfig, headers map[string]string) mcpclient.Client

// Resolver converts a declarative list of enabled tool server identifiers
// plus a user identity into a ready-to-bind list of namespaced,
// authenticated tools.
//
// Failure isolation: a single server that is unknown, unreachable, or
// unauthorized reduces the result; it never fails the resolution. The
// worst case outcome of Resolve is an empty list.
type Resolver struct {
	registry *Registry
	oauth    *oauth.Manager
	cache    *Cache
	factory  clientFactory

	// group deduplicates concurrent cold-cache resolutions per key.
	group singleflight.Group
}

// NewResolver creates a Resolver using the real MCP transports. The
// resolver registers itself with the OAuth manager so a credential
// revocation drops the user's cached tool sets.
func NewResolver(registry *Registry, oauthManager *oauth.Manager, cache *Cache) *Resolver {
	r := &Resolver{
		registry: registry,
		oauth:    oauthManager,
		cache:    cache,
		factory:  newTransportClient,
	}
	oauthManager.OnRevoke(cache.InvalidateUser)
	return r
}

// newTransportClient builds the real client for a definition.
func newTransportClient(def config.ToolServerConfig, headers map[string]string) mcpclient.Client {
	if def.Transport == config.TransportStdio {
		return mcpclient.NewStdioClient(def.Command, def.Args, def.Env)
	}
	return mcpclient.NewStreamableHTTPClient(def.URL, headers)
}

// Resolve returns the namespaced tool list for the enabled servers and
// user. It never returns an error: unknown identifiers are skipped,
// per-server connection failures are isolated, and the result of total
// failure is an empty list.
//
// Results are memoized per (sorted server set, user); a cache hit makes
// no remote calls. Concurrent cold-cache requests for the same key are
// collapsed into one fan-out.
func (r *Resolver) Resolve(ctx context.Context, enabled []string, userID string) []ResolvedTool {
	key := CacheKey(enabled, userID)

	if entry := r.cache.get(key); entry != nil {
		logging.Debug("ToolResolver", "Cache hit for key=%s (%d tools)", key, len(entry.tools))
		return entry.tools
	}

	result, _, _ := r.group.Do(key, func() (interface{}, error) {
		// Re-check after winning the flight; a racing resolution may have
		// already stored the entry.
		if entry := r.cache.get(key); entry != nil {
			return entry.tools, nil
		}

		tools, clients := r.resolveAll(ctx, enabled, userID)
		r.cache.put(key, tools, clients)
		return tools, nil
	})

	tools, ok := result.([]ResolvedTool)
	if !ok {
		return []ResolvedTool{}
	}
	return tools
}

// CallTool routes a namespaced tool call back to the owning server's live
// client, resolving first if this turn has no cached entry yet.
func (r *Resolver) CallTool(ctx context.Context, enabled []string, userID, exposedName string, args map[string]interface{}) (*mcp.CallToolResult, error) {
	server, original, err := SplitExposedName(exposedName)
	if err != nil {
		return nil, err
	}

	r.Resolve(ctx, enabled, userID)

	entry := r.cache.get(CacheKey(enabled, userID))
	if entry == nil {
		return nil, fmt.Errorf("no resolved tools for user %s", logging.TruncateUserID(userID))
	}

	client, ok := entry.clients[server]
	if !ok {
		return nil, fmt.Errorf("tool server %s is not connected", server)
	}

	return client.CallTool(ctx, original, args)
}

// serverResult carries the outcome of one server's fan-out attempt.
type serverResult struct {
	def    config.ToolServerConfig
	client mcpclient.Client
	tools  []mcp.Tool
	err    error
}

// resolveAll performs the cold-cache fan-out: every enabled server is
// connected concurrently with independent failure capture, then the
// successes are joined into one namespaced tool list. Total latency is
// bounded by the slowest successful server, not the sum of all attempts.
func (r *Resolver) resolveAll(ctx context.Context, enabled []string, userID string) ([]ResolvedTool, map[string]mcpclient.Client) {
	var defs []config.ToolServerConfig
	seen := make(map[string]bool, len(enabled))
	for _, id := range enabled {
		if seen[id] {
			continue
		}
		seen[id] = true

		def, ok := r.registry.Get(id)
		if !ok {
			logging.Warn("ToolResolver", "%v: %q, skipping", ErrUnknownToolServer, id)
			continue
		}
		defs = append(defs, def)
	}

	results := make([]serverResult, len(defs))
	var wg sync.WaitGroup
	for i, def := range defs {
		wg.Add(1)
		go func(i int, def config.ToolServerConfig) {
			defer wg.Done()
			client, tools, err := r.connect(ctx, def, userID)
			results[i] = serverResult{def: def, client: client, tools: tools, err: err}
		}(i, def)
	}
	wg.Wait()

	resolved := []ResolvedTool{}
	clients := make(map[string]mcpclient.Client)
	for _, res := range results {
		if res.err != nil {
			logging.Warn("ToolResolver", "Tool server %s unavailable, degrading without it: %v",
				res.def.Name, res.err)
			continue
		}

		clients[res.def.Name] = res.client
		for _, tool := range res.tools {
			resolved = append(resolved, ResolvedTool{
				Name:         ExposedName(res.def.Name, tool.Name),
				OriginalName: tool.Name,
				Server:       res.def.Name,
				Description:  tool.Description,
				InputSchema:  tool.InputSchema,
			})
		}
	}

	logging.Info("ToolResolver", "Resolved %d tools from %d/%d servers for user=%s",
		len(resolved), len(clients), len(defs), logging.TruncateUserID(userID))
	return resolved, clients
}

// connect opens one server connection and lists its tools. The client is
// closed on any failure so a half-connected server leaks nothing.
func (r *Resolver) connect(ctx context.Context, def config.ToolServerConfig, userID string) (mcpclient.Client, []mcp.Tool, error) {
	client := r.factory(def, r.buildHeaders(ctx, def, userID))

	if err := client.Initialize(ctx); err != nil {
		return nil, nil, fmt.Errorf("connection failed: %w", err)
	}

	tools, err := client.ListTools(ctx)
	if err != nil {
		if closeErr := client.Close(); closeErr != nil {
			logging.Debug("ToolResolver", "Error closing client for %s: %v", def.Name, closeErr)
		}
		return nil, nil, fmt.Errorf("tool listing failed: %w", err)
	}

	return client, tools, nil
}

// buildHeaders copies the definition's headers, replacing each
// "OAUTH:<provider>" placeholder with a bearer token for the user. When
// the user has no live credential the placeholder is left unresolved; the
// server will then reject the connection, which surfaces as that server's
// isolated failure.
func (r *Resolver) buildHeaders(ctx context.Context, def config.ToolServerConfig, userID string) map[string]string {
	if len(def.Headers) == 0 {
		return nil
	}

	headers := make(map[string]string, len(def.Headers))
	for k, v := range def.Headers {
		if !strings.HasPrefix(v, config.OAuthHeaderPrefix) {
			headers[k] = v
			continue
		}

		provider := strings.TrimPrefix(v, config.OAuthHeaderPrefix)
		cred, err := r.oauth.Get(ctx, userID, provider)
		if err != nil || cred == nil {
			logging.Warn("ToolResolver", "No %s credential for user=%s, leaving %s header unresolved",
				provider, logging.TruncateUserID(userID), def.Name)
			headers[k] = v
			continue
		}
		headers[k] = "Bearer " + cred.AccessToken
	}
	return headers
}
