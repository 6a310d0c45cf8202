package tools

import (
	"fmt"
	"sort"
	"strings"

	"agenthub/internal/config"

	"github.com/mark3labs/mcp-go/mcp"
)

// NameSeparator joins a tool server identifier with a tool's original
// name to form the exposed, collision-free tool name.
const NameSeparator = "__"

// ErrUnknownToolServer is logged when a requested identifier is not in
// the registry; resolution continues for the remaining identifiers.
var ErrUnknownToolServer = fmt.Errorf("unknown tool server")

// ErrMalformedToolName is returned when an exposed tool name does not
// carry the "<server>__<tool>" shape. It is a caller error.
var ErrMalformedToolName = fmt.Errorf("malformed tool name")

// ResolvedTool is a tool server's tool, namespaced and ready to bind to a
// language model for one agent turn. Its lifetime is bounded by the cache
// entry that produced it.
type ResolvedTool struct {
	// Name is the exposed, server-prefixed tool name
	// ("<server>__<original>").
	Name string `json:"name"`
	// OriginalName is the tool's name on its own server.
	OriginalName string `json:"original_name"`
	// Server is the identifier of the owning tool server.
	Server string `json:"server"`

	Description string              `json:"description,omitempty"`
	InputSchema mcp.ToolInputSchema `json:"input_schema"`
}

// ExposedName builds the server-prefixed name for a tool.
func ExposedName(server, original string) string {
	return server + NameSeparator + original
}

// SplitExposedName resolves an exposed name back to its server identifier
// and original tool name.
func SplitExposedName(exposed string) (server, original string, err error) {
	server, original, found := strings.Cut(exposed, NameSeparator)
	if !found || server == "" || original == "" {
		return "", "", fmt.Errorf("%w: %q", ErrMalformedToolName, exposed)
	}
	return server, original, nil
}

// Registry is the fixed mapping from tool server identifier to its
// definition, populated from configuration at process start and immutable
// afterwards.
type Registry struct {
	servers map[string]config.ToolServerConfig
}

// NewRegistry builds the tool server registry.
func NewRegistry(servers []config.ToolServerConfig) *Registry {
	r := &Registry{servers: make(map[string]config.ToolServerConfig, len(servers))}
	for _, s := range servers {
		r.servers[s.Name] = s
	}
	return r
}

// Get returns the definition for the named server and whether it exists.
func (r *Registry) Get(name string) (config.ToolServerConfig, bool) {
	s, ok := r.servers[name]
	return s, ok
}

// Names returns all registered server identifiers in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.servers))
	for name := range r.servers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
