package oauth

import (
	"fmt"
	"sort"
	"strings"

	"agenthub/internal/config"
)

// Registry is the fixed mapping from provider name to descriptor. It is
// populated from configuration at process start and never mutated, so
// reads need no locking.
type Registry struct {
	providers map[string]*Provider
}

// NewRegistry builds the provider registry. Each provider's redirect URI
// is derived from the public base URL and callback path:
// <publicURL><callbackPath>/<provider>.
func NewRegistry(providers []config.ProviderConfig, publicURL, callbackPath string) *Registry {
	base := strings.TrimSuffix(publicURL, "/") + callbackPath

	r := &Registry{providers: make(map[string]*Provider, len(providers))}
	for _, pc := range providers {
		r.providers[pc.Name] = newProvider(pc, base+"/"+pc.Name)
	}
	return r
}

// Get returns the descriptor for the named provider, or ErrUnknownProvider
// when the name is not registered.
func (r *Registry) Get(name string) (*Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	return p, nil
}

// Names returns all registered provider names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
