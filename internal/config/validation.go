package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a single configuration problem with context.
type ValidationError struct {
	Field   string
	Message string
}

func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}
	messages := make([]string, 0, len(ve))
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// HasErrors returns true if there are any validation errors.
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

func (ve *ValidationErrors) add(field, message string) {
	*ve = append(*ve, ValidationError{Field: field, Message: message})
}

// Validate checks the configuration for internal consistency: unique
// names, complete provider descriptors, valid transports, and OAuth header
// placeholders that reference registered providers.
func (c *Config) Validate() ValidationErrors {
	var errs ValidationErrors

	providerNames := make(map[string]bool, len(c.Providers))
	for i, p := range c.Providers {
		field := fmt.Sprintf("providers[%d]", i)
		if p.Name == "" {
			errs.add(field+".name", "provider name is required")
			continue
		}
		if providerNames[p.Name] {
			errs.add(field+".name", fmt.Sprintf("duplicate provider name %q", p.Name))
		}
		providerNames[p.Name] = true

		if p.AuthURL == "" {
			errs.add(field+".authURL", "authorize URL is required")
		}
		if p.TokenURL == "" {
			errs.add(field+".tokenURL", "token URL is required")
		}
		if p.ClientID == "" {
			errs.add(field+".clientID", "client ID is required")
		}
	}

	serverNames := make(map[string]bool, len(c.ToolServers))
	for i, s := range c.ToolServers {
		field := fmt.Sprintf("toolServers[%d]", i)
		if s.Name == "" {
			errs.add(field+".name", "tool server name is required")
			continue
		}
		if serverNames[s.Name] {
			errs.add(field+".name", fmt.Sprintf("duplicate tool server name %q", s.Name))
		}
		serverNames[s.Name] = true

		switch s.Transport {
		case TransportStdio:
			if s.Command == "" {
				errs.add(field+".command", "command is required for stdio transport")
			}
		case TransportStreamableHTTP:
			if s.URL == "" {
				errs.add(field+".url", "url is required for streamable-http transport")
			}
		default:
			errs.add(field+".transport", fmt.Sprintf("unknown transport %q", s.Transport))
		}

		if provider := s.OAuthProvider(); provider != "" && !providerNames[provider] {
			errs.add(field+".headers",
				fmt.Sprintf("OAuth placeholder references unregistered provider %q", provider))
		}
	}

	return errs
}
