// Package config provides configuration management for agenthub.
//
// Configuration is loaded from a single YAML file describing the HTTP
// server, the credential store backend, the OAuth providers users can
// connect, and the MCP tool servers agents can enable. The loaded Config
// is validated once at startup and treated as immutable afterwards.
//
// # Secrets
//
// Provider client secrets may be given inline or, preferably, via an
// environment variable named by the clientSecretEnv field. The
// environment value takes precedence when both are set.
//
// # OAuth header placeholders
//
// A tool server header value of the form "OAUTH:<provider>" declares that
// the server requires a bearer token for that provider. The placeholder
// is substituted with the user's live token at tool resolution time.
// Validation rejects placeholders that reference providers not declared
// in the same file.
package config
