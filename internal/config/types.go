package config

import "strings"

// OAuthHeaderPrefix marks a tool-server header value that must be replaced
// with a bearer token for the named provider at resolution time, e.g.
// "OAUTH:google" becomes "Bearer <access token>".
const OAuthHeaderPrefix = "OAUTH:"

const (
	// TransportStdio launches the tool server as a local subprocess.
	TransportStdio = "stdio"
	// TransportStreamableHTTP connects to a remote tool server endpoint.
	TransportStreamableHTTP = "streamable-http"
)

// Config is the top-level configuration structure for agenthub.
type Config struct {
	Server      ServerConfig       `yaml:"server"`
	Database    DatabaseConfig     `yaml:"database"`
	Logging     LoggingConfig      `yaml:"logging,omitempty"`
	ToolCache   ToolCacheConfig    `yaml:"toolCache,omitempty"`
	Providers   []ProviderConfig   `yaml:"providers"`
	ToolServers []ToolServerConfig `yaml:"toolServers"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Host string `yaml:"host,omitempty"` // default: localhost
	Port int    `yaml:"port,omitempty"` // default: 8080

	// PublicURL is the externally reachable base URL, used to build the
	// OAuth redirect URI (default: http://<host>:<port>).
	PublicURL string `yaml:"publicURL,omitempty"`

	// CallbackPath is the OAuth callback path (default: /oauth/callback).
	CallbackPath string `yaml:"callbackPath,omitempty"`

	// SettingsURL is where callback failures and successes redirect the
	// browser (default: /settings/integrations).
	SettingsURL string `yaml:"settingsURL,omitempty"`
}

// DatabaseConfig selects the credential store backend.
type DatabaseConfig struct {
	Driver string `yaml:"driver,omitempty"` // memory, sqlite, postgres (default: memory)
	DSN    string `yaml:"dsn,omitempty"`    // file path for sqlite, connection string for postgres
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"` // debug, info, warn, error (default: info)
}

// ToolCacheConfig configures the resolved-tool cache.
type ToolCacheConfig struct {
	// TTLSeconds bounds how long a resolved tool set is reused. Zero keeps
	// entries for the process lifetime.
	TTLSeconds int `yaml:"ttlSeconds,omitempty"`
}

// ProviderConfig describes one OAuth2 provider. The registry of providers
// is built once at startup and is immutable for the process lifetime.
type ProviderConfig struct {
	Name         string   `yaml:"name"`
	AuthURL      string   `yaml:"authURL"`
	TokenURL     string   `yaml:"tokenURL"`
	Scopes       []string `yaml:"scopes,omitempty"`
	ClientID     string   `yaml:"clientID"`
	ClientSecret string   `yaml:"clientSecret,omitempty"`

	// ClientSecretEnv names an environment variable holding the client
	// secret, so secrets can stay out of the config file. Takes precedence
	// over ClientSecret when the variable is set.
	ClientSecretEnv string `yaml:"clientSecretEnv,omitempty"`
}

// ToolServerConfig describes one MCP tool server that agents may enable.
type ToolServerConfig struct {
	Name      string `yaml:"name"`
	Transport string `yaml:"transport"` // stdio or streamable-http

	// stdio transport
	Command string            `yaml:"command,omitempty"`
	Args    []string          `yaml:"args,omitempty"`
	Env     map[string]string `yaml:"env,omitempty"`

	// streamable-http transport
	URL     string            `yaml:"url,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
}

// OAuthProvider returns the provider name referenced by an OAUTH header
// placeholder, or "" when the server requires no OAuth token.
func (t *ToolServerConfig) OAuthProvider() string {
	for _, v := range t.Headers {
		if strings.HasPrefix(v, OAuthHeaderPrefix) {
			return strings.TrimPrefix(v, OAuthHeaderPrefix)
		}
	}
	return ""
}
