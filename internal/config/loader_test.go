package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agenthub.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const minimalConfig = `
providers:
  - name: github
    authURL: https://github.example.com/authorize
    tokenURL: https://github.example.com/token
    clientID: client-id
    clientSecret: inline-secret
toolServers:
  - name: search
    transport: stdio
    command: search-server
`

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "http://localhost:8080", cfg.Server.PublicURL)
	assert.Equal(t, "/oauth/callback", cfg.Server.CallbackPath)
	assert.Equal(t, "/settings/integrations", cfg.Server.SettingsURL)
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 0, cfg.ToolCache.TTLSeconds)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	assert.Error(t, err)
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "providers: [unclosed"))
	assert.Error(t, err)
}

func TestLoadConfigSecretFromEnv(t *testing.T) {
	t.Setenv("TEST_GITHUB_SECRET", "env-secret")

	cfg, err := LoadConfig(writeConfig(t, `
providers:
  - name: github
    authURL: https://github.example.com/authorize
    tokenURL: https://github.example.com/token
    clientID: client-id
    clientSecret: inline-secret
    clientSecretEnv: TEST_GITHUB_SECRET
`))
	require.NoError(t, err)
	assert.Equal(t, "env-secret", cfg.Providers[0].ClientSecret,
		"environment secret takes precedence over the inline value")
}

func TestValidateProviderFields(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `
providers:
  - name: github
    authURL: https://github.example.com/authorize
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token URL is required")
	assert.Contains(t, err.Error(), "client ID is required")
}

func TestValidateDuplicateNames(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `
providers:
  - name: github
    authURL: https://a.example.com
    tokenURL: https://b.example.com
    clientID: one
  - name: github
    authURL: https://a.example.com
    tokenURL: https://b.example.com
    clientID: two
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate provider name "github"`)
}

func TestValidateTransportRequirements(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `
toolServers:
  - name: a
    transport: stdio
  - name: b
    transport: streamable-http
  - name: c
    transport: websocket
    url: https://c.example.com
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "command is required for stdio transport")
	assert.Contains(t, err.Error(), "url is required for streamable-http transport")
	assert.Contains(t, err.Error(), `unknown transport "websocket"`)
}

func TestValidateOAuthPlaceholderReference(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `
toolServers:
  - name: github
    transport: streamable-http
    url: https://github-tools.example.com/mcp
    headers:
      Authorization: "OAUTH:github"
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `references unregistered provider "github"`)
}

func TestOAuthProvider(t *testing.T) {
	s := ToolServerConfig{Headers: map[string]string{
		"Accept":        "application/json",
		"Authorization": "OAUTH:google",
	}}
	assert.Equal(t, "google", s.OAuthProvider())

	s = ToolServerConfig{Headers: map[string]string{"Authorization": "Bearer static"}}
	assert.Empty(t, s.OAuthProvider())

	s = ToolServerConfig{}
	assert.Empty(t, s.OAuthProvider())
}
