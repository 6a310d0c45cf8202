package config

import (
	"fmt"
	"os"

	"agenthub/pkg/logging"

	"gopkg.in/yaml.v3"
)

// LoadConfig reads, defaults, and validates the configuration file at the
// given path. The returned Config is treated as immutable by all
// components that receive it.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("error reading config from %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("error parsing config from %s: %w", path, err)
	}

	applyDefaults(&cfg)
	resolveSecrets(&cfg)

	if errs := cfg.Validate(); errs.HasErrors() {
		return Config{}, errs
	}

	logging.Info("ConfigLoader", "Loaded configuration from %s (%d providers, %d tool servers)",
		path, len(cfg.Providers), len(cfg.ToolServers))
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.PublicURL == "" {
		cfg.Server.PublicURL = fmt.Sprintf("http://%s:%d", cfg.Server.Host, cfg.Server.Port)
	}
	if cfg.Server.CallbackPath == "" {
		cfg.Server.CallbackPath = "/oauth/callback"
	}
	if cfg.Server.SettingsURL == "" {
		cfg.Server.SettingsURL = "/settings/integrations"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "memory"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

// resolveSecrets fills provider client secrets from the environment where
// a ClientSecretEnv is configured.
func resolveSecrets(cfg *Config) {
	for i := range cfg.Providers {
		p := &cfg.Providers[i]
		if p.ClientSecretEnv == "" {
			continue
		}
		if v := os.Getenv(p.ClientSecretEnv); v != "" {
			p.ClientSecret = v
		} else {
			logging.Warn("ConfigLoader", "Environment variable %s for provider %s is not set",
				p.ClientSecretEnv, p.Name)
		}
	}
}
