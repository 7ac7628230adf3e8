package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/sethvargo/go-envconfig"

	"github.com/waabox/azdeck/internal/hooks"
)

// AzureConfig holds the Azure DevOps connection settings.
type AzureConfig struct {
	Org     string `toml:"org"`
	Project string `toml:"project"`
	Token   string `toml:"token"`
	// URL overrides the service root, for Azure DevOps Server installations.
	URL string `toml:"url"`
}

// Config holds all azdeck configuration.
type Config struct {
	Azure    AzureConfig `toml:"azure"`
	RunLimit int         `toml:"run_limit"`
	Hooks    hooks.Set   `toml:"hooks"`
}

const defaultRunLimit = 10

// RunLimitOrDefault returns RunLimit if set, otherwise defaultRunLimit.
func (c Config) RunLimitOrDefault() int {
	if c.RunLimit > 0 {
		return c.RunLimit
	}
	return defaultRunLimit
}

// envOverrides lists the environment variables that take precedence over the file.
type envOverrides struct {
	Token   string `env:"AZURE_DEVOPS_EXT_PAT"`
	Org     string `env:"AZDECK_ORG"`
	Project string `env:"AZDECK_PROJECT"`
	URL     string `env:"AZDECK_URL"`
}

// LoadFrom reads configuration from the given TOML file path.
// If the file does not exist, it returns an empty config without error.
// Environment variables always take precedence over file values:
//   - AZURE_DEVOPS_EXT_PAT overrides azure.token
//   - AZDECK_ORG           overrides azure.org
//   - AZDECK_PROJECT       overrides azure.project
//   - AZDECK_URL           overrides azure.url
//
// Hook definitions are validated and normalized before returning.
func LoadFrom(ctx context.Context, path string) (Config, error) {
	var cfg Config
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("reading %s: %w", path, err)
		}
	}
	if err := applyEnvOverrides(ctx, &cfg); err != nil {
		return Config{}, err
	}
	return cfg.Validate()
}

// Validate checks the hook definitions and returns the config with every hook
// normalized.
func (c Config) Validate() (Config, error) {
	set, err := c.Hooks.Normalize()
	if err != nil {
		return Config{}, fmt.Errorf("invalid hooks configuration: %w", err)
	}
	c.Hooks = set
	return c, nil
}

// DefaultConfigPath returns the default path for the azdeck config file.
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "azdeck", "config.toml")
}

func applyEnvOverrides(ctx context.Context, cfg *Config) error {
	var env envOverrides
	if err := envconfig.Process(ctx, &env); err != nil {
		return fmt.Errorf("reading environment: %w", err)
	}
	if env.Token != "" {
		cfg.Azure.Token = env.Token
	}
	if env.Org != "" {
		cfg.Azure.Org = env.Org
	}
	if env.Project != "" {
		cfg.Azure.Project = env.Project
	}
	if env.URL != "" {
		cfg.Azure.URL = env.URL
	}
	return nil
}
