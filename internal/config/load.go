package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// historyDefaultSentinel in history.path selects DefaultHistoryPath().
const historyDefaultSentinel = "default"

// Load reads and parses a TOML config file, validates it, and returns the
// resulting Config. Unknown keys are fatal errors with "did you mean?"
// suggestions.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := checkUnknownKeys(&md); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault reads a TOML config file if it exists, otherwise returns
// a Config populated with all default values. This supports the zero-config
// first run where everything comes from the environment.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}

	return Load(path)
}

// ConfigPath resolves the config file path: CLI > env > default.
func ConfigPath(env EnvOverrides, cli CLIOverrides) string {
	if cli.ConfigPath != "" {
		return cli.ConfigPath
	}

	if env.ConfigPath != "" {
		return env.ConfigPath
	}

	return DefaultConfigPath()
}

// Resolve loads configuration and applies the four-layer override chain:
// defaults -> config file -> environment variables -> CLI flags.
// It returns a validated Config ready for use.
func Resolve(env EnvOverrides, cli CLIOverrides) (*Config, error) {
	cfg, err := LoadOrDefault(ConfigPath(env, cli))
	if err != nil {
		return nil, err
	}

	ApplyOverrides(cfg, env, cli)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// ApplyOverrides layers environment and CLI values over cfg in place.
// CLI flags always win over the environment.
func ApplyOverrides(cfg *Config, env EnvOverrides, cli CLIOverrides) {
	if env.ClientID != "" {
		cfg.Identity.ClientID = env.ClientID
	}

	if env.ClientSecret != "" {
		cfg.Identity.ClientSecret = env.ClientSecret
	}

	if env.Listen != "" {
		cfg.Server.Listen = env.Listen
	}

	if env.Site != "" {
		cfg.Graph.Site = env.Site
	}

	if env.LogLevel != "" {
		cfg.Logging.LogLevel = env.LogLevel
	}

	if cli.Listen != "" {
		cfg.Server.Listen = cli.Listen
	}

	if cli.Site != "" {
		cfg.Graph.Site = cli.Site
	}

	if cli.FolderPath != "" {
		cfg.Selection.FolderPath = cli.FolderPath
	}

	if cfg.History.Path == historyDefaultSentinel {
		cfg.History.Path = DefaultHistoryPath()
	}
}
