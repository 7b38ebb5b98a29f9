package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Load reads and parses a TOML config file, validates it, and returns the
// resulting Config. Unknown keys are fatal errors with "did you mean?"
// suggestions: silently ignoring a typo in a config file leads to
// hard-to-debug behavior.
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

// LoadOrDefault reads a TOML config file if it exists, otherwise returns a
// Config populated with all default values, supporting the zero-config
// first-run experience.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}

	return Load(path)
}

// Resolve loads configuration and applies the four-layer override chain:
// defaults -> config file -> environment variables -> CLI flags. CLI flags
// always win, matching user expectations for one-off overrides without
// editing the config file. The returned Config has BaseDir and StartDir
// expanded to absolute form.
func Resolve(env EnvOverrides, cli CLIOverrides) (*Config, error) {
	cfgPath := DefaultConfigPath()
	if env.ConfigPath != "" {
		cfgPath = env.ConfigPath
	}

	if cli.ConfigPath != "" {
		cfgPath = cli.ConfigPath
	}

	cfg, err := LoadOrDefault(cfgPath)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg, env)
	applyCLIOverrides(cfg, cli)

	cfg.BaseDir = ExpandHome(cfg.BaseDir)
	if cfg.StartDir == "" {
		cfg.StartDir = cfg.BaseDir
	} else {
		cfg.StartDir = ExpandHome(cfg.StartDir)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config, env EnvOverrides) {
	if env.BaseDir != "" {
		cfg.BaseDir = env.BaseDir
	}

	if env.StartDir != "" {
		cfg.StartDir = env.StartDir
	}

	if env.Host != "" {
		cfg.Host = env.Host
	}

	if env.Port != 0 {
		cfg.Port = env.Port
	}
}

func applyCLIOverrides(cfg *Config, cli CLIOverrides) {
	if cli.BaseDir != nil {
		cfg.BaseDir = *cli.BaseDir
	}

	if cli.Host != nil {
		cfg.Host = *cli.Host
	}

	if cli.Port != nil {
		cfg.Port = *cli.Port
	}

	if cli.LogLevel != nil {
		cfg.Logging.LogLevel = *cli.LogLevel
	}

	if cli.LogFormat != nil {
		cfg.Logging.LogFormat = *cli.LogFormat
	}
}
