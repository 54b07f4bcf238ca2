package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Load reads and parses a TOML config file, validates it, and returns the
// resulting Config. Unknown keys are fatal errors with "did you mean?"
// suggestions.
func Load(path string, logger *slog.Logger) (*Config, error) {
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

	logger.Debug("loaded config file",
		slog.String("path", path),
		slog.Int("keys", len(md.Keys())),
	)

	return cfg, nil
}

// LoadOrDefault reads a TOML config file if it exists, otherwise returns
// a Config populated with all default values.
func LoadOrDefault(path string, logger *slog.Logger) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		logger.Debug("config file not found, using defaults", slog.String("path", path))

		return DefaultConfig(), nil
	}

	return Load(path, logger)
}

// Resolve loads configuration and applies the override chain:
// defaults -> config file -> environment variables -> CLI flags.
// The result is validated and carries absolute cache paths.
func Resolve(env EnvOverrides, cli CLIOverrides, logger *slog.Logger) (*Resolved, error) {
	// Config path: CLI > env > default.
	cfgPath := DefaultConfigPath()
	if env.ConfigPath != "" {
		cfgPath = env.ConfigPath
	}

	if cli.ConfigPath != "" {
		cfgPath = cli.ConfigPath
	}

	cfg, err := LoadOrDefault(cfgPath, logger)
	if err != nil {
		return nil, err
	}

	applyEnv(cfg, env)

	if cli.Endpoint != nil {
		cfg.Endpoint = *cli.Endpoint
	}

	if cli.CacheBackend != nil {
		cfg.CacheBackend = *cli.CacheBackend
	}

	// Overrides bypass file validation, so check the merged result again.
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	if cfg.CachePath == "" {
		cfg.CachePath = DefaultCachePath(cfg.CacheBackend)
	}

	cfg.CachePath = expandTilde(cfg.CachePath)

	// Validate already parsed it.
	timeout, _ := time.ParseDuration(cfg.Timeout)

	resolved := &Resolved{
		Config:         *cfg,
		Path:           cfgPath,
		RequestTimeout: timeout,
	}

	if err := ValidateResolved(resolved); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	logger.Debug("resolved config",
		slog.String("path", cfgPath),
		slog.String("endpoint", resolved.Endpoint),
		slog.String("cache_backend", resolved.CacheBackend),
		slog.String("cache_path", resolved.CachePath),
	)

	return resolved, nil
}

func applyEnv(cfg *Config, env EnvOverrides) {
	if env.APIKey != "" {
		cfg.APIKey = env.APIKey
	}

	if env.SecretKey != "" {
		cfg.SecretKey = env.SecretKey
	}

	if env.Endpoint != "" {
		cfg.Endpoint = env.Endpoint
	}

	if env.CacheBackend != "" {
		cfg.CacheBackend = env.CacheBackend
	}
}
