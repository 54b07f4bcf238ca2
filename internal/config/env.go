package config

import (
	"log/slog"
	"os"
)

// Environment variable names for overrides.
const (
	EnvConfig       = "KYC_JIBIT_CONFIG"
	EnvAPIKey       = "KYC_JIBIT_API_KEY"
	EnvSecretKey    = "KYC_JIBIT_SECRET_KEY"
	EnvEndpoint     = "KYC_JIBIT_ENDPOINT"
	EnvCacheBackend = "KYC_JIBIT_CACHE_BACKEND"
)

// EnvOverrides holds values derived from environment variables. Empty
// fields mean "not set".
type EnvOverrides struct {
	ConfigPath   string // KYC_JIBIT_CONFIG: config file path
	APIKey       string // KYC_JIBIT_API_KEY
	SecretKey    string // KYC_JIBIT_SECRET_KEY
	Endpoint     string // KYC_JIBIT_ENDPOINT
	CacheBackend string // KYC_JIBIT_CACHE_BACKEND
}

// ReadEnvOverrides reads environment variables and returns any overrides
// found. Secrets are never logged, only whether they were set.
func ReadEnvOverrides(logger *slog.Logger) EnvOverrides {
	env := EnvOverrides{
		ConfigPath:   os.Getenv(EnvConfig),
		APIKey:       os.Getenv(EnvAPIKey),
		SecretKey:    os.Getenv(EnvSecretKey),
		Endpoint:     os.Getenv(EnvEndpoint),
		CacheBackend: os.Getenv(EnvCacheBackend),
	}

	logger.Debug("environment overrides",
		slog.String("config_path", env.ConfigPath),
		slog.Bool("api_key_set", env.APIKey != ""),
		slog.Bool("secret_key_set", env.SecretKey != ""),
		slog.String("endpoint", env.Endpoint),
		slog.String("cache_backend", env.CacheBackend),
	)

	return env
}
