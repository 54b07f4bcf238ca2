// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for kyc-jibit. Values resolve through a
// four-layer override chain: defaults -> config file -> environment -> CLI
// flags. All keys are flat; there are no sections.
package config

import "time"

// Config is the top-level configuration structure parsed from a TOML file.
// The embedded sub-configs group related keys but decode from the top level.
type Config struct {
	ProviderConfig
	CacheConfig
	LoggingConfig
	NetworkConfig
}

// ProviderConfig holds the provider endpoint and the API key pair used to
// generate tokens.
type ProviderConfig struct {
	Endpoint  string `toml:"endpoint"`
	APIKey    string `toml:"api_key"`
	SecretKey string `toml:"secret_key"`
}

// CacheConfig selects and configures the token cache backend. CachePath is
// used by the file and sqlite backends; the redis_* keys only by redis.
type CacheConfig struct {
	CacheBackend  string `toml:"cache_backend"`
	CachePath     string `toml:"cache_path"`
	RedisAddr     string `toml:"redis_addr"`
	RedisDB       int    `toml:"redis_db"`
	RedisPassword string `toml:"redis_password"`
	RedisPrefix   string `toml:"redis_prefix"`
}

// LoggingConfig controls log output: level and format.
type LoggingConfig struct {
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// NetworkConfig controls the HTTP client. Timeout bounds each round trip to
// the provider, including token calls.
type NetworkConfig struct {
	Timeout string `toml:"timeout"`
}

// Cache backend names accepted by cache_backend.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// CLIOverrides holds values from CLI flags that override config file and
// environment settings. Pointer fields distinguish "not specified" (nil)
// from "explicitly set to the zero value".
type CLIOverrides struct {
	ConfigPath   string  // --config flag (empty = use default)
	Endpoint     *string // --endpoint flag
	CacheBackend *string // --cache-backend flag
}

// Resolved is the final configuration after every layer has been applied.
// CachePath is absolute for the file and sqlite backends.
type Resolved struct {
	Config

	// Path is the config file consulted, whether or not it existed.
	Path string

	// RequestTimeout is Timeout parsed.
	RequestTimeout time.Duration
}
