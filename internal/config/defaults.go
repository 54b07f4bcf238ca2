package config

// Default values for configuration options. These are "layer 0" of the
// override chain and work without any config file, except for the API key
// pair which has no default.
const (
	defaultEndpoint     = "https://napi.jibit.ir/ide"
	defaultCacheBackend = BackendFile
	defaultRedisAddr    = "localhost:6379"
	defaultRedisPrefix  = "kyc-jibit:"
	defaultTimeout      = "30s"
	defaultLogLevel     = "warn"
	defaultLogFormat    = "auto"
)

// Default cache file names under the data directory.
const (
	defaultFileCacheName   = "tokens.json"
	defaultSQLiteCacheName = "tokens.db"
)

// DefaultConfig returns a Config populated with all default values.
// It is the starting point for TOML decoding, so unset keys keep defaults.
func DefaultConfig() *Config {
	return &Config{
		ProviderConfig: ProviderConfig{
			Endpoint: defaultEndpoint,
		},
		CacheConfig: CacheConfig{
			CacheBackend: defaultCacheBackend,
			RedisAddr:    defaultRedisAddr,
			RedisPrefix:  defaultRedisPrefix,
		},
		LoggingConfig: LoggingConfig{
			LogLevel:  defaultLogLevel,
			LogFormat: defaultLogFormat,
		},
		NetworkConfig: NetworkConfig{
			Timeout: defaultTimeout,
		},
	}
}
