package config

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"slices"
	"time"
)

// Validation range constants.
const (
	minTimeout = 1 * time.Second
	maxTimeout = 5 * time.Minute
	maxRedisDB = 15
)

var (
	validBackends   = []string{BackendMemory, BackendFile, BackendSQLite, BackendRedis}
	validLogLevels  = []string{"debug", "info", "warn", "error"}
	validLogFormats = []string{"auto", "text", "json"}
)

// ErrMissingCredentials is returned by RequireCredentials when the API key
// pair is incomplete.
var ErrMissingCredentials = errors.New("api_key and secret_key must be set (config file or KYC_JIBIT_API_KEY / KYC_JIBIT_SECRET_KEY)")

// Validate checks all configuration values and returns all errors found,
// so users can fix every problem in one pass.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validateProvider(&cfg.ProviderConfig)...)
	errs = append(errs, validateCache(&cfg.CacheConfig)...)
	errs = append(errs, validateLogging(&cfg.LoggingConfig)...)
	errs = append(errs, validateNetwork(&cfg.NetworkConfig)...)

	return errors.Join(errs...)
}

// ValidateResolved checks constraints that only make sense once every layer
// has been applied and default paths are filled in.
func ValidateResolved(rc *Resolved) error {
	var errs []error

	switch rc.CacheBackend {
	case BackendFile, BackendSQLite:
		if rc.CachePath == "" {
			errs = append(errs, fmt.Errorf("cache_path: required for the %s backend (no home directory to default to)", rc.CacheBackend))
		} else if !filepath.IsAbs(rc.CachePath) {
			errs = append(errs, fmt.Errorf("cache_path: must be absolute after expansion, got %q", rc.CachePath))
		}
	}

	return errors.Join(errs...)
}

// RequireCredentials reports whether the API key pair needed to generate
// tokens is present. Commands that only touch the cache skip this check.
func (rc *Resolved) RequireCredentials() error {
	if rc.APIKey == "" || rc.SecretKey == "" {
		return ErrMissingCredentials
	}

	return nil
}

func validateProvider(p *ProviderConfig) []error {
	u, err := url.Parse(p.Endpoint)
	if err != nil {
		return []error{fmt.Errorf("endpoint: %w", err)}
	}

	if u.Scheme != "https" && u.Scheme != "http" {
		return []error{fmt.Errorf("endpoint: must be an http(s) URL, got %q", p.Endpoint)}
	}

	if u.Host == "" {
		return []error{fmt.Errorf("endpoint: missing host in %q", p.Endpoint)}
	}

	return nil
}

func validateCache(c *CacheConfig) []error {
	var errs []error

	if !slices.Contains(validBackends, c.CacheBackend) {
		errs = append(errs, fmt.Errorf("cache_backend: must be one of %v, got %q", validBackends, c.CacheBackend))
	}

	if c.CacheBackend == BackendRedis && c.RedisAddr == "" {
		errs = append(errs, errors.New("redis_addr: required for the redis backend"))
	}

	if c.RedisDB < 0 || c.RedisDB > maxRedisDB {
		errs = append(errs, fmt.Errorf("redis_db: must be between 0 and %d, got %d", maxRedisDB, c.RedisDB))
	}

	return errs
}

func validateLogging(l *LoggingConfig) []error {
	var errs []error

	if !slices.Contains(validLogLevels, l.LogLevel) {
		errs = append(errs, fmt.Errorf("log_level: must be one of %v, got %q", validLogLevels, l.LogLevel))
	}

	if !slices.Contains(validLogFormats, l.LogFormat) {
		errs = append(errs, fmt.Errorf("log_format: must be one of %v, got %q", validLogFormats, l.LogFormat))
	}

	return errs
}

func validateNetwork(n *NetworkConfig) []error {
	d, err := time.ParseDuration(n.Timeout)
	if err != nil {
		return []error{fmt.Errorf("timeout: invalid duration %q: %w", n.Timeout, err)}
	}

	if d < minTimeout || d > maxTimeout {
		return []error{fmt.Errorf("timeout: must be between %s and %s, got %s", minTimeout, maxTimeout, d)}
	}

	return nil
}
