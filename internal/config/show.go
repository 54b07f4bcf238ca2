package config

import (
	"fmt"
	"io"
	"strings"
)

// visibleSecretChars is how many leading characters MaskSecret keeps.
const visibleSecretChars = 4

// RenderEffective writes the resolved configuration as an annotated summary
// to w. Secrets are masked. This powers "config show".
func RenderEffective(rc *Resolved, w io.Writer) error {
	ew := &errWriter{w: w}

	ew.printf("# Effective configuration (file: %s)\n\n", displayPath(rc.Path))

	ew.printf("# provider\n")
	ew.printf("endpoint       = %q\n", rc.Endpoint)
	ew.printf("api_key        = %q\n", MaskSecret(rc.APIKey))
	ew.printf("secret_key     = %q\n", MaskSecret(rc.SecretKey))
	ew.printf("\n")

	ew.printf("# cache\n")
	ew.printf("cache_backend  = %q\n", rc.CacheBackend)

	switch rc.CacheBackend {
	case BackendFile, BackendSQLite:
		ew.printf("cache_path     = %q\n", rc.CachePath)
	case BackendRedis:
		ew.printf("redis_addr     = %q\n", rc.RedisAddr)
		ew.printf("redis_db       = %d\n", rc.RedisDB)
		ew.printf("redis_password = %q\n", MaskSecret(rc.RedisPassword))
		ew.printf("redis_prefix   = %q\n", rc.RedisPrefix)
	}

	ew.printf("\n")

	ew.printf("# logging\n")
	ew.printf("log_level      = %q\n", rc.LogLevel)
	ew.printf("log_format     = %q\n", rc.LogFormat)
	ew.printf("\n")

	ew.printf("# network\n")
	ew.printf("timeout        = %q\n", rc.Timeout)

	return ew.err
}

// MaskSecret hides all but the first few characters of s. Short values are
// hidden entirely; an empty value stays empty so "unset" remains visible.
func MaskSecret(s string) string {
	if s == "" {
		return ""
	}

	if len(s) <= 2*visibleSecretChars {
		return strings.Repeat("*", len(s))
	}

	return s[:visibleSecretChars] + strings.Repeat("*", len(s)-visibleSecretChars)
}

func displayPath(path string) string {
	if path == "" {
		return "none"
	}

	return path
}

// errWriter wraps an io.Writer and captures the first write error.
// Subsequent writes after an error are no-ops, so callers can chain
// printf calls without checking each one.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}

	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}
