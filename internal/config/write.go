package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// The config file holds the API secret, so it is private to the owner.
const (
	configFilePermissions = 0o600
	configDirPermissions  = 0o700
)

// ErrConfigExists is returned by WriteTemplate when the target file exists.
var ErrConfigExists = errors.New("config file already exists")

// configTemplate is the content written by "config init". Every key is
// present as a commented-out default so users can discover all options.
const configTemplate = `# kyc-jibit configuration

# Identity API base URL.
# endpoint = "https://napi.jibit.ir/ide"

# API key pair issued by the provider. May also be set through
# KYC_JIBIT_API_KEY and KYC_JIBIT_SECRET_KEY.
# api_key = ""
# secret_key = ""

# Token cache: memory, file, sqlite or redis.
# cache_backend = "file"

# File or database path for the file and sqlite backends
# (default: platform data directory).
# cache_path = ""

# Redis backend settings.
# redis_addr = "localhost:6379"
# redis_db = 0
# redis_password = ""
# redis_prefix = "kyc-jibit:"

# Per-call HTTP timeout.
# timeout = "30s"

# Log verbosity (debug, info, warn, error) and format (auto, text, json).
# log_level = "warn"
# log_format = "auto"
`

// WriteTemplate creates a commented default config file at path. It refuses
// to overwrite an existing file.
func WriteTemplate(path string, logger *slog.Logger) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s", ErrConfigExists, path)
	}

	logger.Info("creating config file", slog.String("path", path))

	return atomicWriteFile(path, []byte(configTemplate))
}

// atomicWriteFile writes data to path via a temp file in the same directory
// and a rename, so readers never see a partial file.
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, configDirPermissions); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	f, err := os.CreateTemp(dir, ".config-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	tempPath := f.Name()

	succeeded := false
	defer func() {
		if !succeeded {
			os.Remove(tempPath)
		}
	}()

	if _, err := f.Write(data); err != nil {
		f.Close()

		return fmt.Errorf("writing temp file: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Chmod(tempPath, configFilePermissions); err != nil {
		return fmt.Errorf("setting file permissions: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}

	succeeded = true

	return nil
}
