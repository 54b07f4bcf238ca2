package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/kyc-jibit/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Display effective configuration after all overrides",
		Args:  cobra.NoArgs,
		RunE:  runConfigShow,
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write a commented config file with every default",
		Args:  cobra.NoArgs,
		RunE:  runConfigInit,
	})

	return cmd
}

// configOutput is the JSON schema for `config show --json`. Secrets are
// masked.
type configOutput struct {
	Path          string `json:"path"`
	Endpoint      string `json:"endpoint"`
	APIKey        string `json:"api_key"`
	SecretKey     string `json:"secret_key"`
	CacheBackend  string `json:"cache_backend"`
	CachePath     string `json:"cache_path,omitempty"`
	RedisAddr     string `json:"redis_addr,omitempty"`
	RedisDB       int    `json:"redis_db"`
	RedisPassword string `json:"redis_password,omitempty"`
	RedisPrefix   string `json:"redis_prefix,omitempty"`
	Timeout       string `json:"timeout"`
	LogLevel      string `json:"log_level"`
	LogFormat     string `json:"log_format"`
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cc := cliContextFrom(cmd.Context())
	rc := cc.Cfg

	if !cc.JSON {
		return config.RenderEffective(rc, cc.Out)
	}

	out := configOutput{
		Path:         rc.Path,
		Endpoint:     rc.Endpoint,
		APIKey:       config.MaskSecret(rc.APIKey),
		SecretKey:    config.MaskSecret(rc.SecretKey),
		CacheBackend: rc.CacheBackend,
		CachePath:    rc.CachePath,
		Timeout:      rc.Timeout,
		LogLevel:     rc.LogLevel,
		LogFormat:    rc.LogFormat,
	}

	if rc.CacheBackend == config.BackendRedis {
		out.RedisAddr = rc.RedisAddr
		out.RedisDB = rc.RedisDB
		out.RedisPassword = config.MaskSecret(rc.RedisPassword)
		out.RedisPrefix = rc.RedisPrefix
	}

	return printJSON(cc.Out, out)
}

// runConfigInit runs without a loaded config, so it resolves the target
// path itself: --config, then KYC_JIBIT_CONFIG, then the platform default.
func runConfigInit(cmd *cobra.Command, _ []string) error {
	logger := buildLogger(nil, flags, cmd.ErrOrStderr())

	path := flags.ConfigPath
	if path == "" {
		path = os.Getenv(config.EnvConfig)
	}

	if path == "" {
		path = config.DefaultConfigPath()
	}

	if path == "" {
		return fmt.Errorf("cannot determine config path: no home directory, pass --config")
	}

	if err := config.WriteTemplate(path, logger); err != nil {
		return err
	}

	statusf(cmd.ErrOrStderr(), flags.Quiet, "Wrote %s\n", path)

	return nil
}
