package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/tonimelisma/kyc-jibit/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

// CLIFlags holds the global persistent flags.
type CLIFlags struct {
	ConfigPath   string
	Endpoint     string
	CacheBackend string
	JSON         bool
	Verbose      bool
	Quiet        bool
}

// flags is bound by newRootCmd. Every call to newRootCmd resets it.
var flags CLIFlags

// CLIContext carries what every subcommand needs. It is built once by the
// root pre-run and stored in the command's context.
type CLIContext struct {
	Cfg    *config.Resolved
	Flags  CLIFlags
	Logger *slog.Logger

	// JSON selects machine-readable output: --json, or stdout is not a
	// terminal.
	JSON bool

	Out io.Writer
	Err io.Writer
}

type cliContextKey struct{}

// cliContextFrom returns the CLIContext stored by the root pre-run, or nil
// for commands that skip config loading.
func cliContextFrom(ctx context.Context) *CLIContext {
	cc, _ := ctx.Value(cliContextKey{}).(*CLIContext)
	return cc
}

// skipConfigCommands lists commands that must work without a valid config:
// "config init" creates the file the others read.
var skipConfigCommands = map[string]bool{
	"kyc-jibit config init": true,
}

// newRootCmd builds the fully assembled root command with all subcommands
// registered.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kyc-jibit",
		Short: "Identity matching against the Jibit KYC API",
		Long: `kyc-jibit checks that a mobile number or bank card belongs to a national
code using the Jibit identity API. Access tokens are cached between runs.

Exit status is 0 on a successful match, 2 when the data does not match or
the provider rejected the lookup, and 1 on any other error.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if skipConfigCommands[cmd.CommandPath()] {
				return nil
			}

			return loadConfig(cmd)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.ConfigPath, "config", "", "config file path")
	pf.StringVar(&flags.Endpoint, "endpoint", "", "provider base URL")
	pf.StringVar(&flags.CacheBackend, "cache-backend", "", "token cache: memory, file, sqlite or redis")
	pf.BoolVar(&flags.JSON, "json", false, "output in JSON format")
	pf.BoolVarP(&flags.Verbose, "verbose", "v", false, "enable debug logging")
	pf.BoolVarP(&flags.Quiet, "quiet", "q", false, "suppress informational output")

	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	cmd.AddCommand(newMatchCmd())
	cmd.AddCommand(newTokenCmd())
	cmd.AddCommand(newCacheCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

// loadConfig resolves the effective configuration and stores a CLIContext
// in the command's context for the subcommand to use.
func loadConfig(cmd *cobra.Command) error {
	boot := buildLogger(nil, flags, cmd.ErrOrStderr())

	cli := config.CLIOverrides{ConfigPath: flags.ConfigPath}

	// Only pass flags the user explicitly set.
	if cmd.Flags().Changed("endpoint") {
		cli.Endpoint = &flags.Endpoint
	}

	if cmd.Flags().Changed("cache-backend") {
		cli.CacheBackend = &flags.CacheBackend
	}

	resolved, err := config.Resolve(config.ReadEnvOverrides(boot), cli, boot)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	cc := &CLIContext{
		Cfg:    resolved,
		Flags:  flags,
		Logger: buildLogger(resolved, flags, cmd.ErrOrStderr()),
		JSON:   useJSONOutput(flags.JSON, cmd.OutOrStdout()),
		Out:    cmd.OutOrStdout(),
		Err:    cmd.ErrOrStderr(),
	}

	cmd.SetContext(context.WithValue(cmd.Context(), cliContextKey{}, cc))

	return nil
}

// bootstrapLogger is used before any config is loaded.
func bootstrapLogger() *slog.Logger {
	return buildLogger(nil, flags, os.Stderr)
}

// buildLogger creates an slog.Logger from the resolved config and CLI flags.
// The config provides the baseline; --verbose and --quiet override it.
// A nil cfg means defaults: warn level, format picked from the terminal.
func buildLogger(cfg *config.Resolved, f CLIFlags, w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	format := "auto"

	if cfg != nil {
		switch cfg.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "info":
			level = slog.LevelInfo
		case "error":
			level = slog.LevelError
		}

		format = cfg.LogFormat
	}

	if f.Verbose {
		level = slog.LevelDebug
	}

	if f.Quiet {
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if logAsJSON(format, isTerminal(w)) {
		return slog.New(slog.NewJSONHandler(w, opts))
	}

	return slog.New(slog.NewTextHandler(w, opts))
}

// logAsJSON decides the log format. "auto" logs text to a terminal and
// JSON everywhere else, so log collectors get structured records.
func logAsJSON(format string, tty bool) bool {
	switch format {
	case "json":
		return true
	case "text":
		return false
	default:
		return !tty
	}
}

// useJSONOutput reports whether command output should be JSON.
func useJSONOutput(flag bool, out io.Writer) bool {
	return flag || !isTerminal(out)
}

// isTerminal reports whether w is a terminal. Anything that is not an
// *os.File (buffers in tests, pipes wrapped by callers) is not.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
