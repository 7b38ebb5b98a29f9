package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/filecrane/filecrane/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagBaseDir    string
	flagHost       string
	flagPort       int
	flagLogLevel   string
	flagLogFormat  string
	flagVerbose    bool
	flagQuiet      bool
)

// newRootCmd builds and returns the fully-assembled root command with all
// subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "filecrane",
		Short:   "Local file management service",
		Long:    "An HTTP JSON API for browsing, searching, and bulk-managing files on the local machine, with tracked background tasks and live progress.",
		Version: version,
		// Silence Cobra's default error/usage printing; main handles it.
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().StringVar(&flagBaseDir, "base-dir", "", "confinement root for all file operations")
	cmd.PersistentFlags().StringVar(&flagHost, "host", "", "listen address")
	cmd.PersistentFlags().IntVar(&flagPort, "port", 0, "listen port")
	cmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "log format (auto, text, json)")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newConfigShowCmd())

	return cmd
}

// resolveConfig applies the four-layer override chain using only the flags
// the user actually set.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cli := config.CLIOverrides{ConfigPath: flagConfigPath}

	flags := cmd.Flags()
	if flags.Changed("base-dir") {
		cli.BaseDir = &flagBaseDir
	}

	if flags.Changed("host") {
		cli.Host = &flagHost
	}

	if flags.Changed("port") {
		cli.Port = &flagPort
	}

	if flags.Changed("log-level") {
		cli.LogLevel = &flagLogLevel
	}

	if flags.Changed("log-format") {
		cli.LogFormat = &flagLogFormat
	}

	cfg, err := config.Resolve(config.ReadEnvOverrides(), cli)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	return cfg, nil
}

// buildLogger creates an slog.Logger from the resolved config. The config
// file sets the baseline; --verbose and --quiet override it because CLI
// flags always win. Format "auto" picks text on a terminal and JSON when
// stderr is redirected.
func buildLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo

	switch cfg.Logging.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	if flagVerbose {
		level = slog.LevelDebug
	}

	if flagQuiet {
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	format := cfg.Logging.LogFormat
	if format == "auto" || format == "" {
		format = "json"
		if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
			format = "text"
		}
	}

	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}

	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
