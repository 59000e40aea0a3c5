// Package main provides the poptrans CLI: remote control for poptransd,
// translation history, configuration and the tray icon.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/poptrans/internal/config"
	"github.com/jmylchreest/poptrans/internal/dbus"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

// callTimeout bounds a single D-Bus call to the daemon.
const callTimeout = 5 * time.Second

// Global configuration and state
var (
	globalOpts struct {
		verbose    bool
		configPath string
	}
	logger *slog.Logger
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "poptrans",
	Short: "Popup translator for Linux desktops",
	Long: `poptrans controls the poptransd popup translator.

Select text anywhere and press the configured shortcut (Ctrl+Q by default)
to see its translation in a small popup next to the pointer. This command
talks to the running daemon over D-Bus, browses the translation history and
edits the configuration.`,
	Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime),
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogger()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&globalOpts.verbose, "verbose", "v", false,
		"Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&globalOpts.configPath, "config", "",
		"Path to config file (default: ~/.config/poptrans/config.toml)")
}

// setupLogger configures the global slog logger.
func setupLogger() {
	level := slog.LevelWarn
	if globalOpts.verbose {
		level = slog.LevelDebug
	}

	// Log to stderr so stdout is clean for output
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	logger = slog.New(handler)
	slog.SetDefault(logger)
}

// configPath returns --config or the default location.
func configPath() (string, error) {
	if globalOpts.configPath != "" {
		return globalOpts.configPath, nil
	}
	return config.Path()
}

// loadConfig loads the configuration the daemon would use.
func loadConfig() (*config.Config, string, error) {
	path, err := configPath()
	if err != nil {
		return nil, "", err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, path, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, path, nil
}

// withDaemon connects to the session bus and runs fn with a bounded context.
func withDaemon(fn func(ctx context.Context, client *dbus.Client) error) error {
	client, err := dbus.Connect()
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	if err := fn(ctx, client); err != nil {
		if errors.Is(err, dbus.ErrNotRunning) {
			return errors.New("poptransd is not running; start it with `poptransd` or enable autostart")
		}
		return err
	}
	return nil
}
