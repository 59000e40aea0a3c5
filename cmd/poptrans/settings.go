package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/poptrans/internal/autostart"
	"github.com/jmylchreest/poptrans/internal/config"
	"github.com/jmylchreest/poptrans/internal/translate"
	"github.com/jmylchreest/poptrans/internal/tui"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Edit settings interactively",
	Long: `Open the interactive settings editor.

Key bindings:
  tab/shift+tab  Move between fields
  space          Toggle "Start at login"
  ctrl+s         Validate and save
  ctrl+t         Test the API key
  esc, ctrl+c    Quit

A running poptransd picks up saved settings immediately.`,
	Args: cobra.NoArgs,
	RunE: runSettings,
}

func init() {
	rootCmd.AddCommand(settingsCmd)
}

func runSettings(cmd *cobra.Command, args []string) error {
	if !isatty.IsTerminal(os.Stdin.Fd()) {
		return errors.New("settings needs an interactive terminal; use `poptrans config` instead")
	}

	path, err := configPath()
	if err != nil {
		return err
	}
	cfg, err := config.Load(path)
	if err != nil {
		// Start from defaults so a broken file can be repaired here.
		logger.Warn("failed to load config, editing defaults", "path", path, "error", err)
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\nSaving will replace %s.\n", err, path)
		cfg = config.Default()
	}

	opts := tui.Options{
		Config: cfg,
		Path:   path,
		Validator: translate.New(translate.Options{
			Endpoint: cfg.API.Endpoint,
			Timeout:  cfg.API.Timeout.Duration(),
			Retries:  cfg.API.Retries,
			Logger:   logger,
		}),
		Logger: logger,
	}
	if entry, err := autostart.Default(); err != nil {
		logger.Warn("autostart unavailable", "error", err)
	} else {
		opts.Autostart = entry
	}

	m, err := tui.Run(opts)
	if err != nil {
		return fmt.Errorf("settings editor failed: %w", err)
	}
	if m.Saved() {
		logger.Debug("settings saved", "path", path)
	}
	return nil
}
