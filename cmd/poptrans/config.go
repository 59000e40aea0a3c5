package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/poptrans/internal/autostart"
	"github.com/jmylchreest/poptrans/internal/config"
	"github.com/jmylchreest/poptrans/internal/shortcut"
	"github.com/jmylchreest/poptrans/internal/theme"
	"github.com/jmylchreest/poptrans/internal/translate"
)

// keyCheckTimeout bounds validate-key, which may retry.
const keyCheckTimeout = 30 * time.Second

// configCmd represents the config command group.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and change the configuration",
	Long: `Inspect and change the poptrans configuration.

The configuration lives in ~/.config/poptrans/config.toml. poptransd reloads
it automatically when it changes, so edits take effect without a restart.
Use 'poptrans settings' for an interactive editor.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as TOML",
	Long:  `Print the effective configuration as TOML. The API key is masked.`,
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration, history and theme locations",
	Args:  cobra.NoArgs,
	RunE:  runConfigPath,
}

var configValidateKeyCmd = &cobra.Command{
	Use:   "validate-key [key]",
	Short: "Check an API key against the translation service",
	Long: `Check an API key by translating a short test phrase. Without an argument
the configured key is checked.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfigValidateKey,
}

var configValidateShortcutCmd = &cobra.Command{
	Use:   "validate-shortcut <shortcut>",
	Short: "Check a shortcut and print its canonical form",
	Long: `Check a shortcut such as "ctrl+shift+t" and print its canonical form
("Ctrl+Shift+T"). Modifiers are Ctrl, Alt, Shift and Meta; the key is A-Z,
0-9 or F1-F12.`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigValidateShortcut,
}

var configSetShortcutCmd = &cobra.Command{
	Use:   "set-shortcut <shortcut>",
	Short: "Change the global translate shortcut",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigSetShortcut,
}

var configAutostartCmd = &cobra.Command{
	Use:       "autostart [on|off|status]",
	Short:     "Manage starting poptransd at login",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"on", "off", "status"},
	RunE:      runConfigAutostart,
}

var configThemesCmd = &cobra.Command{
	Use:   "themes",
	Short: "List available popup themes",
	Long: `List the bundled popup themes and those in ~/.config/poptrans/themes/.
Set one with [display] theme = "<name>" in the configuration, or give a path
to a .css file.`,
	Args: cobra.NoArgs,
	RunE: runConfigThemes,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(
		configShowCmd,
		configPathCmd,
		configValidateKeyCmd,
		configValidateShortcutCmd,
		configSetShortcutCmd,
		configAutostartCmd,
		configThemesCmd,
	)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	return writeConfig(cmd.OutOrStdout(), cfg)
}

// writeConfig prints cfg as TOML with the API key masked.
func writeConfig(w io.Writer, cfg *config.Config) error {
	out := *cfg
	out.APIKey = maskKey(cfg.APIKey)
	data, err := toml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// maskKey keeps the last four characters of a key.
func maskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", 8) + key[len(key)-4:]
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	cfgPath, err := configPath()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "config:  %s\n", cfgPath)

	if historyPath, err := config.HistoryPath(); err == nil {
		fmt.Fprintf(out, "history: %s\n", historyPath)
	}
	if themesDir, err := theme.ThemesDir(); err == nil {
		fmt.Fprintf(out, "themes:  %s\n", themesDir)
	}
	if entry, err := autostart.Default(); err == nil {
		fmt.Fprintf(out, "autostart: %s\n", entry.Path())
	}
	return nil
}

func runConfigValidateKey(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	key := cfg.APIKey
	if len(args) == 1 {
		key = args[0]
	}

	client := translate.New(translate.Options{
		Endpoint: cfg.API.Endpoint,
		Timeout:  cfg.API.Timeout.Duration(),
		Retries:  cfg.API.Retries,
		Logger:   logger,
	})

	ctx, cancel := context.WithTimeout(cmd.Context(), keyCheckTimeout)
	defer cancel()
	if err := client.ValidateKey(ctx, key); err != nil {
		return fmt.Errorf("API key check failed: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), "API key works")
	return err
}

func runConfigValidateShortcut(cmd *cobra.Command, args []string) error {
	canon, err := shortcut.Canonical(args[0])
	if err != nil {
		return fmt.Errorf("invalid shortcut: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), canon)
	return err
}

func runConfigSetShortcut(cmd *cobra.Command, args []string) error {
	canon, err := shortcut.Canonical(args[0])
	if err != nil {
		return fmt.Errorf("invalid shortcut: %w", err)
	}

	cfg, path, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Shortcut == canon {
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "Shortcut is already %s\n", canon)
		return err
	}

	cfg.Shortcut = canon
	if err := config.Save(path, cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	logger.Debug("shortcut changed", "shortcut", canon, "path", path)
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Shortcut set to %s\n", canon)
	return err
}

func runConfigAutostart(cmd *cobra.Command, args []string) error {
	entry, err := autostart.Default()
	if err != nil {
		return fmt.Errorf("failed to locate autostart directory: %w", err)
	}

	action := "status"
	if len(args) == 1 {
		action = args[0]
	}

	out := cmd.OutOrStdout()
	switch action {
	case "on", "off":
		enabled := action == "on"
		if err := entry.Set(enabled); err != nil {
			return fmt.Errorf("failed to update autostart: %w", err)
		}
		if err := saveAutostart(enabled); err != nil {
			logger.Warn("failed to record autostart in config", "error", err)
		}
	}

	if entry.Enabled() {
		_, err = fmt.Fprintf(out, "Autostart: on (%s)\n", entry.Path())
	} else {
		_, err = fmt.Fprintln(out, "Autostart: off")
	}
	return err
}

// saveAutostart keeps auto_start in the configuration in step with the entry.
func saveAutostart(enabled bool) error {
	cfg, path, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.AutoStart == enabled {
		return nil
	}
	cfg.AutoStart = enabled
	return config.Save(path, cfg)
}

func runConfigThemes(cmd *cobra.Command, args []string) error {
	themesDir, err := theme.ThemesDir()
	if err != nil {
		logger.Warn("failed to get themes directory", "error", err)
	}
	themes, err := theme.ListAvailable(themesDir)
	if err != nil {
		return fmt.Errorf("failed to list themes: %w", err)
	}

	current := ""
	if cfg, _, err := loadConfig(); err == nil {
		current = cfg.Display.Theme
	}

	out := cmd.OutOrStdout()
	for _, t := range themes {
		marker := "  "
		if t.Name == current {
			marker = "* "
		}
		source := "bundled"
		if !t.Bundled {
			source = t.Path
			if t.Overrides {
				source += " (overrides bundled)"
			}
		}
		if _, err := fmt.Fprintf(out, "%s%-12s %s\n", marker, t.Name, source); err != nil {
			return err
		}
	}
	return nil
}
