package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/poptrans/internal/config"
	"github.com/jmylchreest/poptrans/internal/dbus"
	"github.com/jmylchreest/poptrans/internal/translate"
)

// maxInputBytes bounds text read from stdin; the daemon truncates further.
const maxInputBytes = 64 * 1024

var translateOpts struct {
	x, y   int
	stdout bool
}

var translateCmd = &cobra.Command{
	Use:   "translate [text|-]",
	Short: "Translate text in the popup",
	Long: `Ask poptransd to translate text and show it in the popup.

Without an argument, or with "-", the text is read from stdin. The popup is
placed at --x/--y (physical pixels) when both are given, otherwise near the
top of the screen.

With --stdout the daemon is not involved: the text is translated directly
with the configured API key and the result is printed.

Examples:
  # Translate a phrase in the popup
  poptrans translate "Guten Morgen"

  # Translate the clipboard and print the result
  wl-paste | poptrans translate --stdout`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTranslate,
}

var triggerCmd = &cobra.Command{
	Use:   "trigger",
	Short: "Translate the current selection",
	Long: `Translate the currently selected text, exactly as the global shortcut does.

Bind this to a compositor shortcut when the built-in hotkey cannot be
registered (for example on Wayland compositors without global key grabs).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDaemon(func(ctx context.Context, c *dbus.Client) error {
			return c.Trigger(ctx)
		})
	},
}

var hideCmd = &cobra.Command{
	Use:   "hide",
	Short: "Hide the popup",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDaemon(func(ctx context.Context, c *dbus.Client) error {
			return c.Hide(ctx)
		})
	},
}

var copyCmd = &cobra.Command{
	Use:   "copy",
	Short: "Copy the shown translation to the clipboard",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDaemon(func(ctx context.Context, c *dbus.Client) error {
			return c.Copy(ctx)
		})
	},
}

var quitCmd = &cobra.Command{
	Use:   "quit",
	Short: "Stop poptransd",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDaemon(func(ctx context.Context, c *dbus.Client) error {
			return c.Quit(ctx)
		})
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print every translation the popup shows",
	Long: `Print the text of every popup shown by poptransd, one per line, until
interrupted. Failed translations print their error message.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(translateCmd, triggerCmd, hideCmd, copyCmd, quitCmd, watchCmd)

	translateCmd.Flags().IntVar(&translateOpts.x, "x", -1,
		"Popup anchor X in physical pixels (-1 = no anchor)")
	translateCmd.Flags().IntVar(&translateOpts.y, "y", -1,
		"Popup anchor Y in physical pixels (-1 = no anchor)")
	translateCmd.Flags().BoolVar(&translateOpts.stdout, "stdout", false,
		"Translate directly and print the result instead of using the popup")
}

func runTranslate(cmd *cobra.Command, args []string) error {
	text, err := inputText(args, cmd.InOrStdin())
	if err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return errors.New("nothing to translate")
	}

	if translateOpts.stdout {
		return translateToStdout(cmd, text)
	}

	x, y := translateOpts.x, translateOpts.y
	if x < 0 || y < 0 {
		x, y = -1, -1
	}
	return withDaemon(func(ctx context.Context, c *dbus.Client) error {
		return c.TranslateAt(ctx, text, x, y)
	})
}

// inputText returns the argument, or stdin when there is none or it is "-".
func inputText(args []string, stdin io.Reader) (string, error) {
	if len(args) == 1 && args[0] != "-" {
		return args[0], nil
	}
	data, err := io.ReadAll(io.LimitReader(stdin, maxInputBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

func translateToStdout(cmd *cobra.Command, text string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	client := translate.New(translate.Options{
		Endpoint: cfg.API.Endpoint,
		Timeout:  cfg.API.Timeout.Duration(),
		Retries:  cfg.API.Retries,
		Logger:   logger,
	})

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	out, err := client.Translate(ctx, translate.Request{
		APIKey:     cfg.APIKey,
		Text:       text,
		SourceLang: cfg.SourceLang,
		TargetLang: cfg.TargetLang,
	})
	if err != nil {
		if errors.Is(err, translate.ErrNoAPIKey) {
			return fmt.Errorf("no API key configured; run `poptrans settings` or set %s", config.EnvAPIKey)
		}
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
	return err
}

func runWatch(cmd *cobra.Command, args []string) error {
	client, err := dbus.Connect()
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if running, err := client.Running(ctx); err == nil && !running {
		logger.Warn("poptransd is not running, waiting for it to start")
	}

	out := cmd.OutOrStdout()
	return client.WatchShown(ctx, func(text string) {
		_, _ = fmt.Fprintln(out, strings.ReplaceAll(text, "\n", " "))
	})
}
