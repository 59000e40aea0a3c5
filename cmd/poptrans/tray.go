package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/poptrans/internal/dbus"
	"github.com/jmylchreest/poptrans/internal/tray"
)

var trayCmd = &cobra.Command{
	Use:   "tray",
	Short: "Show the system tray icon",
	Long: `Show the poptrans system tray icon. Its menu translates the selection,
opens the settings editor in [tray] terminal, and stops the daemon.

poptransd starts this automatically when [tray] enabled is true, so it is
rarely run by hand.`,
	Args: cobra.NoArgs,
	RunE: runTray,
}

func init() {
	rootCmd.AddCommand(trayCmd)
}

func runTray(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	client, err := dbus.Connect()
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	command, err := os.Executable()
	if err != nil {
		command = ""
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	tray.New(tray.Options{
		Daemon:   client,
		Terminal: cfg.Tray.Terminal,
		Command:  command,
		Logger:   logger,
	}).Run(ctx)
	return nil
}
