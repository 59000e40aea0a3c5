package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/poptrans/internal/dbus"
	"github.com/jmylchreest/poptrans/internal/model"
)

var statusOpts struct {
	waybar bool
	maxLen int
}

// WaybarStatus represents the Waybar custom module JSON format.
type WaybarStatus struct {
	Text    string `json:"text"`
	Alt     string `json:"alt,omitempty"`
	Tooltip string `json:"tooltip,omitempty"`
	Class   string `json:"class,omitempty"`
}

// daemonState is the daemon's popup state as reported over D-Bus.
type daemonState struct {
	Running bool
	State   string
	Text    string
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the daemon and popup state",
	Long: `Show whether poptransd is running and what the popup currently shows.

With --waybar the state is printed in Waybar's custom module JSON format:

  "custom/poptrans": {
    "exec": "poptrans status --waybar",
    "interval": 2,
    "return-type": "json",
    "on-click": "poptrans trigger"
  }

The alt and class fields are one of: stopped, hidden, loading, done.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVar(&statusOpts.waybar, "waybar", false,
		"Output Waybar-compatible JSON")
	statusCmd.Flags().IntVar(&statusOpts.maxLen, "max-len", 40,
		"Truncate the shown text in Waybar output (0=no limit)")
}

func runStatus(cmd *cobra.Command, args []string) error {
	st, err := queryState()
	if err != nil && !statusOpts.waybar {
		return err
	}
	if err != nil {
		logger.Debug("failed to query daemon state", "error", err)
	}

	if statusOpts.waybar {
		return writeWaybar(cmd.OutOrStdout(), generateWaybarStatus(st, statusOpts.maxLen))
	}
	return writeStatus(cmd.OutOrStdout(), st)
}

// queryState asks the daemon for its state. A daemon that is not running is
// reported in the result, not as an error.
func queryState() (daemonState, error) {
	var st daemonState
	err := withDaemon(func(ctx context.Context, c *dbus.Client) error {
		state, text, err := c.State(ctx)
		if err != nil {
			if errors.Is(err, dbus.ErrNotRunning) {
				return nil
			}
			return err
		}
		st = daemonState{Running: true, State: state, Text: text}
		return nil
	})
	return st, err
}

// generateWaybarStatus maps the daemon state to a Waybar module status.
func generateWaybarStatus(st daemonState, maxLen int) WaybarStatus {
	if !st.Running {
		return WaybarStatus{Alt: "stopped", Class: "stopped", Tooltip: "poptransd is not running"}
	}

	status := WaybarStatus{Alt: st.State, Class: st.State}
	switch st.State {
	case model.ViewLoading.String():
		status.Text = "…"
		status.Tooltip = "Translating"
	case model.ViewDone.String():
		status.Text = st.Text
		if maxLen > 0 {
			status.Text = model.Summary(st.Text, maxLen)
		}
		status.Tooltip = st.Text
	default:
		status.Tooltip = "poptransd is running"
	}
	return status
}

func writeWaybar(w io.Writer, status WaybarStatus) error {
	data, err := json.Marshal(status)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func writeStatus(w io.Writer, st daemonState) error {
	if !st.Running {
		_, err := fmt.Fprintln(w, "poptransd: not running")
		return err
	}
	if _, err := fmt.Fprintf(w, "poptransd: running\npopup: %s\n", st.State); err != nil {
		return err
	}
	if st.Text != "" {
		_, err := fmt.Fprintf(w, "text: %s\n", st.Text)
		return err
	}
	return nil
}
