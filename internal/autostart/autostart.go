// Package autostart manages the XDG autostart entry that launches the
// daemon at login.
package autostart

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileName is the autostart entry's file name.
const FileName = "poptrans.desktop"

// Entry describes the autostart desktop entry.
type Entry struct {
	// Dir is the autostart directory, normally ~/.config/autostart.
	Dir string
	// Exec is the command line to run.
	Exec string
}

// Default returns the entry for the current user, launching poptransd from
// PATH or from next to the running executable.
func Default() (Entry, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return Entry{}, err
	}
	return Entry{
		Dir:  filepath.Join(configDir, "autostart"),
		Exec: daemonCommand(),
	}, nil
}

func daemonCommand() string {
	exe, err := os.Executable()
	if err != nil {
		return "poptransd"
	}
	candidate := filepath.Join(filepath.Dir(exe), "poptransd")
	if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
		return candidate
	}
	return "poptransd"
}

// Path returns the desktop file path.
func (e Entry) Path() string {
	return filepath.Join(e.Dir, FileName)
}

// Enabled reports whether the desktop file exists.
func (e Entry) Enabled() bool {
	_, err := os.Stat(e.Path())
	return err == nil
}

// Set enables or disables the entry. Disabling an absent entry is a no-op.
func (e Entry) Set(enabled bool) error {
	if enabled {
		return e.enable()
	}
	err := os.Remove(e.Path())
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove autostart entry: %w", err)
	}
	return nil
}

func (e Entry) enable() error {
	if err := os.MkdirAll(e.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create autostart directory: %w", err)
	}
	if err := os.WriteFile(e.Path(), e.render(), 0o644); err != nil {
		return fmt.Errorf("failed to write autostart entry: %w", err)
	}
	return nil
}

func (e Entry) render() []byte {
	var b bytes.Buffer
	b.WriteString("[Desktop Entry]\n")
	b.WriteString("Type=Application\n")
	b.WriteString("Name=poptrans\n")
	b.WriteString("Comment=Translate selected text in a popup\n")
	fmt.Fprintf(&b, "Exec=%s\n", quoteExec(e.Exec))
	b.WriteString("Icon=accessories-dictionary\n")
	b.WriteString("Terminal=false\n")
	b.WriteString("Categories=Utility;\n")
	b.WriteString("X-GNOME-Autostart-enabled=true\n")
	return b.Bytes()
}

// quoteExec quotes a program path containing spaces per the desktop entry
// Exec rules.
func quoteExec(cmd string) string {
	if !strings.ContainsAny(cmd, " \t\"'\\") {
		return cmd
	}
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "`", "\\`", `$`, `\$`)
	return `"` + r.Replace(cmd) + `"`
}
