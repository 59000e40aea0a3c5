// Package tui provides the BubbleTea-based settings editor.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jmylchreest/poptrans/internal/config"
	"github.com/jmylchreest/poptrans/internal/shortcut"
)

// KeyTestTimeout bounds a ctrl+t key check.
const KeyTestTimeout = 15 * time.Second

// KeyValidator checks an API key against the translation service.
type KeyValidator interface {
	ValidateKey(ctx context.Context, key string) error
}

// Autostart applies the login autostart setting.
type Autostart interface {
	Set(enabled bool) error
}

// Options configures the settings editor.
type Options struct {
	Config    *config.Config
	Path      string
	Validator KeyValidator
	Autostart Autostart
	Logger    *slog.Logger

	// Save defaults to config.Save.
	Save func(path string, cfg *config.Config) error
}

// field indexes; fieldAutostart is a toggle rather than an input.
const (
	fieldAPIKey = iota
	fieldSource
	fieldTarget
	fieldTimeout
	fieldShortcut
	fieldAutostart
	fieldCount
)

var fieldLabels = [fieldCount]string{
	"API key",
	"Source language",
	"Target language",
	"Auto-close (ms)",
	"Shortcut",
	"Start at login",
}

// Model is the settings editor model.
type Model struct {
	cfg       *config.Config
	path      string
	validator KeyValidator
	autostart Autostart
	save      func(path string, cfg *config.Config) error
	logger    *slog.Logger

	inputs      [fieldAutostart]textinput.Model
	autostartOn bool
	focus       int

	keys  KeyMap
	help  help.Model
	width int

	// Status message
	statusMsg string
	statusErr bool
	testing   bool
	saved     bool
}

// New creates the editor for cfg, which is only modified on a successful save.
func New(opts Options) Model {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if opts.Save == nil {
		opts.Save = config.Save
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	m := Model{
		cfg:         cfg,
		path:        opts.Path,
		validator:   opts.Validator,
		autostart:   opts.Autostart,
		save:        opts.Save,
		logger:      opts.Logger,
		autostartOn: cfg.AutoStart,
		keys:        DefaultKeyMap(),
		help:        help.New(),
	}

	for i := range m.inputs {
		in := textinput.New()
		in.Prompt = ""
		in.CharLimit = 64
		m.inputs[i] = in
	}

	apiKey := &m.inputs[fieldAPIKey]
	apiKey.EchoMode = textinput.EchoPassword
	apiKey.EchoCharacter = '•'
	apiKey.CharLimit = 256
	if cfg.APIKeyFromEnv() {
		apiKey.Placeholder = "set by " + config.EnvAPIKey
	} else {
		apiKey.SetValue(cfg.APIKey)
	}

	m.inputs[fieldSource].SetValue(cfg.SourceLang)
	m.inputs[fieldSource].Placeholder = config.DefaultSourceLang
	m.inputs[fieldTarget].SetValue(cfg.TargetLang)
	m.inputs[fieldTarget].Placeholder = config.DefaultTargetLang
	m.inputs[fieldTimeout].SetValue(strconv.Itoa(cfg.AutoCloseTimeout.Milliseconds()))
	m.inputs[fieldShortcut].SetValue(cfg.Shortcut)
	m.inputs[fieldShortcut].Placeholder = config.DefaultShortcut

	m.inputs[fieldAPIKey].Focus()
	return m
}

// Saved reports whether the settings were written at least once.
func (m Model) Saved() bool {
	return m.saved
}

// Config returns the configuration as last saved.
func (m Model) Config() *config.Config {
	return m.cfg
}

// Init initializes the TUI.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

type statusMsg struct {
	text  string
	isErr bool
}

type clearStatusMsg struct{}

type keyCheckMsg struct {
	err error
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case statusMsg:
		m.statusMsg = msg.text
		m.statusErr = msg.isErr
		return m, tea.Tick(3*time.Second, func(time.Time) tea.Msg {
			return clearStatusMsg{}
		})

	case clearStatusMsg:
		if !m.testing {
			m.statusMsg = ""
			m.statusErr = false
		}
		return m, nil

	case keyCheckMsg:
		m.testing = false
		if msg.err != nil {
			return m, status("API key check failed: "+msg.err.Error(), true)
		}
		return m, status("API key works", false)
	}

	return m.updateFocused(msg)
}

// handleKey handles key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Next):
		return m.moveFocus(1), nil

	case key.Matches(msg, m.keys.Prev):
		return m.moveFocus(-1), nil

	case key.Matches(msg, m.keys.Save):
		return m.saveSettings()

	case key.Matches(msg, m.keys.Test):
		return m.testKey()

	case m.focus == fieldAutostart && key.Matches(msg, m.keys.Toggle):
		m.autostartOn = !m.autostartOn
		return m, nil
	}

	return m.updateFocused(msg)
}

// updateFocused passes msg to the focused text input.
func (m Model) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.focus >= fieldAutostart {
		return m, nil
	}
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m Model) moveFocus(delta int) Model {
	if m.focus < fieldAutostart {
		m.inputs[m.focus].Blur()
	}
	m.focus = (m.focus + delta + fieldCount) % fieldCount
	if m.focus < fieldAutostart {
		m.inputs[m.focus].Focus()
	}
	return m
}

// apply returns a copy of the config with the form values applied.
func (m Model) apply() (*config.Config, error) {
	next := *m.cfg

	if v := strings.TrimSpace(m.inputs[fieldAPIKey].Value()); v != "" || !m.cfg.APIKeyFromEnv() {
		next.SetAPIKey(v)
	}

	next.SourceLang = strings.ToUpper(strings.TrimSpace(m.inputs[fieldSource].Value()))
	next.TargetLang = strings.ToUpper(strings.TrimSpace(m.inputs[fieldTarget].Value()))

	ms, err := strconv.Atoi(strings.TrimSpace(m.inputs[fieldTimeout].Value()))
	if err != nil {
		return nil, errors.New("auto-close must be a whole number of milliseconds")
	}
	next.AutoCloseTimeout = config.Duration(time.Duration(ms) * time.Millisecond)

	canon, err := shortcut.Canonical(m.inputs[fieldShortcut].Value())
	if err != nil {
		return nil, fmt.Errorf("invalid shortcut: %w", err)
	}
	next.Shortcut = canon

	next.AutoStart = m.autostartOn
	next.FirstRun = false

	if err := next.Validate(); err != nil {
		return nil, err
	}
	return &next, nil
}

func (m Model) saveSettings() (tea.Model, tea.Cmd) {
	next, err := m.apply()
	if err != nil {
		return m, status(err.Error(), true)
	}

	if err := m.save(m.path, next); err != nil {
		m.logger.Error("failed to save settings", "path", m.path, "error", err)
		return m, status("Save failed: "+err.Error(), true)
	}
	m.cfg = next
	m.saved = true
	m.inputs[fieldShortcut].SetValue(next.Shortcut)
	m.inputs[fieldSource].SetValue(next.SourceLang)
	m.inputs[fieldTarget].SetValue(next.TargetLang)

	if m.autostart != nil {
		if err := m.autostart.Set(next.AutoStart); err != nil {
			m.logger.Warn("failed to update autostart", "error", err)
			return m, status("Saved, but autostart failed: "+err.Error(), true)
		}
	}

	m.logger.Debug("settings saved", "path", m.path)
	return m, status("Settings saved", false)
}

func (m Model) testKey() (tea.Model, tea.Cmd) {
	if m.validator == nil {
		return m, status("API key check unavailable", true)
	}
	if m.testing {
		return m, nil
	}

	apiKey := strings.TrimSpace(m.inputs[fieldAPIKey].Value())
	if apiKey == "" && m.cfg.APIKeyFromEnv() {
		apiKey = m.cfg.APIKey
	}

	m.testing = true
	m.statusMsg = "Checking API key..."
	m.statusErr = false

	validator := m.validator
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), KeyTestTimeout)
		defer cancel()
		return keyCheckMsg{err: validator.ValidateKey(ctx, apiKey)}
	}
}

func status(text string, isErr bool) tea.Cmd {
	return func() tea.Msg {
		return statusMsg{text: text, isErr: isErr}
	}
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Width(18)
	focusedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true).Width(18)
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

// View renders the TUI.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("poptrans settings"))
	b.WriteString("\n\n")

	for i := 0; i < fieldCount; i++ {
		label := labelStyle
		cursor := "  "
		if i == m.focus {
			label = focusedStyle
			cursor = "> "
		}
		b.WriteString(cursor + label.Render(fieldLabels[i]))

		if i == fieldAutostart {
			box := "[ ]"
			if m.autostartOn {
				box = "[x]"
			}
			b.WriteString(box)
		} else {
			b.WriteString(m.inputs[i].View())
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.statusMsg != "" {
		style := okStyle
		if m.statusErr {
			style = errStyle
		}
		b.WriteString(style.Render(m.statusMsg))
	}
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))

	return b.String()
}

// Run opens the settings editor on the terminal and returns the model it
// finished with.
func Run(opts Options) (Model, error) {
	p := tea.NewProgram(New(opts), tea.WithAltScreen())

	final, err := p.Run()
	if err != nil {
		return Model{}, err
	}
	m, ok := final.(Model)
	if !ok {
		return Model{}, errors.New("settings editor exited unexpectedly")
	}
	return m, nil
}
