// Package config handles poptrans configuration file loading and saving.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/jmylchreest/poptrans/internal/model"
	"github.com/jmylchreest/poptrans/internal/shortcut"
)

// AppName is used for config, data and autostart paths.
const AppName = "poptrans"

// Default configuration values.
const (
	DefaultSourceLang       = "EN"
	DefaultTargetLang       = "ZH"
	DefaultShortcut         = "Ctrl+Q"
	DefaultAutoCloseTimeout = 1500 * time.Millisecond
	DefaultEndpoint         = "https://api.deeplx.org"
	DefaultAPITimeout       = 10 * time.Second
	DefaultAPIRetries       = 2
	DefaultThemeName        = "default"
	DefaultSoundVolume      = 0.6
	DefaultHistoryEntries   = 500
	DefaultTerminal         = "xdg-terminal-exec"

	// MinAutoCloseTimeout keeps the popup on screen long enough to be read.
	MinAutoCloseTimeout = 100 * time.Millisecond
)

// Duration is a time.Duration that can be unmarshaled from human-readable strings.
// Supports formats like "1500ms", "2s", "1m", or integer milliseconds.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for TOML parsing.
func (d *Duration) UnmarshalText(text []byte) error {
	s := strings.Trim(string(text), `"`)

	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: must be like '1500ms', '2s' or milliseconds: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

// MarshalText implements encoding.TextMarshaler for TOML output.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Milliseconds returns the duration in milliseconds.
func (d Duration) Milliseconds() int {
	return int(time.Duration(d).Milliseconds())
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Config is the poptrans configuration.
// Loaded from ~/.config/poptrans/config.toml
type Config struct {
	APIKey           string   `toml:"api_key"`
	SourceLang       string   `toml:"source_lang"`
	TargetLang       string   `toml:"target_lang"`
	AutoCloseTimeout Duration `toml:"auto_close_timeout"`
	Shortcut         string   `toml:"shortcut"`
	AutoStart        bool     `toml:"auto_start"`
	FirstRun         bool     `toml:"first_run"`

	Display DisplayConfig `toml:"display"`
	Sound   SoundConfig   `toml:"sound"`
	History HistoryConfig `toml:"history"`
	API     APIConfig     `toml:"api"`
	Tray    TrayConfig    `toml:"tray"`

	// apiKeyFromEnv is set when APIKey came from POPTRANS_API_KEY rather than
	// the file; Save never writes such a key back.
	apiKeyFromEnv bool
}

// DisplayConfig contains popup display settings.
type DisplayConfig struct {
	Scale      float64 `toml:"scale"`       // 0 = detect from the monitor
	ShowErrors bool    `toml:"show_errors"` // Show failed translations instead of dropping them
	Theme      string  `toml:"theme"`       // Bundled theme name or path to a .css file
	Monitor    int     `toml:"monitor"`     // 0 = follow the anchor, 1+ = specific monitor
}

// SoundConfig contains the popup chime settings.
type SoundConfig struct {
	Enabled bool    `toml:"enabled"`
	File    string  `toml:"file"`   // wav, mp3 or ogg; empty = built-in blip
	Volume  float64 `toml:"volume"` // 0.0-1.0
}

// HistoryConfig contains translation history settings.
type HistoryConfig struct {
	Enabled    bool `toml:"enabled"`
	MaxEntries int  `toml:"max_entries"` // 0 = unlimited
}

// APIConfig contains DeepLX endpoint settings.
type APIConfig struct {
	Endpoint string   `toml:"endpoint"`
	Timeout  Duration `toml:"timeout"`
	Retries  int      `toml:"retries"`
}

// TrayConfig contains tray icon settings.
type TrayConfig struct {
	Enabled  bool   `toml:"enabled"`
	Terminal string `toml:"terminal"` // Used to open the settings editor
}

// Default returns a new Config with default values.
func Default() *Config {
	return &Config{
		SourceLang:       DefaultSourceLang,
		TargetLang:       DefaultTargetLang,
		AutoCloseTimeout: Duration(DefaultAutoCloseTimeout),
		Shortcut:         DefaultShortcut,
		FirstRun:         true,
		Display: DisplayConfig{
			Theme: DefaultThemeName,
		},
		Sound: SoundConfig{
			Volume: DefaultSoundVolume,
		},
		History: HistoryConfig{
			Enabled:    true,
			MaxEntries: DefaultHistoryEntries,
		},
		API: APIConfig{
			Endpoint: DefaultEndpoint,
			Timeout:  Duration(DefaultAPITimeout),
			Retries:  DefaultAPIRetries,
		},
		Tray: TrayConfig{
			Enabled:  true,
			Terminal: DefaultTerminal,
		},
	}
}

// Dir returns the poptrans config directory.
func Dir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, AppName), nil
}

// Path returns the path to the config file.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// DataDir returns the poptrans data directory ($XDG_DATA_HOME/poptrans).
func DataDir() (string, error) {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", AppName), nil
}

// HistoryPath returns the path to the history file.
func HistoryPath() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history.jsonl"), nil
}

// Load loads the configuration from path.
// If the file doesn't exist, returns the default configuration.
// An empty api_key is filled from POPTRANS_API_KEY or a .env file beside the config.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err == nil {
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.applyEnv(filepath.Join(filepath.Dir(path), EnvFile)); err != nil {
		return nil, err
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadDefault loads the configuration from the default path.
func LoadDefault() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, fmt.Errorf("failed to get config path: %w", err)
	}
	return Load(path)
}

// Save writes the configuration to path atomically.
func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	out := *cfg
	if out.apiKeyFromEnv {
		out.APIKey = ""
	}

	data, err := toml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write atomically via temp file
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return os.Rename(tmpPath, path)
}

var langPattern = regexp.MustCompile(`^[A-Z]{2}(-[A-Z]{2,4})?$`)

// normalize upper-cases language codes and canonicalizes the shortcut.
func (c *Config) normalize() {
	c.SourceLang = strings.ToUpper(strings.TrimSpace(c.SourceLang))
	c.TargetLang = strings.ToUpper(strings.TrimSpace(c.TargetLang))
	c.APIKey = strings.TrimSpace(c.APIKey)
	if canon, err := shortcut.Canonical(c.Shortcut); err == nil {
		c.Shortcut = canon
	}
	c.API.Endpoint = strings.TrimRight(c.API.Endpoint, "/")
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if !langPattern.MatchString(c.SourceLang) {
		return fmt.Errorf("invalid source_lang %q", c.SourceLang)
	}
	if !langPattern.MatchString(c.TargetLang) {
		return fmt.Errorf("invalid target_lang %q", c.TargetLang)
	}

	if c.AutoCloseTimeout.Duration() < MinAutoCloseTimeout {
		return fmt.Errorf("auto_close_timeout must be at least %s, got %s",
			MinAutoCloseTimeout, c.AutoCloseTimeout.Duration())
	}

	if err := shortcut.Validate(c.Shortcut); err != nil {
		return fmt.Errorf("invalid shortcut %q: %w", c.Shortcut, err)
	}

	if c.Display.Scale < 0 || c.Display.Scale > 8 {
		return fmt.Errorf("scale must be between 0 and 8, got %v", c.Display.Scale)
	}
	if c.Display.Monitor < 0 {
		return fmt.Errorf("monitor must be 0 or greater, got %d", c.Display.Monitor)
	}

	if c.Sound.Volume < 0 || c.Sound.Volume > 1 {
		return fmt.Errorf("volume must be between 0 and 1, got %v", c.Sound.Volume)
	}

	if c.History.MaxEntries < 0 {
		return fmt.Errorf("max_entries must be 0 or greater, got %d", c.History.MaxEntries)
	}

	if !strings.HasPrefix(c.API.Endpoint, "http://") && !strings.HasPrefix(c.API.Endpoint, "https://") {
		return fmt.Errorf("endpoint must be an http(s) URL, got %q", c.API.Endpoint)
	}
	if c.API.Timeout.Duration() <= 0 {
		return fmt.Errorf("api timeout must be positive, got %s", c.API.Timeout.Duration())
	}
	if c.API.Retries < 0 || c.API.Retries > 10 {
		return fmt.Errorf("retries must be between 0 and 10, got %d", c.API.Retries)
	}

	return nil
}

// Settings returns the snapshot consumed by the popup controller.
func (c *Config) Settings() model.Settings {
	return model.Settings{
		AutoCloseTimeout: c.AutoCloseTimeout.Duration(),
		SourceLang:       c.SourceLang,
		TargetLang:       c.TargetLang,
		ShowErrors:       c.Display.ShowErrors,
	}
}

// NeedsSetup reports whether the first-run setup hint should be shown.
func (c *Config) NeedsSetup(shortcutFailed bool) bool {
	return c.FirstRun && (c.APIKey == "" || shortcutFailed)
}

// APIKeyFromEnv reports whether the API key was supplied by the environment.
func (c *Config) APIKeyFromEnv() bool {
	return c.apiKeyFromEnv
}

// SetAPIKey replaces the API key. A key set this way is written by Save even
// when the loaded key came from the environment.
func (c *Config) SetAPIKey(key string) {
	c.APIKey = strings.TrimSpace(key)
	c.apiKeyFromEnv = false
}

// SoundFile returns the chime path with ~ expanded.
func (c *Config) SoundFile() string {
	return expandPath(c.Sound.File)
}

// ThemePath returns the theme as a file path when it names a .css file.
func (c *Config) ThemePath() (string, bool) {
	if strings.HasSuffix(c.Display.Theme, ".css") {
		return expandPath(c.Display.Theme), true
	}
	return "", false
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
