package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "", cfg.APIKey)
	assert.Equal(t, "EN", cfg.SourceLang)
	assert.Equal(t, "ZH", cfg.TargetLang)
	assert.Equal(t, 1500, cfg.AutoCloseTimeout.Milliseconds())
	assert.Equal(t, "Ctrl+Q", cfg.Shortcut)
	assert.False(t, cfg.AutoStart)
	assert.True(t, cfg.FirstRun)
	assert.Equal(t, "https://api.deeplx.org", cfg.API.Endpoint)
	assert.Equal(t, 10*time.Second, cfg.API.Timeout.Duration())
	assert.True(t, cfg.History.Enabled)
	assert.False(t, cfg.Sound.Enabled)
	assert.True(t, cfg.Tray.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_DefaultsWhenNoFile(t *testing.T) {
	t.Setenv(EnvAPIKey, "")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing", "config.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Shortcut, cfg.Shortcut)
	assert.Equal(t, "", cfg.APIKey)
}

func TestLoad_ParsesTOML(t *testing.T) {
	t.Setenv(EnvAPIKey, "")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	content := `
api_key = "abc123"
source_lang = "de"
target_lang = "en-gb"
auto_close_timeout = 3000
shortcut = "alt + shift + t"
first_run = false

[display]
show_errors = true
scale = 1.5

[sound]
enabled = true
volume = 0.25

[api]
endpoint = "http://localhost:1188/"
timeout = "3s"
retries = 0
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "abc123", cfg.APIKey)
	assert.Equal(t, "DE", cfg.SourceLang)
	assert.Equal(t, "EN-GB", cfg.TargetLang)
	assert.Equal(t, 3*time.Second, cfg.AutoCloseTimeout.Duration())
	assert.Equal(t, "Alt+Shift+T", cfg.Shortcut)
	assert.False(t, cfg.FirstRun)
	assert.True(t, cfg.Display.ShowErrors)
	assert.Equal(t, 1.5, cfg.Display.Scale)
	assert.True(t, cfg.Sound.Enabled)
	assert.Equal(t, 0.25, cfg.Sound.Volume)
	assert.Equal(t, "http://localhost:1188", cfg.API.Endpoint)
	assert.Equal(t, 3*time.Second, cfg.API.Timeout.Duration())
	assert.Equal(t, 0, cfg.API.Retries)

	// Unset sections keep their defaults
	assert.True(t, cfg.History.Enabled)
	assert.Equal(t, DefaultHistoryEntries, cfg.History.MaxEntries)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad toml", `api_key = `},
		{"bad duration", `auto_close_timeout = "soon"`},
		{"timeout too short", `auto_close_timeout = 10`},
		{"bad shortcut", `shortcut = "Ctrl+Shift"`},
		{"bad language", `source_lang = "english"`},
		{"bad volume", "[sound]\nvolume = 2.0"},
		{"bad endpoint", "[api]\nendpoint = \"ftp://x\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0600))

			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestLoad_APIKeyFromEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	t.Setenv(EnvAPIKey, "from-env")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.APIKey)
	assert.True(t, cfg.APIKeyFromEnv())

	// Saving never persists the environment key
	require.NoError(t, Save(path, cfg))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "from-env")
}

func TestConfig_SetAPIKeyOverridesEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	t.Setenv(EnvAPIKey, "from-env")
	cfg, err := Load(path)
	require.NoError(t, err)

	cfg.SetAPIKey("  typed-key ")
	assert.False(t, cfg.APIKeyFromEnv())
	require.NoError(t, Save(path, cfg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "typed-key")
}

func TestLoad_APIKeyFromDotenv(t *testing.T) {
	t.Setenv(EnvAPIKey, "")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(filepath.Join(dir, EnvFile), []byte("POPTRANS_API_KEY=dotenv-key\n"), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "dotenv-key", cfg.APIKey)

	// A key in the file wins over the environment
	require.NoError(t, os.WriteFile(path, []byte(`api_key = "file-key"`), 0600))
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, "file-key", cfg.APIKey)
	assert.False(t, cfg.APIKeyFromEnv())
}

func TestSave_RoundTrip(t *testing.T) {
	t.Setenv(EnvAPIKey, "")
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg := Default()
	cfg.APIKey = "k"
	cfg.TargetLang = "JA"
	cfg.AutoCloseTimeout = Duration(2500 * time.Millisecond)
	cfg.FirstRun = false

	require.NoError(t, Save(path, cfg))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "k", loaded.APIKey)
	assert.Equal(t, "JA", loaded.TargetLang)
	assert.Equal(t, 2500, loaded.AutoCloseTimeout.Milliseconds())
	assert.False(t, loaded.FirstRun)
}

func TestDuration_UnmarshalText(t *testing.T) {
	tests := []struct {
		input string
		want  time.Duration
	}{
		{"1500", 1500 * time.Millisecond},
		{"0", 0},
		{"2s", 2 * time.Second},
		{"750ms", 750 * time.Millisecond},
		{"1m30s", 90 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var d Duration
			require.NoError(t, d.UnmarshalText([]byte(tt.input)))
			assert.Equal(t, tt.want, d.Duration())
		})
	}

	var d Duration
	assert.Error(t, d.UnmarshalText([]byte("later")))
}

func TestConfig_Settings(t *testing.T) {
	cfg := Default()
	cfg.Display.ShowErrors = true

	s := cfg.Settings()
	assert.Equal(t, 1500*time.Millisecond, s.AutoCloseTimeout)
	assert.Equal(t, "EN", s.SourceLang)
	assert.Equal(t, "ZH", s.TargetLang)
	assert.True(t, s.ShowErrors)
}

func TestConfig_NeedsSetup(t *testing.T) {
	cfg := Default()
	assert.True(t, cfg.NeedsSetup(false))

	cfg.APIKey = "k"
	assert.False(t, cfg.NeedsSetup(false))
	assert.True(t, cfg.NeedsSetup(true))

	cfg.FirstRun = false
	assert.False(t, cfg.NeedsSetup(true))
}

func TestConfig_ThemePath(t *testing.T) {
	cfg := Default()
	_, ok := cfg.ThemePath()
	assert.False(t, ok)

	cfg.Display.Theme = "/tmp/custom.css"
	path, ok := cfg.ThemePath()
	assert.True(t, ok)
	assert.Equal(t, "/tmp/custom.css", path)
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	t.Setenv(EnvAPIKey, "")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, Save(path, Default()))

	changes := make(chan *Config, 4)
	w, err := NewWatcher(path, func(c *Config) { changes <- c }, nil)
	require.NoError(t, err)
	w.SetDelay(10 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer func() { _ = w.Stop() }()

	cfg := Default()
	cfg.TargetLang = "FR"
	require.NoError(t, Save(path, cfg))

	select {
	case got := <-changes:
		assert.Equal(t, "FR", got.TargetLang)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for config reload")
	}
}

func TestWatcher_ReportsInvalidFile(t *testing.T) {
	t.Setenv(EnvAPIKey, "")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, Save(path, Default()))

	changes := make(chan *Config, 4)
	errs := make(chan error, 4)
	w, err := NewWatcher(path, func(c *Config) { changes <- c }, nil)
	require.NoError(t, err)
	w.SetDelay(10 * time.Millisecond)
	w.SetErrorCallback(func(err error) { errs <- err })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer func() { _ = w.Stop() }()

	require.NoError(t, os.WriteFile(path, []byte("target_lang = \"french\"\n"), 0o600))

	select {
	case err := <-errs:
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload error")
	}
	assert.Empty(t, changes)
}
