package daemon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/poptrans/internal/config"
)

func TestSetupHint(t *testing.T) {
	tests := []struct {
		name           string
		apiKey         string
		firstRun       bool
		shortcutFailed bool
		want           string
	}{
		{"configured", "key", true, false, ""},
		{"not first run", "", false, true, ""},
		{"no key", "", true, false, "No API key is set."},
		{"shortcut failed", "key", true, true, "The shortcut Ctrl+Q could not be registered."},
		{"both", "", true, true, "No API key is set and the shortcut Ctrl+Q could not be registered."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.APIKey = tt.apiKey
			cfg.FirstRun = tt.firstRun
			assert.Equal(t, tt.want, SetupHint(cfg, tt.shortcutFailed))
		})
	}
}

func TestCheckFirstRun(t *testing.T) {
	sent := &sentNotes{}
	notifier := NewInternalNotifier(sent.send, nil)

	cfg := config.Default()
	assert.True(t, CheckFirstRun(cfg, false, notifier, nil))
	require.Len(t, sent.notes, 1)
	assert.Contains(t, sent.notes[0].Body, "No API key")

	cfg.APIKey = "key"
	assert.False(t, CheckFirstRun(cfg, false, notifier, nil))
	assert.Len(t, sent.notes, 1)
}
