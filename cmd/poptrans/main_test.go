package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/poptrans/internal/config"
)

func TestParseDmenuSelection(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"3", "3"},
		{"  01J8ZQ5T3KX9V2M4N6P8R0S2T4 \n", "01J8ZQ5T3KX9V2M4N6P8R0S2T4"},
		{"3 | 5 minutes ago | EN-ZH | hello → 你好", "3"},
		{"12|now|EN-DE|a → b", "12"},
		{"x | y", "x | y"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseDmenuSelection(tt.input))
		})
	}
}

func TestGenerateWaybarStatus(t *testing.T) {
	tests := []struct {
		name  string
		state daemonState
		want  WaybarStatus
	}{
		{
			name:  "stopped",
			state: daemonState{},
			want:  WaybarStatus{Alt: "stopped", Class: "stopped", Tooltip: "poptransd is not running"},
		},
		{
			name:  "hidden",
			state: daemonState{Running: true, State: "hidden"},
			want:  WaybarStatus{Alt: "hidden", Class: "hidden", Tooltip: "poptransd is running"},
		},
		{
			name:  "loading",
			state: daemonState{Running: true, State: "loading"},
			want:  WaybarStatus{Text: "…", Alt: "loading", Class: "loading", Tooltip: "Translating"},
		},
		{
			name:  "done",
			state: daemonState{Running: true, State: "done", Text: "你好"},
			want:  WaybarStatus{Text: "你好", Alt: "done", Class: "done", Tooltip: "你好"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, generateWaybarStatus(tt.state, 40))
		})
	}
}

func TestGenerateWaybarStatus_TruncatesText(t *testing.T) {
	long := strings.Repeat("word ", 30)
	status := generateWaybarStatus(daemonState{Running: true, State: "done", Text: long}, 20)

	assert.LessOrEqual(t, len([]rune(status.Text)), 20)
	assert.Equal(t, long, status.Tooltip)

	status = generateWaybarStatus(daemonState{Running: true, State: "done", Text: long}, 0)
	assert.Equal(t, long, status.Text)
}

func TestWriteWaybar(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeWaybar(&buf, WaybarStatus{Alt: "stopped", Class: "stopped"}))
	assert.Equal(t, `{"text":"","alt":"stopped","class":"stopped"}`+"\n", buf.String())
}

func TestWriteStatus(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeStatus(&buf, daemonState{}))
	assert.Equal(t, "poptransd: not running\n", buf.String())

	buf.Reset()
	require.NoError(t, writeStatus(&buf, daemonState{Running: true, State: "done", Text: "hola"}))
	assert.Equal(t, "poptransd: running\npopup: done\ntext: hola\n", buf.String())
}

func TestInputText(t *testing.T) {
	text, err := inputText([]string{"hello"}, strings.NewReader("ignored"))
	require.NoError(t, err)
	assert.Equal(t, "hello", text)

	text, err = inputText(nil, strings.NewReader("from stdin\n"))
	require.NoError(t, err)
	assert.Equal(t, "from stdin", text)

	text, err = inputText([]string{"-"}, strings.NewReader("line one\nline two\r\n"))
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two", text)
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		answer string
		want   bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
	}

	for _, tt := range tests {
		var out bytes.Buffer
		got, err := confirm(strings.NewReader(tt.answer), &out, "Really?")
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "answer %q", tt.answer)
		assert.Equal(t, "Really? [y/N] ", out.String())
	}
}

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "", maskKey(""))
	assert.Equal(t, "***", maskKey("abc"))
	assert.Equal(t, "********6789", maskKey("secret-key-6789"))
}

func TestWriteConfig_MasksKey(t *testing.T) {
	cfg := config.Default()
	cfg.APIKey = "secret-key-6789"

	var buf bytes.Buffer
	require.NoError(t, writeConfig(&buf, cfg))

	out := buf.String()
	assert.NotContains(t, out, "secret-key")
	assert.Contains(t, out, "********6789")
	assert.Regexp(t, `target_lang = ['"]ZH['"]`, out)
	assert.Equal(t, "secret-key-6789", cfg.APIKey, "the loaded config is untouched")
}

func TestPlural(t *testing.T) {
	assert.Equal(t, "y", plural(1, "y", "ies"))
	assert.Equal(t, "ies", plural(0, "y", "ies"))
	assert.Equal(t, "ies", plural(2, "y", "ies"))
}
