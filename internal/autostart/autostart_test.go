package autostart

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntry_EnableDisable(t *testing.T) {
	e := Entry{Dir: filepath.Join(t.TempDir(), "autostart"), Exec: "/usr/bin/poptransd"}

	assert.False(t, e.Enabled())
	require.NoError(t, e.Set(false), "disabling an absent entry is fine")

	require.NoError(t, e.Set(true))
	assert.True(t, e.Enabled())

	data, err := os.ReadFile(e.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "[Desktop Entry]")
	assert.Contains(t, string(data), "Exec=/usr/bin/poptransd\n")
	assert.Contains(t, string(data), "Type=Application")

	require.NoError(t, e.Set(false))
	assert.False(t, e.Enabled())
}

func TestQuoteExec(t *testing.T) {
	assert.Equal(t, "poptransd", quoteExec("poptransd"))
	assert.Equal(t, `"/opt/my apps/poptransd"`, quoteExec("/opt/my apps/poptransd"))
	assert.Equal(t, `"/opt/a\$b c"`, quoteExec("/opt/a$b c"))
}

func TestDefault(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	e, err := Default()
	require.NoError(t, err)
	assert.Equal(t, "autostart", filepath.Base(e.Dir))
	assert.NotEmpty(t, e.Exec)
}
