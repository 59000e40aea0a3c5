package theme

import (
	"embed"
	"io/fs"
	"path"
	"strings"
)

// EmbeddedThemes contains the bundled theme CSS files and partials.
//
//go:embed themes/*.css
var EmbeddedThemes embed.FS

// DefaultThemeName is the name of the built-in default theme.
const DefaultThemeName = "default"

// BundledThemes lists the embedded theme names.
var BundledThemes = []string{"default", "minimal"}

// GetEmbeddedTheme returns a bundled theme's CSS without resolving imports.
func GetEmbeddedTheme(name string) (string, bool) {
	if name == "" || strings.HasPrefix(name, "_") {
		return "", false
	}
	data, err := EmbeddedThemes.ReadFile("themes/" + name + ".css")
	if err != nil {
		return "", false
	}
	return string(data), true
}

// GetEmbeddedPartial returns a bundled partial. Partial names start with an
// underscore; it and the .css extension are added when missing.
func GetEmbeddedPartial(name string) (string, bool) {
	if !strings.HasPrefix(name, "_") {
		name = "_" + name
	}
	if !strings.HasSuffix(name, ".css") {
		name += ".css"
	}
	data, err := EmbeddedThemes.ReadFile("themes/" + name)
	if err != nil {
		return "", false
	}
	return string(data), true
}

// ListEmbeddedThemes returns the names of the bundled themes, excluding partials.
func ListEmbeddedThemes() []string {
	entries, err := fs.ReadDir(EmbeddedThemes, "themes")
	if err != nil {
		return BundledThemes
	}

	var themes []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, "_") || path.Ext(name) != ".css" {
			continue
		}
		themes = append(themes, strings.TrimSuffix(name, ".css"))
	}
	return themes
}

// IsEmbeddedTheme reports whether name is a bundled theme.
func IsEmbeddedTheme(name string) bool {
	_, found := GetEmbeddedTheme(name)
	return found
}
