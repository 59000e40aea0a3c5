package theme

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// ErrThemeNotFound is returned when a theme name matches no user or bundled theme.
var ErrThemeNotFound = errors.New("theme not found")

// importRegex matches @import "file.css"; @import 'file.css'; and @import url("file.css");
var importRegex = regexp.MustCompile(`@import\s+(?:url\s*\(\s*)?["']([^"']+)["']\s*\)?;?`)

// Theme is a resolved stylesheet.
type Theme struct {
	Name    string
	Path    string // empty for bundled themes
	CSS     string // imports already inlined
	ModTime time.Time
	Bundled bool
}

// ThemesDir returns the user's themes directory.
func ThemesDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "poptrans", "themes"), nil
}

// Resolve finds a theme. spec is either a path ending in .css or a theme
// name, looked up first in themesDir and then among the bundled themes.
// An empty spec selects the default theme.
func Resolve(spec, themesDir string) (*Theme, error) {
	if spec == "" {
		spec = DefaultThemeName
	}

	if strings.HasSuffix(spec, ".css") {
		return NewTheme(strings.TrimSuffix(filepath.Base(spec), ".css"), spec)
	}

	if themesDir != "" {
		userPath := filepath.Join(themesDir, spec+".css")
		if _, err := os.Stat(userPath); err == nil {
			return NewTheme(spec, userPath)
		}
	}

	if css, ok := GetEmbeddedTheme(spec); ok {
		return &Theme{
			Name:    spec,
			CSS:     ProcessImports(css, "", nil),
			Bundled: true,
		}, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrThemeNotFound, spec)
}

// NewDefaultTheme returns the bundled default theme.
func NewDefaultTheme() *Theme {
	css, _ := GetEmbeddedTheme(DefaultThemeName)
	return &Theme{
		Name:    DefaultThemeName,
		CSS:     ProcessImports(css, "", nil),
		Bundled: true,
	}
}

// NewTheme reads a theme from a CSS file and inlines its imports.
func NewTheme(name, path string) (*Theme, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	css, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return &Theme{
		Name:    name,
		Path:    path,
		CSS:     ProcessImports(string(css), filepath.Dir(path), nil),
		ModTime: info.ModTime(),
	}, nil
}

// ProcessImports inlines @import statements. Files are resolved relative to
// baseDir; names starting with an underscore also resolve to bundled
// partials. seen guards against import cycles.
func ProcessImports(css, baseDir string, seen map[string]bool) string {
	if seen == nil {
		seen = make(map[string]bool)
	}

	return importRegex.ReplaceAllStringFunc(css, func(match string) string {
		sub := importRegex.FindStringSubmatch(match)
		if len(sub) < 2 {
			return match
		}
		importPath := sub[1]

		fullPath := importPath
		if !filepath.IsAbs(importPath) {
			fullPath = filepath.Join(baseDir, importPath)
		}
		if seen[fullPath] {
			return "/* circular import skipped: " + importPath + " */"
		}
		seen[fullPath] = true

		var readErr error
		if baseDir != "" || filepath.IsAbs(importPath) {
			data, err := os.ReadFile(fullPath)
			if err == nil {
				return "/* imported: " + importPath + " */\n" +
					ProcessImports(string(data), filepath.Dir(fullPath), seen)
			}
			readErr = err
		}

		base := filepath.Base(importPath)
		if strings.HasPrefix(base, "_") {
			if partial, ok := GetEmbeddedPartial(base); ok {
				return "/* imported (bundled): " + importPath + " */\n" + partial
			}
		}
		if bundled, ok := GetEmbeddedTheme(strings.TrimSuffix(base, ".css")); ok {
			return "/* imported (bundled): " + importPath + " */\n" + ProcessImports(bundled, "", seen)
		}

		if readErr == nil {
			readErr = errNoBundledFile
		}
		return "/* import failed: " + importPath + ": " + readErr.Error() + " */"
	})
}

var errNoBundledFile = errors.New("no such bundled file")

// Reload re-reads a file theme if its modification time moved forward and
// reports whether the CSS changed. Bundled themes never change.
func (t *Theme) Reload() (bool, error) {
	if t.Bundled {
		return false, nil
	}

	info, err := os.Stat(t.Path)
	if err != nil {
		return false, err
	}
	if !info.ModTime().After(t.ModTime) {
		return false, nil
	}

	data, err := os.ReadFile(t.Path)
	if err != nil {
		return false, err
	}

	css := ProcessImports(string(data), filepath.Dir(t.Path), nil)
	changed := css != t.CSS
	t.CSS = css
	t.ModTime = info.ModTime()
	return changed, nil
}

// Info describes an available theme.
type Info struct {
	Name    string
	Path    string
	Bundled bool
	// Overrides is set for a user theme that shadows a bundled one.
	Overrides bool
}

// ListAvailable lists bundled themes followed by the user's themes in themesDir.
func ListAvailable(themesDir string) ([]Info, error) {
	var out []Info
	index := make(map[string]int)
	for _, name := range ListEmbeddedThemes() {
		index[name] = len(out)
		out = append(out, Info{Name: name, Bundled: true})
	}

	if themesDir == "" {
		return out, nil
	}
	entries, err := os.ReadDir(themesDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return out, nil
		}
		return out, err
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".css" || strings.HasPrefix(name, "_") {
			continue
		}
		themeName := strings.TrimSuffix(name, ".css")
		path := filepath.Join(themesDir, name)
		if i, ok := index[themeName]; ok {
			out[i] = Info{Name: themeName, Path: path, Overrides: true}
			continue
		}
		out = append(out, Info{Name: themeName, Path: path})
	}
	return out, nil
}
