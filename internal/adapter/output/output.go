// Package output provides output formatters for translation history.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/jmylchreest/poptrans/internal/model"
)

// Formatter formats history entries for output.
type Formatter interface {
	// Format writes formatted entries to the writer.
	Format(w io.Writer, entries []model.Entry) error
}

// FormatType represents an output format type.
type FormatType string

const (
	FormatPlain FormatType = "plain"
	FormatDmenu FormatType = "dmenu"
	FormatJSON  FormatType = "json"
	FormatYAML  FormatType = "yaml"
	FormatIDs   FormatType = "ids"
)

// FormatTypes lists the accepted format names.
func FormatTypes() []FormatType {
	return []FormatType{FormatPlain, FormatDmenu, FormatJSON, FormatYAML, FormatIDs}
}

// ParseFormat parses a --format value.
func ParseFormat(s string) (FormatType, error) {
	f := FormatType(strings.ToLower(strings.TrimSpace(s)))
	if f == "" {
		return FormatPlain, nil
	}
	for _, known := range FormatTypes() {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown format %q (use plain, dmenu, json, yaml or ids)", s)
}

// NewFormatter creates a formatter for the specified format type.
func NewFormatter(format FormatType, opts FormatterOptions) Formatter {
	switch format {
	case FormatJSON:
		return NewJSONFormatter(opts)
	case FormatYAML:
		return NewYAMLFormatter(opts)
	case FormatDmenu:
		return NewDmenuFormatter(opts)
	case FormatIDs:
		return NewIDsFormatter()
	case FormatPlain:
		fallthrough
	default:
		return NewPlainFormatter(opts)
	}
}

// FormatterOptions configures formatter behavior.
type FormatterOptions struct {
	Template  string // Custom template for dmenu/plain format
	ShowIndex bool   // Show 1-based index prefix
	ShowTime  bool   // Show relative time
	ShowLangs bool   // Show the language pair
	Width     int    // Wrap width for plain text (0 = no wrapping)
	MaxLen    int    // Maximum text length for dmenu lines (0 = unlimited)
	Separator string // Field separator for dmenu format
}

// DefaultFormatterOptions returns sensible defaults for terminal output.
func DefaultFormatterOptions() FormatterOptions {
	return FormatterOptions{
		ShowIndex: true,
		ShowTime:  true,
		ShowLangs: true,
		Width:     80,
		MaxLen:    80,
		Separator: " | ",
	}
}
