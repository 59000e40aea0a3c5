package output

import (
	"encoding/json"
	"io"

	"github.com/jmylchreest/poptrans/internal/model"
)

// JSONFormatter formats entries as JSON.
type JSONFormatter struct {
	opts FormatterOptions
}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter(opts FormatterOptions) *JSONFormatter {
	return &JSONFormatter{opts: opts}
}

// Format writes entries as a JSON array.
func (f *JSONFormatter) Format(w io.Writer, entries []model.Entry) error {
	if entries == nil {
		entries = []model.Entry{}
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	return encoder.Encode(entries)
}

// FormatSingle writes a single entry as JSON.
func (f *JSONFormatter) FormatSingle(w io.Writer, e *model.Entry) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	return encoder.Encode(e)
}
