package output

import (
	"fmt"
	"io"
	"strings"
	"text/template"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/poptrans/internal/model"
)

// DmenuFormatter formats entries one per line for dmenu/rofi/fuzzel.
type DmenuFormatter struct {
	opts     FormatterOptions
	template *template.Template
}

// NewDmenuFormatter creates a new dmenu formatter.
func NewDmenuFormatter(opts FormatterOptions) *DmenuFormatter {
	f := &DmenuFormatter{opts: opts}

	// Parse custom template if provided
	if opts.Template != "" {
		tmpl, err := template.New("dmenu").Funcs(templateFuncs()).Parse(opts.Template)
		if err == nil {
			f.template = tmpl
		}
	}

	return f
}

// Format writes entries in dmenu format (one per line).
func (f *DmenuFormatter) Format(w io.Writer, entries []model.Entry) error {
	for i := range entries {
		line := f.formatLine(i+1, &entries[i])
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// formatLine formats a single entry line.
func (f *DmenuFormatter) formatLine(index int, e *model.Entry) string {
	// Use custom template if available
	if f.template != nil {
		var buf strings.Builder
		data := templateData{
			Index:        index,
			Entry:        e,
			RelativeTime: relativeTime(e.Timestamp),
		}
		if err := f.template.Execute(&buf, data); err == nil {
			return buf.String()
		}
	}

	// Default format: index | time | langs | source → result
	var parts []string
	sep := f.opts.Separator
	if sep == "" {
		sep = " | "
	}

	if f.opts.ShowIndex {
		parts = append(parts, fmt.Sprintf("%d", index))
	}

	if f.opts.ShowTime {
		parts = append(parts, relativeTime(e.Timestamp))
	}

	if f.opts.ShowLangs {
		parts = append(parts, e.SourceLang+"-"+e.TargetLang)
	}

	outcome := e.ResultText
	if !e.Success {
		outcome = "error: " + e.Error
	}
	parts = append(parts, oneLine(e.SourceText, f.opts.MaxLen)+" → "+oneLine(outcome, f.opts.MaxLen))

	return strings.Join(parts, sep)
}

// oneLine collapses s to a single line of at most maxLen runes (0 = unlimited).
func oneLine(s string, maxLen int) string {
	if maxLen <= 0 {
		return strings.Join(strings.Fields(s), " ")
	}
	return model.Summary(s, maxLen)
}

// templateData provides data for custom templates.
type templateData struct {
	Index        int
	Entry        *model.Entry
	RelativeTime string
}

// templateFuncs returns template helper functions.
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"truncate": model.Summary,
		"reltime":  relativeTime,
	}
}

// relativeTime returns a human-readable relative time string.
func relativeTime(timestamp int64) string {
	if timestamp == 0 {
		return "unknown"
	}
	t := time.Unix(timestamp, 0)
	if time.Since(t) < time.Minute {
		return "now"
	}
	return humanize.Time(t)
}
