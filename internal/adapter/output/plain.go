package output

import (
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"

	"github.com/jmylchreest/poptrans/internal/model"
)

// bodyIndent is the indent of the source and result text under each header.
const bodyIndent = 4

// PlainFormatter formats entries as wrapped plain text.
type PlainFormatter struct {
	opts     FormatterOptions
	template *template.Template
}

// NewPlainFormatter creates a new plain text formatter.
func NewPlainFormatter(opts FormatterOptions) *PlainFormatter {
	f := &PlainFormatter{opts: opts}

	// Parse custom template if provided
	if opts.Template != "" {
		tmpl, err := template.New("plain").Funcs(templateFuncs()).Parse(opts.Template)
		if err == nil {
			f.template = tmpl
		}
	}

	return f
}

// Format writes entries as plain text.
func (f *PlainFormatter) Format(w io.Writer, entries []model.Entry) error {
	for i := range entries {
		if err := f.formatEntry(w, i+1, &entries[i]); err != nil {
			return err
		}
	}
	return nil
}

// formatEntry formats a single entry.
func (f *PlainFormatter) formatEntry(w io.Writer, index int, e *model.Entry) error {
	// Use custom template if available
	if f.template != nil {
		data := templateData{
			Index:        index,
			Entry:        e,
			RelativeTime: relativeTime(e.Timestamp),
		}
		return f.template.Execute(w, data)
	}

	var sb strings.Builder

	var header []string
	if f.opts.ShowIndex {
		header = append(header, fmt.Sprintf("[%d]", index))
	}
	if f.opts.ShowLangs {
		header = append(header, e.SourceLang+" → "+e.TargetLang)
	}
	if f.opts.ShowTime {
		header = append(header, "("+relativeTime(e.Timestamp)+")")
	}
	if !e.Success {
		header = append(header, "FAILED")
	}
	sb.WriteString(strings.Join(header, " "))
	sb.WriteString("\n")

	sb.WriteString(f.block(e.SourceText))
	if e.Success {
		sb.WriteString(f.block(e.ResultText))
	} else {
		sb.WriteString(f.block("error: " + e.Error))
	}
	sb.WriteString("\n")

	_, err := io.WriteString(w, sb.String())
	return err
}

// block wraps text to the configured width and indents it.
func (f *PlainFormatter) block(text string) string {
	text = strings.TrimSpace(text)
	if f.opts.Width > bodyIndent {
		text = wordwrap.String(text, f.opts.Width-bodyIndent)
	}
	return indent.String(text, bodyIndent) + "\n"
}

// FormatField outputs a specific field from an entry.
func FormatField(e *model.Entry, field string) string {
	switch strings.ToLower(field) {
	case "id":
		return e.ID
	case "source", "source_text", "text":
		return e.SourceText
	case "result", "result_text", "translation":
		return e.ResultText
	case "source_lang", "from":
		return e.SourceLang
	case "target_lang", "to":
		return e.TargetLang
	case "error":
		return e.Error
	case "all", "full":
		return fmt.Sprintf("%s\n%s", e.SourceText, e.ResultText)
	default:
		return e.ResultText
	}
}
