package output

import (
	"fmt"
	"io"

	"github.com/jmylchreest/poptrans/internal/model"
)

// IDsFormatter outputs just the entry IDs, one per line.
// Useful for piping to other commands (e.g., poptrans history show).
type IDsFormatter struct{}

// NewIDsFormatter creates a new IDs formatter.
func NewIDsFormatter() *IDsFormatter {
	return &IDsFormatter{}
}

// Format writes entry IDs to the writer, one per line.
func (f *IDsFormatter) Format(w io.Writer, entries []model.Entry) error {
	for _, e := range entries {
		if _, err := fmt.Fprintln(w, e.ID); err != nil {
			return err
		}
	}
	return nil
}
