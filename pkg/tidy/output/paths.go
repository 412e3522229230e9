package output

import (
	"bytes"

	"github.com/jamesainslie/tidy/pkg/tidy/types"
)

// PathsFormatter writes one destination path per line for files that were
// moved, or would be moved in a dry run. Suitable for piping.
type PathsFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PathsFormatter) Format(w *bytes.Buffer, r *types.Report) error {
	for _, file := range r.Files {
		if file.Skipped {
			continue
		}
		w.WriteString(file.Target)
		w.WriteByte('\n')
	}
	return nil
}

func init() {
	Register("paths", func() Formatter {
		return &PathsFormatter{}
	})
}

// Ensure PathsFormatter implements Formatter.
var _ Formatter = (*PathsFormatter)(nil)
