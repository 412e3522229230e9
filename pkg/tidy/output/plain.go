package output

import (
	"bytes"
	"fmt"
	"text/tabwriter"

	"github.com/jamesainslie/tidy/pkg/tidy/types"
)

// PlainFormatter formats output as an aligned, unstyled table suitable for
// scripting. Errors follow the table, one per line.
type PlainFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PlainFormatter) Format(w *bytes.Buffer, r *types.Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)

	if _, err := fmt.Fprintln(tw, "STATUS\tCATEGORY\tCONF\tSOURCE\tTARGET"); err != nil {
		return err
	}
	for _, file := range r.Files {
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%.2f\t%s\t%s\n",
			status(file), file.Category, file.Confidence, file.Source, file.Target); err != nil {
			return err
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, e := range r.Errors {
		fmt.Fprintf(w, "error %s: %s\n", e.Path, e.Error)
	}

	fmt.Fprintf(w, "processed=%d moved=%d errors=%d success_rate=%.1f duration=%.3fs",
		r.Stats.FilesProcessed, r.Stats.FilesMoved, r.Stats.Errors,
		r.Stats.SuccessRate(), r.Stats.DurationSeconds())
	if r.DryRun {
		w.WriteString(" dry_run=true")
	}
	if r.Interrupted {
		w.WriteString(" interrupted=true")
	}
	w.WriteString("\n")
	return nil
}

func init() {
	Register("plain", func() Formatter {
		return &PlainFormatter{}
	})
}

// Ensure PlainFormatter implements Formatter.
var _ Formatter = (*PlainFormatter)(nil)
