package output

import (
	"bytes"
	"fmt"

	"github.com/jamesainslie/tidy/pkg/tidy/types"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Alignment is a column alignment for RenderTable.
type Alignment int

// Column alignments.
const (
	AlignLeft Alignment = iota
	AlignRight
)

// RenderTable renders rows under headers as a rounded go-pretty table.
// Short rows are padded with empty cells.
func RenderTable(headers []string, rows [][]string, aligns []Alignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := range headers {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == AlignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

// TableFormatter renders one row per file plus a summary line.
type TableFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *TableFormatter) Format(w *bytes.Buffer, r *types.Report) error {
	rows := make([][]string, 0, len(r.Files)+len(r.Errors))
	for _, file := range r.Files {
		rows = append(rows, []string{
			displayPath(r.Source, file.Source),
			file.Category,
			fmt.Sprintf("%.2f", file.Confidence),
			methodLabel(file.PrimaryMethod),
			displayPath(r.Target, file.Target),
			status(file),
		})
	}
	for _, e := range r.Errors {
		rows = append(rows, []string{displayPath(r.Source, e.Path), "", "", "", e.Error, "error"})
	}

	if len(rows) > 0 {
		w.WriteString(RenderTable(
			[]string{"SOURCE", "CATEGORY", "CONF", "METHOD", "TARGET", "STATUS"},
			rows,
			[]Alignment{AlignLeft, AlignLeft, AlignRight},
		))
		w.WriteString("\n")
	}

	fmt.Fprintf(w, "%d processed, %d moved, %d errors, %.1f%% success in %s\n",
		r.Stats.FilesProcessed, r.Stats.FilesMoved, r.Stats.Errors,
		r.Stats.SuccessRate(), formatDuration(r.Stats.Duration()))
	if r.Interrupted {
		w.WriteString("interrupted\n")
	}
	return nil
}

func init() {
	Register("table", func() Formatter {
		return &TableFormatter{}
	})
}

// Ensure TableFormatter implements Formatter.
var _ Formatter = (*TableFormatter)(nil)
