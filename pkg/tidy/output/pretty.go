package output

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jamesainslie/tidy/pkg/tidy/types"
)

// PrettyFormatter renders the report with lipgloss styling, grouping files
// by category.
type PrettyFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PrettyFormatter) Format(w *bytes.Buffer, r *types.Report) error {
	w.WriteString(f.formatHeader(r))
	w.WriteString("\n")
	w.WriteString(f.formatCategories(r))
	if len(r.Errors) > 0 {
		w.WriteString("\n")
		w.WriteString(f.formatErrors(r))
	}
	w.WriteString(f.formatFooter(r))
	w.WriteString("\n")
	return nil
}

func (f *PrettyFormatter) formatHeader(r *types.Report) string {
	var lines []string

	if r.Source != "" {
		lines = append(lines, LabelStyle.Render("Source:")+" "+ValueStyle.Render(r.Source))
	}
	target := r.Target
	if target == r.Source {
		target += " (in place)"
	}
	lines = append(lines, LabelStyle.Render("Target:")+" "+ValueStyle.Render(target))

	if r.DryRun {
		lines = append(lines, WarningStyle.Bold(true).Render("Dry run: no files were moved"))
	}
	if r.Interrupted {
		lines = append(lines, WarningStyle.Bold(true).Render("Run interrupted by user"))
	}

	return HeaderBox.Render(strings.Join(lines, "\n"))
}

func (f *PrettyFormatter) formatCategories(r *types.Report) string {
	if len(r.Files) == 0 {
		return MutedStyle.Render("  No files to organize") + "\n"
	}

	order, counts := categoryCounts(r)
	var sb strings.Builder

	for _, cat := range order {
		sb.WriteString(fmt.Sprintf("  %s %s\n", CategoryStyle.Render(cat), MutedStyle.Render(fmt.Sprintf("(%d)", counts[cat]))))
		for _, file := range r.Files {
			if file.Category != cat {
				continue
			}
			name := filepath.Base(file.Source)
			line := fmt.Sprintf("    %s", ValueStyle.Render(name))
			if target := filepath.Base(file.Target); target != name {
				line += MutedStyle.Render(" -> " + target)
			}
			line += MutedStyle.Render(fmt.Sprintf("  %.1f %s", file.Confidence, methodLabel(file.PrimaryMethod)))
			if file.Skipped {
				line += MutedStyle.Render("  already organized")
			}
			sb.WriteString(line + "\n")
		}
	}

	return sb.String()
}

func (f *PrettyFormatter) formatErrors(r *types.Report) string {
	var sb strings.Builder
	sb.WriteString(ErrorStyle.Bold(true).Render("Errors:"))
	sb.WriteString("\n")
	for _, e := range r.Errors {
		sb.WriteString(ErrorStyle.Render(fmt.Sprintf("  %s: %s", displayPath(r.Source, e.Path), e.Error)))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (f *PrettyFormatter) formatFooter(r *types.Report) string {
	s := r.Stats
	moved := "Moved:"
	if r.DryRun {
		moved = "Would move:"
	}

	wouldMove := s.FilesMoved
	if r.DryRun {
		wouldMove = 0
		for _, file := range r.Files {
			if !file.Skipped {
				wouldMove++
			}
		}
	}

	parts := []string{
		LabelStyle.Render("Processed:") + " " + ValueStyle.Render(fmt.Sprintf("%d", s.FilesProcessed)),
		LabelStyle.Render(moved) + " " + SuccessStyle.Render(fmt.Sprintf("%d", wouldMove)),
	}

	if s.Errors > 0 {
		parts = append(parts, LabelStyle.Render("Errors:")+" "+ErrorStyle.Render(fmt.Sprintf("%d", s.Errors)))
	}
	parts = append(parts,
		LabelStyle.Render("Success:")+" "+ValueStyle.Render(fmt.Sprintf("%.1f%%", s.SuccessRate())),
		LabelStyle.Render("Size:")+" "+ValueStyle.Render(types.FormatSize(r.TotalSize())),
		LabelStyle.Render("Time:")+" "+ValueStyle.Render(formatDuration(s.Duration())),
	)

	return FooterBox.Render(strings.Join(parts, "  "))
}

func methodLabel(m types.Method) string {
	if m == "" {
		return "fallback"
	}
	return string(m)
}

func init() {
	Register("pretty", func() Formatter {
		return &PrettyFormatter{}
	})
}

// Ensure PrettyFormatter implements Formatter.
var _ Formatter = (*PrettyFormatter)(nil)
