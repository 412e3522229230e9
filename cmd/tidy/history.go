package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/jamesainslie/tidy/pkg/tidy/manifest"
	"github.com/jamesainslie/tidy/pkg/tidy/output"
	"github.com/jamesainslie/tidy/pkg/tidy/types"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View past organize runs",
	Long: `View the journal of organize runs.

Every run that moved files records which files went where, so a run can be
inspected afterwards with 'tidy history show <id>'.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show the files moved by one run",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove journal entries older than the retention period",
	Args:  cobra.NoArgs,
	RunE:  runHistoryClean,
}

var (
	historyLimit int
	historyDays  int
)

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "maximum number of entries to show (0 = all)")
	historyCleanCmd.Flags().IntVar(&historyDays, "days", 0, "retention in days (default from config)")

	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyCleanCmd)
	rootCmd.AddCommand(historyCmd)
}

// getManifest returns the journal even when it is disabled for new runs,
// so existing entries can still be read.
func getManifest() (*manifest.Manifest, error) {
	dir := cfg.Manifest.Path
	if dir == "" {
		dir = manifest.DefaultDir()
	}
	m, err := manifest.New(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize manifest: %w", err)
	}
	return m, nil
}

func runHistory(cmd *cobra.Command, _ []string) error {
	m, err := getManifest()
	if err != nil {
		return err
	}

	entries, err := m.List(historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}

	w := cmd.OutOrStdout()
	if len(entries) == 0 && formatName(w) != "json" {
		printInfo("No history entries found.")
		printInfo("Run 'tidy [source]' to organize a directory.")
		return nil
	}
	return writeHistory(w, formatName(w), entries)
}

func writeHistory(w io.Writer, format string, entries []manifest.Entry) error {
	if format == "json" {
		if entries == nil {
			entries = []manifest.Entry{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		status := ""
		if e.Summary.Interrupted {
			status = "interrupted"
		}
		rows = append(rows, []string{
			e.ID,
			e.Timestamp.Local().Format("2006-01-02 15:04"),
			e.Source,
			strconv.FormatInt(e.Summary.TotalFiles, 10),
			types.FormatSize(e.Summary.TotalBytes),
			strconv.Itoa(e.Summary.Errors),
			status,
		})
	}
	_, err := fmt.Fprintln(w, output.RenderTable(
		[]string{"ID", "TIME", "SOURCE", "FILES", "SIZE", "ERRORS", ""},
		rows,
		[]output.Alignment{output.AlignLeft, output.AlignLeft, output.AlignLeft, output.AlignRight, output.AlignRight, output.AlignRight},
	))
	return err
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	m, err := getManifest()
	if err != nil {
		return err
	}

	entry, err := m.Get(args[0])
	if err != nil {
		return fmt.Errorf("failed to get entry: %w", err)
	}

	w := cmd.OutOrStdout()
	if formatName(w) == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entry)
	}
	return writeEntry(w, entry)
}

func writeEntry(w io.Writer, entry *manifest.Entry) error {
	fmt.Fprintf(w, "ID:         %s\n", entry.ID)
	fmt.Fprintf(w, "Timestamp:  %s\n", entry.Timestamp.Local().Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(w, "Operation:  %s\n", entry.Operation)
	if entry.Source != "" {
		fmt.Fprintf(w, "Source:     %s\n", entry.Source)
	}
	fmt.Fprintf(w, "Target:     %s\n", entry.Target)
	fmt.Fprintf(w, "Files:      %d (%s)\n", entry.Summary.TotalFiles, types.FormatSize(entry.Summary.TotalBytes))
	fmt.Fprintf(w, "Errors:     %d\n", entry.Summary.Errors)
	if entry.Summary.Interrupted {
		fmt.Fprintln(w, "Interrupted: yes")
	}

	if len(entry.Files) == 0 {
		return nil
	}

	rows := make([][]string, 0, len(entry.Files))
	for _, f := range entry.Files {
		rows = append(rows, []string{f.Source, f.Target, f.Category, types.FormatSize(f.Size)})
	}
	_, err := fmt.Fprintln(w, "\n"+output.RenderTable(
		[]string{"SOURCE", "TARGET", "CATEGORY", "SIZE"},
		rows,
		[]output.Alignment{output.AlignLeft, output.AlignLeft, output.AlignLeft, output.AlignRight},
	))
	return err
}

func runHistoryClean(cmd *cobra.Command, _ []string) error {
	m, err := getManifest()
	if err != nil {
		return err
	}

	days := cfg.Manifest.RetentionDays
	if cmd.Flags().Changed("days") {
		days = historyDays
	}
	if days <= 0 {
		return fmt.Errorf("retention must be at least one day, got %d", days)
	}

	removed, err := m.Cleanup(days)
	if err != nil {
		return fmt.Errorf("failed to clean history: %w", err)
	}

	printInfo("Removed %d history entries older than %d days.", removed, days)
	return nil
}
