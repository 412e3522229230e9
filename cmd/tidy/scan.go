package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"github.com/jamesainslie/tidy/pkg/tidy/config"
	"github.com/jamesainslie/tidy/pkg/tidy/scanner"
	"github.com/jamesainslie/tidy/pkg/tidy/types"
	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan [dir]",
	Short: "List the files an organize run would consider",
	Long: `Walk a directory with the configured filters and print every file
that would be classified. Hidden and system entries are skipped unless
--include-hidden or --include-system is given; --exclude adds glob
patterns to skip.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScanCmd,
}

func init() {
	rootCmd.AddCommand(scanCmd)
}

func runScanCmd(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	dir, err := config.ExpandPath(dir)
	if err != nil {
		return err
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	opts := cfg.ScanOptions(abs)
	if err := opts.Validate(); err != nil {
		return err
	}

	result, err := scanner.New(opts).Scan(cmd.Context())
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if err := writeScan(w, formatName(w), result); err != nil {
		return err
	}
	printVerbose("%d files in %d directories (%s)", len(result.Files), result.DirsScanned, result.Elapsed)
	for _, e := range result.Errors {
		printInfo("warning: %s: %s", e.Path, e.Error)
	}
	return nil
}

// writeScan renders a scan result: JSON for json/jsonl, one path per line
// otherwise.
func writeScan(w io.Writer, format string, r *types.ScanResult) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case "jsonl":
		enc := json.NewEncoder(w)
		for _, f := range r.Files {
			if err := enc.Encode(map[string]string{"path": f}); err != nil {
				return err
			}
		}
		return nil
	default:
		for _, f := range r.Files {
			if _, err := fmt.Fprintln(w, f); err != nil {
				return err
			}
		}
		return nil
	}
}
