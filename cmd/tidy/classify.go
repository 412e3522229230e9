package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/jamesainslie/tidy/pkg/tidy/output"
	"github.com/jamesainslie/tidy/pkg/tidy/types"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var classifyCmd = &cobra.Command{
	Use:   "classify <file>...",
	Short: "Show how files would be classified",
	Long: `Classify each file and print the combined result together with the
raw extension, content, and pattern strategy results.

Nothing is moved. Files that do not exist are still classified by name.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runClassify,
}

func init() {
	rootCmd.AddCommand(classifyCmd)
}

// classifyResult is one classified path.
type classifyResult struct {
	Path                 string `json:"path" yaml:"path"`
	types.Classification `yaml:",inline"`
}

func runClassify(cmd *cobra.Command, args []string) error {
	cl, closeCache := buildClassifier(cfg)
	defer closeCache()

	results := make([]classifyResult, 0, len(args))
	for _, path := range args {
		if _, err := os.Stat(path); err != nil {
			printVerbose("%s: %v (classifying by name only)", path, err)
		}
		results = append(results, classifyResult{Path: path, Classification: cl.Classify(path)})
	}

	w := cmd.OutOrStdout()
	return writeClassifications(w, formatName(w), results)
}

// writeClassifications renders results in the named format.
func writeClassifications(w io.Writer, format string, results []classifyResult) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	case "jsonl":
		enc := json.NewEncoder(w)
		for _, r := range results {
			if err := enc.Encode(r); err != nil {
				return err
			}
		}
		return nil
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(results); err != nil {
			return err
		}
		return enc.Close()
	case "plain":
		tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)
		fmt.Fprintln(tw, "FILE\tCATEGORY\tCONF\tPRIMARY")
		for _, r := range results {
			fmt.Fprintf(tw, "%s\t%s\t%.2f\t%s\n", r.Path, r.Category, r.Confidence, primaryLabel(r.PrimaryMethod))
		}
		return tw.Flush()
	case "pretty", "table":
		rows := make([][]string, 0, len(results))
		for _, r := range results {
			row := []string{r.Path, r.Category, fmt.Sprintf("%.2f", r.Confidence), primaryLabel(r.PrimaryMethod)}
			for _, d := range r.Details {
				row = append(row, detailCell(d))
			}
			rows = append(rows, row)
		}
		_, err := fmt.Fprintln(w, output.RenderTable(
			[]string{"FILE", "CATEGORY", "CONF", "PRIMARY", "EXTENSION", "CONTENT", "PATTERN"},
			rows,
			[]output.Alignment{output.AlignLeft, output.AlignLeft, output.AlignRight},
		))
		return err
	default:
		return fmt.Errorf("output format %q is not supported by classify (use pretty, table, plain, json, jsonl, or yaml)", format)
	}
}

func primaryLabel(m types.Method) string {
	if m == "" {
		return "none"
	}
	return string(m)
}

func detailCell(d types.StrategyResult) string {
	return strings.TrimSpace(fmt.Sprintf("%s %.1f", d.Category, d.Confidence))
}
