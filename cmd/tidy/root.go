package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jamesainslie/tidy/pkg/tidy/config"
	"github.com/jamesainslie/tidy/pkg/tidy/logging"
	"github.com/spf13/cobra"
)

// Exit codes.
const (
	exitOK          = 0
	exitFailure     = 1
	exitInterrupted = 130
)

var (
	// Global flags
	cfgFile      string
	verbose      bool
	quiet        bool
	logFile      string
	outputFormat string
	templateStr  string

	// Scan and classification flags
	recursive     bool
	maxDepth      int
	includeHidden bool
	includeSystem bool
	excludes      []string
	sniff         bool
	noCache       bool

	// Organize flags
	dryRun bool

	// cfg is the effective configuration, loaded before any command runs.
	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:   "tidy [source] [target]",
		Short: "Sort files into category folders",
		Long: `Tidy classifies files by extension, MIME type, and filename pattern,
then moves them into category subdirectories such as documents/ or images/.

With no target, files are organized in place under the source directory.
Name collisions are resolved by appending _1, _2, ... before the extension.

Examples:
  tidy ~/Downloads                 # Organize Downloads in place
  tidy -d ~/Downloads              # Preview without moving anything
  tidy ~/Downloads ~/Sorted        # Move into category folders under ~/Sorted
  tidy -r=false --max-depth 0 .    # Only files directly in the current directory
  tidy classify report.pdf         # Show how a file would be classified
  tidy watch ~/Downloads           # Keep organizing new downloads
  tidy history                     # List past runs`,
		Args:              cobra.MaximumNArgs(2),
		PersistentPreRunE: setup,
		RunE:              runOrganize,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: ~/.config/tidy/config.yaml)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "debug output on stderr")
	pf.BoolVarP(&quiet, "quiet", "q", false, "only print errors")
	pf.StringVar(&logFile, "log-file", "", "log file path (default: $XDG_STATE_HOME/tidy/tidy.log)")
	pf.StringVarP(&outputFormat, "output", "o", "", "output format: pretty, table, plain, json, jsonl, yaml, paths, template (default: pretty on a terminal, plain otherwise)")
	pf.StringVar(&templateStr, "template", "", "Go template for --output template")

	pf.BoolVarP(&recursive, "recursive", "r", true, "descend into subdirectories")
	pf.IntVar(&maxDepth, "max-depth", -1, "maximum directory depth to descend (-1 = unbounded)")
	pf.BoolVar(&includeHidden, "include-hidden", false, "include dotfiles and dot-directories")
	pf.BoolVar(&includeSystem, "include-system", false, "include VCS, cache, and OS metadata entries")
	pf.StringSliceVar(&excludes, "exclude", nil, "glob patterns to skip (repeatable)")
	pf.BoolVar(&sniff, "sniff", false, "read file headers when the name gives no MIME type")
	pf.BoolVar(&noCache, "no-cache", false, "do not use the classification cache")

	rootCmd.Flags().BoolVarP(&dryRun, "dry-run", "d", false, "show what would be moved without moving anything")
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if cerr := logging.Close(); cerr != nil && err == nil {
		printError("%v", cerr)
	}
	return exitCode(err)
}

// exitError carries a non-zero exit code. A nil err means the failure was
// already reported.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

// exitCode maps a command error to an exit code, printing it when it has
// not been reported yet.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			printError("%v", ee.err)
		}
		return ee.code
	}
	if errors.Is(err, context.Canceled) {
		return exitInterrupted
	}
	printError("%v", err)
	return exitFailure
}

// printVerbose prints a message if verbose mode is enabled.
func printVerbose(format string, args ...interface{}) {
	if verbose && !quiet {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+format+"\n", args...)
	}
}

// printInfo prints a message to stderr if quiet mode is not enabled.
// Stdout is reserved for command output.
func printInfo(format string, args ...interface{}) {
	if !quiet {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}

// printError prints an error message to stderr.
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
