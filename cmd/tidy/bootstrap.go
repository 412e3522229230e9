package main

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/jamesainslie/tidy/pkg/tidy/cache"
	"github.com/jamesainslie/tidy/pkg/tidy/classifier"
	"github.com/jamesainslie/tidy/pkg/tidy/config"
	"github.com/jamesainslie/tidy/pkg/tidy/logging"
	"github.com/jamesainslie/tidy/pkg/tidy/manifest"
	"github.com/jamesainslie/tidy/pkg/tidy/organizer"
	"github.com/jamesainslie/tidy/pkg/tidy/output"
	"github.com/jamesainslie/tidy/pkg/tidy/types"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// setup loads the configuration, applies flag overrides, and starts logging.
func setup(cmd *cobra.Command, _ []string) error {
	c, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	applyFlags(cmd.Flags(), c)
	if err := c.Validate(); err != nil {
		return err
	}

	if err := initLogging(c); err != nil {
		return err
	}
	cfg = c

	if c.File != "" {
		printVerbose("Using config file %s", c.File)
	}
	return nil
}

// skipSetup replaces setup for commands that must not depend on the config.
func skipSetup(_ *cobra.Command, _ []string) error {
	return nil
}

// applyFlags overrides configuration values with explicitly set flags.
func applyFlags(fs *pflag.FlagSet, c *config.Config) {
	if fs.Changed("recursive") {
		c.Scanner.Recursive = recursive
	}
	if fs.Changed("max-depth") {
		c.Scanner.MaxDepth = maxDepth
	}
	if fs.Changed("include-hidden") {
		c.Scanner.IncludeHidden = includeHidden
	}
	if fs.Changed("include-system") {
		c.Scanner.IncludeSystem = includeSystem
	}
	if fs.Changed("exclude") {
		c.Scanner.Exclude = append(c.Scanner.Exclude, excludes...)
	}
	if fs.Changed("sniff") {
		c.Classification.ContentSniff = sniff
	}
	if fs.Changed("no-cache") && noCache {
		c.Cache.Enabled = false
	}
	if fs.Changed("log-file") {
		c.Logging.Path = logFile
	}
}

// consoleLevel returns the stderr log level for the verbosity flags.
func consoleLevel() string {
	switch {
	case quiet:
		return "error"
	case verbose:
		return "debug"
	default:
		return "warn"
	}
}

func initLogging(c *config.Config) error {
	lc, err := c.LogConfig()
	if err != nil {
		return err
	}
	lc.ConsoleLevel = consoleLevel()
	if verbose {
		lc.Level = "debug"
	}
	if err := logging.Init(lc); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	return nil
}

// buildClassifier creates the classifier and, when enabled, attaches the
// cache after pruning entries written under other rules. The returned
// function closes the cache.
func buildClassifier(c *config.Config) (*classifier.Classifier, func()) {
	opts := []classifier.Option{
		classifier.WithConfidence(c.Classification.Confidence),
		classifier.WithContentSniff(c.Classification.ContentSniff),
	}
	cl := classifier.New(c.Rules(), opts...)
	if !c.Cache.Enabled {
		return cl, func() {}
	}

	logger := logging.Get("cache")
	path := c.Cache.Path
	if path == "" {
		path = cache.DefaultPath()
	}

	store, err := cache.OpenWithTTL(path, c.Cache.TTL)
	if err != nil {
		// Another tidy process may hold the cache; classify without it.
		logger.Warn("cache unavailable", "path", path, "error", err)
		return cl, func() {}
	}

	pruned, err := store.Prune(cl.Fingerprint())
	if err != nil {
		logger.Warn("cache prune failed", "error", err)
	} else if pruned > 0 {
		logger.Info("pruned stale cache entries", "count", pruned)
	}

	cl = classifier.New(c.Rules(), append(opts, classifier.WithCache(store))...)
	return cl, func() {
		if err := store.Close(); err != nil {
			logger.Warn("failed to close cache", "error", err)
		}
	}
}

// openManifest returns the run journal, or nil when it is disabled.
func openManifest(c *config.Config) (*manifest.Manifest, error) {
	if !c.Manifest.Enabled {
		return nil, nil
	}
	dir := c.Manifest.Path
	if dir == "" {
		dir = manifest.DefaultDir()
	}
	m, err := manifest.New(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize manifest: %w", err)
	}
	return m, nil
}

// newOrganizer wires an organizer from the configuration.
func newOrganizer(c *config.Config, cl organizer.Classifier) (*organizer.Organizer, error) {
	m, err := openManifest(c)
	if err != nil {
		return nil, err
	}

	opts := organizer.DefaultOptions()
	opts.Scan = c.ScanOptions("")
	opts.Manifest = m
	if c.Organizer.Lock {
		opts.LockDir = config.LockDir()
	}
	if verbose {
		opts.OnFile = func(r types.FileResult) {
			printVerbose("%s -> %s (%s %.2f)", r.Source, r.Target, r.Category, r.Confidence)
		}
	}
	return organizer.New(cl, opts), nil
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// formatName resolves the output format: the flag, else pretty on a
// terminal and plain otherwise.
func formatName(w io.Writer) string {
	if outputFormat != "" {
		return outputFormat
	}
	if templateStr != "" {
		return "template"
	}
	if isTerminal(w) {
		return "pretty"
	}
	return "plain"
}

// formatter returns the report formatter for w.
func formatter(w io.Writer) (output.Formatter, error) {
	name := formatName(w)
	if name == "template" && templateStr != "" {
		return output.NewTemplateFormatter(templateStr), nil
	}
	return output.Get(name)
}

// render writes the report to w in the selected format.
func render(w io.Writer, r *types.Report) error {
	f, err := formatter(w)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := f.Format(&buf, r); err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	_, err = w.Write(buf.Bytes())
	return err
}
