package main

import (
	"context"
	"errors"
	"time"

	"github.com/jamesainslie/tidy/pkg/tidy/config"
	"github.com/jamesainslie/tidy/pkg/tidy/logging"
	"github.com/jamesainslie/tidy/pkg/tidy/types"
	"github.com/jamesainslie/tidy/pkg/tidy/watcher"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch <source> [target]",
	Short: "Organize a directory now and keep organizing new files",
	Long: `Organize the source directory once, then watch it and organize every
new file after it has been quiet for the settle delay. Partial downloads
(.part, .partial, .crdownload, .download) are ignored until renamed.

Stop with Ctrl-C.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runWatch,
}

var settle time.Duration

func init() {
	watchCmd.Flags().BoolVarP(&dryRun, "dry-run", "d", false, "report what would be moved without moving anything")
	watchCmd.Flags().DurationVar(&settle, "settle", 0, "quiet period before a new file is organized (default from config)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := logging.Get("watcher")

	source, err := config.ExpandPath(args[0])
	if err != nil {
		return err
	}
	target := ""
	if len(args) > 1 {
		if target, err = config.ExpandPath(args[1]); err != nil {
			return err
		}
	}

	cl, closeCache := buildClassifier(cfg)
	defer closeCache()

	org, err := newOrganizer(cfg, cl)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	report, err := org.Organize(ctx, source, target, dryRun)
	if report == nil {
		return err
	}
	if len(report.Files) > 0 || len(report.Errors) > 0 {
		if rerr := render(w, report); rerr != nil {
			return rerr
		}
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	if err != nil {
		return err
	}

	delay := cfg.Watch.Settle
	if cmd.Flags().Changed("settle") {
		delay = settle
	}

	wt, err := watcher.New(org, watcher.Options{
		Source:        report.Source,
		Target:        report.Target,
		Recursive:     cfg.Scanner.Recursive,
		IncludeHidden: cfg.Scanner.IncludeHidden,
		IncludeSystem: cfg.Scanner.IncludeSystem,
		Exclude:       cfg.Scanner.Exclude,
		Settle:        delay,
		DryRun:        dryRun,
		OnReport: func(r *types.Report) {
			if err := render(w, r); err != nil {
				logger.Error("failed to render batch report", "error", err)
			}
		},
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := wt.Close(); err != nil {
			logger.Warn("failed to close watcher", "error", err)
		}
	}()

	printInfo("Watching %s (Ctrl-C to stop)", report.Source)
	return wt.Run(ctx)
}
